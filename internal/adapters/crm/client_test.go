package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vinco360/crm-replicator/internal/domain"
)

// fakeSuite emulates the two SuiteCRM surfaces the client talks to.
type fakeSuite struct {
	logins         int
	legacyLogins   int
	rejectNextV8   bool
	rejectNextSess bool

	token         string
	legacySession string

	entryList  any
	setRelResp any
	lastQuery  string
}

func (f *fakeSuite) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/Api/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.logins++
		f.token = fmt.Sprintf("tok-%d", f.logins)
		json.NewEncoder(w).Encode(map[string]any{"access_token": f.token, "expires_in": 3600})
	})
	mux.HandleFunc("/Api/V8/module", func(w http.ResponseWriter, r *http.Request) {
		if f.rejectNextV8 || r.Header.Get("Authorization") != "Bearer "+f.token {
			f.rejectNextV8 = false
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"type": "Contacts", "id": "rec-1"}})
	})
	mux.HandleFunc("/service/v4_1/rest.php", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		method := r.Form.Get("method")
		var args map[string]any
		_ = json.Unmarshal([]byte(r.Form.Get("rest_data")), &args)

		switch method {
		case "login":
			f.legacyLogins++
			f.legacySession = fmt.Sprintf("sess-%d", f.legacyLogins)
			json.NewEncoder(w).Encode(map[string]any{"id": f.legacySession})
		case "get_entry_list":
			if f.rejectNextSess || args["session"] != f.legacySession {
				f.rejectNextSess = false
				json.NewEncoder(w).Encode(map[string]any{"name": "Invalid Session ID", "number": 11})
				return
			}
			f.lastQuery, _ = args["query"].(string)
			json.NewEncoder(w).Encode(f.entryList)
		case "set_relationship":
			json.NewEncoder(w).Encode(f.setRelResp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return mux
}

func newTestClient(t *testing.T, suite *fakeSuite) *Client {
	t.Helper()
	srv := httptest.NewServer(suite.handler())
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:  srv.URL,
		Username: "admin",
		Password: "secret",
	})
}

func TestCreateEntity_RetriesOnceAfterUnauthorized(t *testing.T) {
	suite := &fakeSuite{rejectNextV8: true}
	client := newTestClient(t, suite)

	id, err := client.CreateEntity(context.Background(), "Contacts", map[string]any{"first_name": "Jane"})
	if err != nil {
		t.Fatalf("CreateEntity error: %v", err)
	}
	if id != "rec-1" {
		t.Fatalf("unexpected record id %q", id)
	}
	if suite.logins != 2 {
		t.Fatalf("expected a re-login after the 401, got %d logins", suite.logins)
	}
}

func TestLookupByForeignID(t *testing.T) {
	suite := &fakeSuite{
		entryList: map[string]any{"entry_list": []map[string]any{{
			"id": "biz-1",
			"name_value_list": map[string]any{
				"name": map[string]any{"name": "name", "value": "Acme Market"},
			},
		}}},
	}
	client := newTestClient(t, suite)

	rec, err := client.LookupByForeignID(context.Background(), "qtk_negocio", 4, "name")
	if err != nil {
		t.Fatalf("LookupByForeignID error: %v", err)
	}
	if rec.ID != "biz-1" || rec.Fields["name"] != "Acme Market" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if suite.lastQuery != "id_negocio_c=4" {
		t.Fatalf("unexpected query %q", suite.lastQuery)
	}
}

func TestLookupByForeignID_UnknownModule(t *testing.T) {
	client := newTestClient(t, &fakeSuite{})
	_, err := client.LookupByForeignID(context.Background(), "qtk_sin_campo", 4)
	if !errors.Is(err, domain.ErrAdapter) {
		t.Fatalf("expected adapter error, got %v", err)
	}
}

func TestLookupByUniqueCode_NotFound(t *testing.T) {
	suite := &fakeSuite{entryList: map[string]any{"entry_list": []any{}}}
	client := newTestClient(t, suite)

	_, err := client.LookupByUniqueCode(context.Background(), "qtk_cuenta", "AC-55")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if !strings.Contains(suite.lastQuery, "numero_unico_c='AC-55'") {
		t.Fatalf("unexpected query %q", suite.lastQuery)
	}
}

func TestLookup_RetriesAfterInvalidSession(t *testing.T) {
	suite := &fakeSuite{
		rejectNextSess: true,
		entryList: map[string]any{"entry_list": []map[string]any{{
			"id":              "code-1",
			"name_value_list": map[string]any{},
		}}},
	}
	client := newTestClient(t, suite)

	rec, err := client.LookupByUniqueCode(context.Background(), "qtk_codigo_cliente", "CODE-1")
	if err != nil {
		t.Fatalf("LookupByUniqueCode error: %v", err)
	}
	if rec.ID != "code-1" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if suite.legacyLogins != 2 {
		t.Fatalf("expected a legacy re-login after the invalid session fault, got %d", suite.legacyLogins)
	}
}

func TestLinkByRelationship_Rejected(t *testing.T) {
	suite := &fakeSuite{setRelResp: map[string]any{"created": 0, "failed": 1}}
	client := newTestClient(t, suite)

	err := client.LinkByRelationship(context.Background(), "qtk_negocio", "biz-1", "qtk_negocio_qtk_codigo_cliente_1", "code-1")
	if !errors.Is(err, domain.ErrAdapter) {
		t.Fatalf("expected adapter error, got %v", err)
	}
}

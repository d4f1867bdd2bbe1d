package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vinco360/crm-replicator/internal/domain"
)

type stubOrchestrator struct {
	payloads [][]byte
	err      error
}

func (s *stubOrchestrator) HandleNotification(_ context.Context, payload []byte) error {
	s.payloads = append(s.payloads, payload)
	return s.err
}

type stubPendingRepo struct {
	entries []domain.PendingPackage
	err     error
}

func (s *stubPendingRepo) Put(context.Context, domain.PendingPackage) error { return nil }

func (s *stubPendingRepo) GetByScope(_ context.Context, clientID, businessID int64) ([]domain.PendingPackage, error) {
	if s.err != nil {
		return nil, s.err
	}
	prefix := domain.SortKeyPrefix(businessID)
	var out []domain.PendingPackage
	for _, e := range s.entries {
		if e.ClientID == clientID && strings.HasPrefix(e.SortKey, prefix) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubPendingRepo) ScanAll(context.Context) ([]domain.PendingPackage, error) {
	return s.entries, s.err
}

func (s *stubPendingRepo) Delete(context.Context, int64, string) error { return nil }

func serve(t *testing.T, orch *stubOrchestrator, repo *stubPendingRepo, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(NewHandler(orch, repo))
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPostNotification_Replicated(t *testing.T) {
	t.Parallel()

	orch := &stubOrchestrator{}
	rec := serve(t, orch, &stubPendingRepo{}, http.MethodPost, "/v1/notifications", `{"IdCliente":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if len(orch.payloads) != 1 || string(orch.payloads[0]) != `{"IdCliente":7}` {
		t.Fatalf("payload must pass through verbatim, got %q", orch.payloads)
	}
}

func TestPostNotification_ErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("%w: bad date", domain.ErrParse), http.StatusBadRequest, "VALIDATION_ERROR"},
		{fmt.Errorf("%w: read pending", domain.ErrStore), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{fmt.Errorf("%w: record 2 of 3", domain.ErrPackageFailed), http.StatusAccepted, "PACKAGE_DEFERRED"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		orch := &stubOrchestrator{err: tc.err}
		rec := serve(t, orch, &stubPendingRepo{}, http.MethodPost, "/v1/notifications", `{}`)
		if rec.Code != tc.wantStatus {
			t.Fatalf("error %v: expected status %d, got %d", tc.err, tc.wantStatus, rec.Code)
		}
		var body apiError
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("error %v: undecodable body %s", tc.err, rec.Body)
		}
		if body.Code != tc.wantCode {
			t.Fatalf("error %v: expected code %s, got %s", tc.err, tc.wantCode, body.Code)
		}
	}
}

func TestPostReplay_SynthesizesReplayAll(t *testing.T) {
	t.Parallel()

	orch := &stubOrchestrator{}
	rec := serve(t, orch, &stubPendingRepo{}, http.MethodPost, "/v1/replay", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	pkg, err := domain.DecodePackage(orch.payloads[0])
	if err != nil {
		t.Fatalf("replay payload undecodable: %v", err)
	}
	if pkg.MessageType != domain.MessageTypeReplayAll {
		t.Fatalf("expected replay-all message type, got %d", pkg.MessageType)
	}
}

func TestGetPending(t *testing.T) {
	t.Parallel()

	pkg := &domain.Package{ClientID: 7, BusinessID: 3, Records: []domain.MutationRecord{{}, {}}}
	payload, err := pkg.Encode()
	if err != nil {
		t.Fatalf("encode package: %v", err)
	}
	repo := &stubPendingRepo{entries: []domain.PendingPackage{
		{
			ClientID:     7,
			SortKey:      domain.NewSortKey(3),
			Payload:      payload,
			MessageDate:  time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			ErrorCode:    domain.ErrorCodeUnresolved,
			ErrorMessage: "crm unavailable",
		},
		{ClientID: 8, SortKey: domain.NewSortKey(4), Payload: payload},
	}}

	rec := serve(t, &stubOrchestrator{}, repo, http.MethodGet, "/v1/pending?client_id=7&business_id=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Status string             `json:"status"`
		Data   []pendingEntryView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("undecodable body: %s", rec.Body)
	}
	if len(body.Data) != 1 {
		t.Fatalf("expected the scoped entry only, got %d", len(body.Data))
	}
	if body.Data[0].Records != 2 || body.Data[0].ErrorCode != domain.ErrorCodeUnresolved {
		t.Fatalf("unexpected view: %+v", body.Data[0])
	}

	all := serve(t, &stubOrchestrator{}, repo, http.MethodGet, "/v1/pending", "")
	if err := json.Unmarshal(all.Body.Bytes(), &body); err != nil {
		t.Fatalf("undecodable body: %s", all.Body)
	}
	if len(body.Data) != 2 {
		t.Fatalf("expected every entry without a scope filter, got %d", len(body.Data))
	}

	bad := serve(t, &stubOrchestrator{}, repo, http.MethodGet, "/v1/pending?client_id=x&business_id=3", "")
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed scope, got %d", bad.Code)
	}
}

package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vinco360/crm-replicator/internal/domain"
	"github.com/vinco360/crm-replicator/internal/ports"
)

// Client talks to SuiteCRM over two surfaces: the V8 JSON API for record
// writes and default-relationship links, and the legacy v4.1 REST endpoint
// for field-filtered lookups and named link fields, which V8 does not expose.
type Client struct {
	cfg      Config
	http     *http.Client
	sessions *sessionManager
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &Client{
		cfg:      cfg,
		http:     httpClient,
		sessions: newSessionManager(cfg, httpClient),
	}
}

var _ ports.CRMClient = (*Client)(nil)

type v8Envelope struct {
	Data v8Record `json:"data"`
}

type v8Record struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (c *Client) CreateEntity(ctx context.Context, kind string, attributes map[string]any) (string, error) {
	var out v8Envelope
	err := c.v8Do(ctx, http.MethodPost, "/Api/V8/module",
		v8Envelope{Data: v8Record{Type: kind, Attributes: attributes}}, &out)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", kind, err)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("create %s: %w: response carries no id", kind, domain.ErrAdapter)
	}
	return out.Data.ID, nil
}

func (c *Client) UpdateEntity(ctx context.Context, kind, remoteID string, attributes map[string]any) error {
	err := c.v8Do(ctx, http.MethodPatch, "/Api/V8/module",
		v8Envelope{Data: v8Record{Type: kind, ID: remoteID, Attributes: attributes}}, nil)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", kind, remoteID, err)
	}
	return nil
}

func (c *Client) DeleteEntity(ctx context.Context, kind, remoteID string) error {
	if err := c.v8Do(ctx, http.MethodDelete, "/Api/V8/module/"+kind+"/"+remoteID, nil, nil); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, remoteID, err)
	}
	return nil
}

func (c *Client) LinkEntities(ctx context.Context, kind, remoteID, relatedKind, relatedID string) error {
	err := c.v8Do(ctx, http.MethodPost, "/Api/V8/module/"+kind+"/"+remoteID+"/relationships",
		v8Envelope{Data: v8Record{Type: relatedKind, ID: relatedID}}, nil)
	if err != nil {
		return fmt.Errorf("link %s %s to %s %s: %w", relatedKind, relatedID, kind, remoteID, err)
	}
	return nil
}

func (c *Client) RelatedEntityID(ctx context.Context, kind, remoteID, relationship string) (string, error) {
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := c.v8Do(ctx, http.MethodGet,
		"/Api/V8/module/"+kind+"/"+remoteID+"/relationships/"+relationship, nil, &out)
	if err != nil {
		return "", fmt.Errorf("related %s of %s %s: %w", relationship, kind, remoteID, err)
	}
	if len(out.Data) == 0 {
		return "", fmt.Errorf("related %s of %s %s: %w", relationship, kind, remoteID, domain.ErrNotFound)
	}
	return out.Data[0].ID, nil
}

// v8Do issues one V8 API call under the bearer token, retrying exactly once
// after refreshing the session on an unauthorized response.
func (c *Client) v8Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", domain.ErrAdapter, err)
		}
	}

	retried := false
	for {
		token, err := c.sessions.Token(ctx)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("%w: build request: %v", domain.ErrAdapter, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %s %s: %v", domain.ErrAdapter, method, path, err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: read response: %v", domain.ErrAdapter, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && !retried {
			retried = true
			c.sessions.Invalidate()
			continue
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%w: %s %s returned status %d", domain.ErrAdapter, method, path, resp.StatusCode)
		}
		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("%w: decode response: %v", domain.ErrAdapter, err)
			}
		}
		return nil
	}
}

func (c *Client) LookupByForeignID(ctx context.Context, kind string, foreignID int64, fields ...string) (ports.RemoteRecord, error) {
	field, ok := foreignIDField(kind)
	if !ok {
		return ports.RemoteRecord{}, fmt.Errorf("%w: module %s has no foreign id field", domain.ErrAdapter, kind)
	}
	return c.lookup(ctx, kind, fmt.Sprintf("%s=%d", field, foreignID), fields)
}

func (c *Client) LookupByUniqueCode(ctx context.Context, kind, code string, fields ...string) (ports.RemoteRecord, error) {
	return c.lookup(ctx, kind, fmt.Sprintf("%s='%s'", uniqueCodeField(kind), code), fields)
}

type legacyEntryList struct {
	EntryList []struct {
		ID            string `json:"id"`
		NameValueList map[string]struct {
			Name  string `json:"name"`
			Value any    `json:"value"`
		} `json:"name_value_list"`
	} `json:"entry_list"`
}

// lookup runs a get_entry_list query through the legacy endpoint, the only
// surface that filters on custom fields server-side.
func (c *Client) lookup(ctx context.Context, module, query string, fields []string) (ports.RemoteRecord, error) {
	selectFields := append([]string{"id"}, fields...)
	var out legacyEntryList
	err := c.legacyCall(ctx, "get_entry_list", map[string]any{
		"module_name":               module,
		"query":                     query,
		"order_by":                  "",
		"offset":                    0,
		"select_fields":             selectFields,
		"link_name_to_fields_array": []any{},
		"max_results":               1,
		"deleted":                   0,
		"Favorites":                 false,
	}, &out)
	if err != nil {
		return ports.RemoteRecord{}, fmt.Errorf("lookup %s where %s: %w", module, query, err)
	}
	if len(out.EntryList) == 0 || out.EntryList[0].ID == "" {
		return ports.RemoteRecord{}, fmt.Errorf("lookup %s where %s: %w", module, query, domain.ErrNotFound)
	}

	entry := out.EntryList[0]
	rec := ports.RemoteRecord{ID: entry.ID, Fields: make(map[string]string, len(entry.NameValueList))}
	for name, nv := range entry.NameValueList {
		rec.Fields[name] = fmt.Sprint(nv.Value)
	}
	return rec, nil
}

func (c *Client) LinkByRelationship(ctx context.Context, kind, remoteID, relationship, relatedID string) error {
	var out struct {
		Created int `json:"created"`
		Failed  int `json:"failed"`
	}
	err := c.legacyCall(ctx, "set_relationship", map[string]any{
		"module_name":     kind,
		"module_id":       remoteID,
		"link_field_name": relationship,
		"related_ids":     []string{relatedID},
		"name_value_list": []any{},
		"delete":          0,
	}, &out)
	if err != nil {
		return fmt.Errorf("link %s via %s: %w", kind, relationship, err)
	}
	if out.Failed > 0 {
		return fmt.Errorf("link %s via %s: %w: relationship rejected", kind, relationship, domain.ErrAdapter)
	}
	return nil
}

// legacyCall injects the v4.1 session into args and issues the call, retrying
// exactly once with a fresh session when the server reports it invalid.
func (c *Client) legacyCall(ctx context.Context, method string, args map[string]any, out any) error {
	retried := false
	for {
		session, err := c.sessions.LegacySession(ctx)
		if err != nil {
			return err
		}
		args["session"] = session
		restData, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("%w: encode %s arguments: %v", domain.ErrAdapter, method, err)
		}

		body, err := c.sessions.legacyPost(ctx, method, string(restData))
		if err != nil {
			return err
		}
		if legacyInvalidSession(body) {
			if retried {
				return fmt.Errorf("%w: %s: session invalid after re-login", domain.ErrAdapter, method)
			}
			retried = true
			c.sessions.InvalidateLegacy()
			continue
		}
		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("%w: decode %s response: %v", domain.ErrAdapter, method, err)
			}
		}
		return nil
	}
}

// legacyInvalidSession recognizes the v4.1 fault shape; the endpoint answers
// 200 even for failures.
func legacyInvalidSession(body []byte) bool {
	var fault struct {
		Name   string `json:"name"`
		Number int    `json:"number"`
	}
	if err := json.Unmarshal(body, &fault); err != nil {
		return false
	}
	return fault.Number != 0 && fault.Name == "Invalid Session ID"
}

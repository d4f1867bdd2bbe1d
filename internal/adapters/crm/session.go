package crm

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vinco360/crm-replicator/internal/domain"
)

// sessionManager owns both SuiteCRM sessions: the V8 OAuth2 bearer token and
// the legacy v4.1 session id. Sessions are an explicit handle on the client,
// never process-wide state, so two clients never share or clobber tokens.
type sessionManager struct {
	cfg  Config
	http *http.Client

	mu            sync.Mutex
	token         string
	tokenExpires  time.Time
	legacySession string
}

func newSessionManager(cfg Config, httpClient *http.Client) *sessionManager {
	return &sessionManager{cfg: cfg, http: httpClient}
}

// Token returns a valid V8 bearer token, logging in when none is held or the
// held one is about to expire.
func (s *sessionManager) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && time.Now().Before(s.tokenExpires.Add(-time.Minute)) {
		return s.token, nil
	}
	return s.loginLocked(ctx)
}

// Invalidate drops the V8 token so the next call logs in again. Used after an
// unauthorized response: server-side session resets do not honor expiry.
func (s *sessionManager) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func (s *sessionManager) loginLocked(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {s.cfg.ClientID},
		"client_secret": {s.cfg.ClientSecret},
		"username":      {s.cfg.Username},
		"password":      {s.cfg.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/Api/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build login request: %v", domain.ErrAdapter, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: login: %v", domain.ErrAdapter, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read login response: %v", domain.ErrAdapter, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: login returned status %d", domain.ErrAdapter, resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		return "", fmt.Errorf("%w: login response undecodable", domain.ErrAdapter)
	}

	s.token = tok.AccessToken
	s.tokenExpires = tokenExpiry(tok.AccessToken, tok.ExpiresIn)
	return s.token, nil
}

// tokenExpiry reads the expiry claim off the access token, which SuiteCRM
// issues as a JWT. The expires_in field is the fallback when the token does
// not parse as one.
func tokenExpiry(token string, expiresIn int) time.Time {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

// LegacySession returns a valid v4.1 session id, logging in on first use.
func (s *sessionManager) LegacySession(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.legacySession != "" {
		return s.legacySession, nil
	}
	return s.legacyLoginLocked(ctx)
}

// InvalidateLegacy drops the v4.1 session id after an invalid-session reply.
func (s *sessionManager) InvalidateLegacy() {
	s.mu.Lock()
	s.legacySession = ""
	s.mu.Unlock()
}

func (s *sessionManager) legacyLoginLocked(ctx context.Context) (string, error) {
	// v4.1 authenticates with the md5 hex digest of the password.
	sum := md5.Sum([]byte(s.cfg.Password))
	restData, err := json.Marshal(map[string]any{
		"user_auth": map[string]any{
			"user_name": s.cfg.Username,
			"password":  hex.EncodeToString(sum[:]),
			"version":   "1",
		},
		"application_name": "vinco360",
		"name_value_list":  []any{},
	})
	if err != nil {
		return "", fmt.Errorf("%w: build legacy login: %v", domain.ErrAdapter, err)
	}

	body, err := s.legacyPost(ctx, "login", string(restData))
	if err != nil {
		return "", err
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return "", fmt.Errorf("%w: legacy login response undecodable", domain.ErrAdapter)
	}
	s.legacySession = out.ID
	return s.legacySession, nil
}

// legacyPost issues one v4.1 REST call. The legacy endpoint speaks form
// encoding with a JSON argument blob and always answers 200, so failures
// surface in the payload, not the status.
func (s *sessionManager) legacyPost(ctx context.Context, method, restData string) ([]byte, error) {
	form := url.Values{
		"method":        {method},
		"rest_data":     {restData},
		"input_type":    {"JSON"},
		"response_type": {"JSON"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/service/v4_1/rest.php", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build legacy request: %v", domain.ErrAdapter, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: legacy %s: %v", domain.ErrAdapter, method, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read legacy %s response: %v", domain.ErrAdapter, method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: legacy %s returned status %d", domain.ErrAdapter, method, resp.StatusCode)
	}
	return body, nil
}

package crm

import "time"

// Config carries the SuiteCRM connection settings. The same credentials drive
// both the V8 OAuth2 session and the legacy v4.1 session.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Timeout      time.Duration
}

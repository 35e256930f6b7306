package searchconsole

import (
	"context"
	"errors"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sc "google.golang.org/api/searchconsole/v1"
)

// DefaultScopes grants read-only access to Search Console reports.
var DefaultScopes = []string{sc.WebmastersReadonlyScope}

// Sessions opens an authenticated handle to the Search Console API.
type Sessions interface {
	Open(ctx context.Context) (Remote, error)
}

// SessionConfig describes how CredentialsFileSessions authenticates.
type SessionConfig struct {
	// KeyFile is the path to a service account (or other Google) credentials JSON file.
	KeyFile string
	// Scopes defaults to DefaultScopes when empty.
	Scopes []string
	// Endpoint overrides the API base URL, e.g. for an emulator.
	Endpoint string
}

// CredentialsFileSessions derives a fresh session from a credentials file on
// every Open. Nothing is cached between calls.
type CredentialsFileSessions struct {
	cfg      SessionConfig
	readFile func(string) ([]byte, error)
}

// NewCredentialsFileSessions builds a session factory for cfg.
func NewCredentialsFileSessions(cfg SessionConfig) *CredentialsFileSessions {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	return &CredentialsFileSessions{cfg: cfg, readFile: os.ReadFile}
}

// Open reads and parses the credentials file and constructs the API service.
// Every failure is reported as an *AuthError.
func (s *CredentialsFileSessions) Open(ctx context.Context) (Remote, error) {
	if s.cfg.KeyFile == "" {
		return nil, &AuthError{Op: "load credentials", Err: errors.New("credentials key file is not configured")}
	}
	data, err := s.readFile(s.cfg.KeyFile)
	if err != nil {
		return nil, &AuthError{Op: "load credentials", Err: err}
	}
	creds, err := google.CredentialsFromJSON(ctx, data, s.cfg.Scopes...)
	if err != nil {
		return nil, &AuthError{Op: "parse credentials", Err: err}
	}

	opts := []option.ClientOption{option.WithCredentials(creds)}
	if s.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.cfg.Endpoint))
	}
	svc, err := sc.NewService(ctx, opts...)
	if err != nil {
		return nil, &AuthError{Op: "open session", Err: err}
	}
	return NewRemote(svc), nil
}

// StaticSessions hands out the same Remote on every Open. It is meant for
// services built outside this package, such as tests against a fake endpoint.
type StaticSessions struct {
	Remote Remote
}

// Open returns the wrapped Remote.
func (s StaticSessions) Open(context.Context) (Remote, error) {
	if s.Remote == nil {
		return nil, &AuthError{Op: "open session", Err: errors.New("no remote configured")}
	}
	return s.Remote, nil
}

// Package store persists the state that outlives a single run: the session
// cookie, optionally the login credentials, and the selected project id.
// State is scoped to the working directory the tool is invoked from.
//
// Concurrent runs against the same working directory are not coordinated;
// the last writer wins.
package store

import "github.com/chenyanfei-m/iconfont-updater/internal/types"

// Keys held by a Store.
const (
	KeyCookie    = "cookie"
	KeyCSRFToken = "csrfToken"
	KeyIdentity  = "identity"
	KeySecret    = "secret"
	KeyProjectID = "projectId"
)

// Store is the capability the session and catalog stages need from the
// persisted key/value state.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
	Clear() error
}

// LoadSession returns the cached session, or nil when no cookie is stored.
func LoadSession(s Store) *types.Session {
	cookie, ok := s.Get(KeyCookie)
	if !ok || cookie == "" {
		return nil
	}
	csrf, _ := s.Get(KeyCSRFToken)
	return &types.Session{Cookie: cookie, CSRFToken: csrf}
}

// SaveSession persists both session fields.
func SaveSession(s Store, sess *types.Session) error {
	if err := s.Set(KeyCookie, sess.Cookie); err != nil {
		return err
	}
	if sess.CSRFToken == "" {
		return s.Delete(KeyCSRFToken)
	}
	return s.Set(KeyCSRFToken, sess.CSRFToken)
}

// ClearSession drops the cached session.
func ClearSession(s Store) error {
	if err := s.Delete(KeyCookie); err != nil {
		return err
	}
	return s.Delete(KeyCSRFToken)
}

// LoadCredentials returns stored credentials; ok is false unless both are present.
func LoadCredentials(s Store) (types.Credentials, bool) {
	identity, _ := s.Get(KeyIdentity)
	secret, _ := s.Get(KeySecret)
	creds := types.Credentials{Identity: identity, Secret: secret}
	return creds, !creds.Empty()
}

// SaveCredentials persists login credentials.
func SaveCredentials(s Store, c types.Credentials) error {
	if err := s.Set(KeyIdentity, c.Identity); err != nil {
		return err
	}
	return s.Set(KeySecret, c.Secret)
}

// ClearCredentials removes stored login credentials.
func ClearCredentials(s Store) error {
	if err := s.Delete(KeyIdentity); err != nil {
		return err
	}
	return s.Delete(KeySecret)
}

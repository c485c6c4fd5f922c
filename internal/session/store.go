// Package session persists the operator's bearer token and profile between
// runs of the terminal.
//
// The session lives in a TOML file under the state directory
// (~/.local/state/parkgate/session.toml by default). It is read once at
// startup; a stored session that fails validation is removed wholesale and
// the operator has to log in again.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/alfredjeanlab/parkgate/internal/model"
)

// FileName is the session file inside the state directory.
const FileName = "session.toml"

// ErrInvalidSession is returned by Load when the stored session was discarded.
var ErrInvalidSession = errors.New("stored session is invalid")

type record struct {
	Token   string         `toml:"token"`
	SavedAt time.Time      `toml:"saved_at"`
	Profile *model.Profile `toml:"profile"`
}

// Store is the persistent session. It implements client.TokenSource.
type Store struct {
	path string
	log  *zap.Logger
	now  func() time.Time

	mu      sync.RWMutex
	token   string
	profile *model.Profile
}

// DefaultDir returns ~/.local/state/parkgate.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "parkgate"), nil
}

// NewStore creates a store backed by dir/session.toml. Nothing is read until Load.
func NewStore(dir string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		path: filepath.Join(dir, FileName),
		log:  log,
		now:  time.Now,
	}
}

// Path returns the session file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored session. A missing file is an empty session. An
// unreadable file, a missing or invalid profile, a missing token or an
// expired JWT removes the file and returns an error wrapping ErrInvalidSession.
func (s *Store) Load() error {
	var rec record
	if _, err := toml.DecodeFile(s.path, &rec); err != nil {
		if os.IsNotExist(err) {
			s.set("", nil)
			return nil
		}
		return s.discard(fmt.Errorf("decoding %s: %w", s.path, err))
	}

	if rec.Token == "" && rec.Profile == nil {
		s.set("", nil)
		return nil
	}
	if rec.Token == "" {
		return s.discard(errors.New("missing token"))
	}
	if rec.Profile == nil {
		return s.discard(errors.New("missing profile"))
	}
	if err := model.ValidateProfile(rec.Profile); err != nil {
		return s.discard(err)
	}
	if exp, ok := tokenExpiry(rec.Token); ok && !exp.After(s.now()) {
		return s.discard(fmt.Errorf("token expired at %s", exp.Format(time.RFC3339)))
	}

	s.set(rec.Token, rec.Profile)
	return nil
}

func (s *Store) discard(reason error) error {
	s.log.Warn("discarding stored session", zap.String("path", s.path), zap.Error(reason))
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Error("removing stored session", zap.Error(err))
	}
	s.set("", nil)
	return fmt.Errorf("%w: %v", ErrInvalidSession, reason)
}

// Save validates and persists a new session.
func (s *Store) Save(token string, profile model.Profile) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := model.ValidateProfile(&profile); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	// Write a sibling file and rename it over the session so a failed write
	// leaves the previous session in place.
	f, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	rec := record{Token: token, SavedAt: s.now().UTC(), Profile: &profile}
	if err := toml.NewEncoder(f).Encode(rec); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing session: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(f.Name(), s.path); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}

	s.set(token, &profile)
	return nil
}

// Clear removes the stored session (logout).
func (s *Store) Clear() error {
	s.set("", nil)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) set(token string, profile *model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.profile = profile
}

// Token returns the bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Profile returns the logged-in operator.
func (s *Store) Profile() (model.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return model.Profile{}, false
	}
	return *s.profile, true
}

// tokenExpiry reads the exp claim of a JWT without verifying its signature;
// the backend verifies tokens. Opaque tokens have no expiry.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

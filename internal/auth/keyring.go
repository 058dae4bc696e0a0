package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	// DefaultKeyringService is the keyring service name tokens are stored under
	DefaultKeyringService = "catalog-browser"
	// DefaultKeyringUser is the keyring account name tokens are stored under
	DefaultKeyringUser = "default"
)

// KeyringStore persists the token in the operating system keyring.
// The token is read once on first use and cached afterwards.
type KeyringStore struct {
	service string
	user    string
	logger  *slog.Logger

	mu     sync.Mutex
	loaded bool
	token  string
}

// KeyringOption configures a KeyringStore
type KeyringOption func(*KeyringStore)

// WithKeyringAccount overrides the service and user the token is stored under
func WithKeyringAccount(service, user string) KeyringOption {
	return func(s *KeyringStore) {
		s.service = service
		s.user = user
	}
}

// WithKeyringLogger sets the logger used to report keyring failures
func WithKeyringLogger(logger *slog.Logger) KeyringOption {
	return func(s *KeyringStore) {
		s.logger = logger
	}
}

// NewKeyringStore creates a keyring-backed token store
func NewKeyringStore(opts ...KeyringOption) *KeyringStore {
	s := &KeyringStore{
		service: DefaultKeyringService,
		user:    DefaultKeyringUser,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentToken returns the persisted token. A missing entry or an
// unavailable keyring yields "" so requests go out anonymously.
func (s *KeyringStore) CurrentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.token
	}

	token, err := keyring.Get(s.service, s.user)
	switch {
	case err == nil:
		s.token = token
	case errors.Is(err, keyring.ErrNotFound):
		s.token = ""
	default:
		s.logger.Warn("Failed to read token from keyring, continuing anonymously",
			"service", s.service, "error", err)
		s.token = ""
	}
	s.loaded = true
	return s.token
}

// SetToken persists token; an empty token deletes the keyring entry
func (s *KeyringStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		if err := keyring.Delete(s.service, s.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to delete token from keyring: %w", err)
		}
	} else if err := keyring.Set(s.service, s.user, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}

	s.token = token
	s.loaded = true
	return nil
}

package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvAccessToken = "THREADSCRAPER_ACCESS_TOKEN"
	EnvUsername    = "THREADSCRAPER_USERNAME"
	EnvUserAgent   = "THREADSCRAPER_USER_AGENT"
)

// EnvironmentStore is a read-only CredentialStore over environment variables
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment credentials. A non-empty username must
// match THREADSCRAPER_USERNAME when that variable is set.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	token := os.Getenv(EnvAccessToken)
	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	envUser := os.Getenv(EnvUsername)
	switch {
	case username == "" && envUser == "":
		username = "default"
	case username == "":
		username = envUser
	case envUser != "" && envUser != username:
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Username:     username,
		AccessToken:  token,
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if the environment carries a token
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}

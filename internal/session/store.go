package session

import (
	"errors"
	"os"
	"strings"
)

var ErrNoToken = errors.New("no session token stored")

// TokenSource yields the stored session credential, the way the app reads it
// from device storage before each authenticated call.
type TokenSource interface {
	SessionToken() (string, error)
}

// FileStore keeps the session token in a plain file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) SessionToken() (string, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoToken
		}
		return "", err
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

func (f *FileStore) Save(token string) error {
	return os.WriteFile(f.path, []byte(token), 0o600)
}

// StaticToken is a TokenSource over an in-memory value, for tests and for
// callers that already hold the credential.
type StaticToken string

func (s StaticToken) SessionToken() (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"blurt-quest/internal/domain"
)

// CredentialStore persists the (username, token) pair between runs.
type CredentialStore interface {
	Read() (domain.Session, bool, error)
	Write(domain.Session) error
	Clear() error
}

// FileStore keeps the credential pair as JSON in a single file, typically
// under the user config dir.
type FileStore struct {
	path string
}

// DefaultCredentialsPath resolves the standard location for the credential file.
func DefaultCredentialsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "blurt-quest", "credentials.json"), nil
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Read() (domain.Session, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// Corrupt file is the same as no credentials.
		return domain.Session{}, false, nil
	}
	if sess.Username == "" || sess.Token == "" {
		return domain.Session{}, false, nil
	}
	return sess, true, nil
}

func (s *FileStore) Write(sess domain.Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

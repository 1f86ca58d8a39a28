package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// storageKey is the fixed key the identity record lives under, mirroring the
// single "user" entry the web client keeps in browser storage.
const storageKey = "user"

// Store persists at most one identity record across restarts.
type Store interface {
	Load() (*Identity, error)
	Save(*Identity) error
	Clear() error
}

// FileStore is a durable key/value file holding JSON-encoded records. Only
// the fixed identity key is used today but the file keeps the generic shape
// so adding keys later is not a format change.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultStorePath places the store file under the user config directory.
func DefaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve config dir")
	}
	return filepath.Join(dir, "skillfeed", "storage.json"), nil
}

func (s *FileStore) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read identity store")
	}
	records := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "decode identity store")
	}
	return records, nil
}

func (s *FileStore) write(records map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create store dir")
	}
	data, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "encode identity store")
	}
	return errors.Wrap(os.WriteFile(s.path, data, 0o600), "write identity store")
}

func (s *FileStore) Load() (*Identity, error) {
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	raw, ok := records[storageKey]
	if !ok {
		return nil, nil
	}
	var identity Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, errors.Wrap(err, "decode identity")
	}
	return &identity, nil
}

func (s *FileStore) Save(identity *Identity) error {
	records, err := s.read()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(identity)
	if err != nil {
		return errors.Wrap(err, "encode identity")
	}
	records[storageKey] = raw
	return s.write(records)
}

func (s *FileStore) Clear() error {
	records, err := s.read()
	if err != nil {
		return err
	}
	delete(records, storageKey)
	return s.write(records)
}

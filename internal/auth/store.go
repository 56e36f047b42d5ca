package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/netdevops/ciscoctl/internal/constants"
)

// ErrNotPersisted is returned by Store.Load when nothing has been saved yet.
var ErrNotPersisted = errors.New("no persisted credentials")

// Store persists the encoded credentials of one cache.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// FileStore keeps the encoded credentials in a single local file that is
// replaced atomically on every Save.
type FileStore struct {
	path  string
	mutex sync.Mutex
}

// NewFileStore creates a file store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the file.
func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// #nosec G304 -- path comes from configuration, not from device data
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotPersisted
	}

	if err != nil {
		return nil, fmt.Errorf("reading credential file: %w", err)
	}

	return data, nil
}

// Save writes data to a temporary file next to the target and renames it.
func (s *FileStore) Save(ctx context.Context, data []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	dir := filepath.Dir(s.path)

	err := os.MkdirAll(dir, constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary credential file: %w", err)
	}

	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Chmod(tmpName, constants.ConfigFilePerm)
	}

	if err == nil {
		err = os.Rename(tmpName, s.path)
	}

	if err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("writing credential file: %w", err)
	}

	return nil
}

package file

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/opinionlab/studyctl/pkg/persistence"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	KEY_LEN   = 32
	NONCE_LEN = 24
)

var (
	ErrInvalidKeyLength = fmt.Errorf("encryption key must be %d bytes", KEY_LEN)
	ErrDecrypt          = errors.New("unable to decrypt storage file")
	ErrCorruptFile      = errors.New("storage file is corrupt")
)

type storeOption func(cfg *storeConfig) error

type storeConfig struct {
	key  *[KEY_LEN]byte
	perm os.FileMode
}

// WithEncryptionKey seals the whole file with NaCl secretbox.
func WithEncryptionKey(key []byte) storeOption {
	return func(cfg *storeConfig) error {
		if len(key) != KEY_LEN {
			return ErrInvalidKeyLength
		}
		cfg.key = new([KEY_LEN]byte)
		copy(cfg.key[:], key)
		return nil
	}
}

func WithFileMode(perm os.FileMode) storeOption {
	return func(cfg *storeConfig) error {
		cfg.perm = perm
		return nil
	}
}

// Store keeps every entry in a single JSON document on disk.
// Writes go to a temporary file that is renamed over the target.
type Store[T any] struct {
	lock sync.RWMutex
	path string
	cfg  storeConfig
}

func NewStore[T any](fileName string, opts ...storeOption) (*Store[T], error) {
	cfg := storeConfig{
		perm: 0o600,
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(fileName), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %s", err.Error())
	}

	store := &Store[T]{
		lock: sync.RWMutex{},
		path: fileName,
		cfg:  cfg,
	}

	// surface a wrong key or a broken file at construction, not on first read
	if _, err := store.read(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store[T]) Save(key string, data T) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}
	entries[key] = data

	return s.write(entries)
}

func (s *Store[T]) Load(key string) (T, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var zero T
	entries, err := s.read()
	if err != nil {
		return zero, err
	}

	val, ok := entries[key]
	if !ok {
		return zero, fmt.Errorf("%w: %s", persistence.ErrNotFound, key)
	}

	return val, nil
}

func (s *Store[T]) LoadAll() ([]T, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	entries, err := s.read()
	if err != nil {
		return nil, err
	}

	result := make([]T, 0, len(entries))
	for _, val := range entries {
		result = append(result, val)
	}

	return result, nil
}

func (s *Store[T]) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}

	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)

	return s.write(entries)
}

func (s *Store[T]) Path() string {
	return s.path
}

func (s *Store[T]) read() (map[string]T, error) {
	entries := make(map[string]T)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %s", err.Error())
	}
	if len(data) == 0 {
		return entries, nil
	}

	if s.cfg.key != nil {
		if len(data) < NONCE_LEN {
			return nil, ErrCorruptFile
		}
		var nonce [NONCE_LEN]byte
		copy(nonce[:], data[:NONCE_LEN])

		opened, ok := secretbox.Open(nil, data[NONCE_LEN:], &nonce, s.cfg.key)
		if !ok {
			return nil, ErrDecrypt
		}
		data = opened
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Join(ErrCorruptFile, err)
	}

	return entries, nil
}

func (s *Store[T]) write(entries map[string]T) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal storage entries: %w", err)
	}

	if s.cfg.key != nil {
		var nonce [NONCE_LEN]byte
		if _, err := rand.Read(nonce[:]); err != nil {
			return fmt.Errorf("failed to generate nonce: %w", err)
		}
		data = secretbox.Seal(nonce[:], data, &nonce, s.cfg.key)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary storage file: %s", err.Error())
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage file: %s", err.Error())
	}
	if err := tmp.Chmod(s.cfg.perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set storage file mode: %s", err.Error())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close storage file: %s", err.Error())
	}

	return os.Rename(tmp.Name(), s.path)
}

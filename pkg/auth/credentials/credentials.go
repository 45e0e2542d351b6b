package credentials

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opinionlab/studyctl/pkg/persistence"
)

const (
	AccessKey  = "token"
	RefreshKey = "refreshToken"

	DefaultMirrorTTL = 7 * 24 * time.Hour
)

// Pair is the access/refresh credential pair issued by the platform.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (p Pair) Empty() bool {
	return p.Access == "" && p.Refresh == ""
}

type StoreOption func(s *Store)

// WithMirror adds a secondary location that receives every write and clear.
// Mirrors are never read from.
func WithMirror(mirror persistence.Store[string]) StoreOption {
	return func(s *Store) {
		s.mirrors = append(s.mirrors, mirror)
	}
}

func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.log = logger
	}
}

// Store owns the credential pair. Reads come from the primary store only,
// writes go through to every mirror.
type Store struct {
	mu      sync.RWMutex
	primary persistence.Store[string]
	mirrors []persistence.Store[string]
	log     *slog.Logger
}

func NewStore(primary persistence.Store[string], opts ...StoreOption) *Store {
	s := &Store{
		primary: primary,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Access returns the stored access credential, if any.
func (s *Store) Access() (string, bool) {
	return s.get(AccessKey)
}

// Refresh returns the stored refresh credential, if any.
func (s *Store) Refresh() (string, bool) {
	return s.get(RefreshKey)
}

func (s *Store) Pair() Pair {
	access, _ := s.Access()
	refresh, _ := s.Refresh()
	return Pair{Access: access, Refresh: refresh}
}

// Set persists both values, skipping empty ones.
func (s *Store) Set(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, entry := range []struct{ key, val string }{{AccessKey, access}, {RefreshKey, refresh}} {
		if entry.val == "" {
			continue
		}
		if err := s.primary.Save(entry.key, entry.val); err != nil {
			return fmt.Errorf("unable to persist %s: %w", entry.key, err)
		}
		for _, mirror := range s.mirrors {
			if err := mirror.Save(entry.key, entry.val); err != nil {
				errs = append(errs, fmt.Errorf("unable to mirror %s: %w", entry.key, err))
			}
		}
	}

	// the primary is the source of truth, a lagging mirror is only reported
	if err := errors.Join(errs...); err != nil {
		s.log.Warn("credential mirror write failed", slog.String("reason", err.Error()))
	}
	return nil
}

// Clear removes all credential material from every location.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, store := range append([]persistence.Store[string]{s.primary}, s.mirrors...) {
		for _, key := range []string{AccessKey, RefreshKey} {
			if err := store.Delete(key); err != nil {
				errs = append(errs, fmt.Errorf("unable to delete %s: %w", key, err))
			}
		}
	}

	return errors.Join(errs...)
}

func (s *Store) get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, err := s.primary.Load(key)
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			s.log.Error("unable to read credential", slog.String("key", key), slog.String("reason", err.Error()))
		}
		return "", false
	}

	return val, val != ""
}

package account

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/opinionlab/studyctl/internal/model"
	"github.com/opinionlab/studyctl/pkg/persistence"
)

var (
	ErrDuplicateEmail    = errors.New("a user is already registered with this e-mail address")
	ErrDuplicateUsername = errors.New("a user with that username already exists")
)

// repository for platform accounts, keyed by lower-case e-mail
type AccountRepo struct {
	store  persistence.Store[model.Account]
	mu     sync.Mutex
	nextID int
}

func NewAccountRepo(store persistence.Store[model.Account]) (*AccountRepo, error) {
	accounts, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}

	repo := &AccountRepo{store: store, nextID: 1}
	for _, a := range accounts {
		repo.nextID = max(repo.nextID, a.ID+1)
	}
	return repo, nil
}

func key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (ar *AccountRepo) Create(new *model.Account) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if _, err := ar.store.Load(key(new.Email)); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("failed to check for existing account: %w", err)
	}

	all, err := ar.store.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to check for existing account: %w", err)
	}
	for _, a := range all {
		if strings.EqualFold(a.Username, new.Username) {
			return ErrDuplicateUsername
		}
	}

	new.ID = ar.nextID
	if err := ar.store.Save(key(new.Email), *new); err != nil {
		return fmt.Errorf("failed to store account: %w", err)
	}
	ar.nextID++

	return nil
}

func (ar *AccountRepo) Read(email string) (model.Account, error) {
	a, err := ar.store.Load(key(email))
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to read account: %w", err)
	}
	return a, nil
}

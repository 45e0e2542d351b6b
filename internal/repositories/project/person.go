package project

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/opinionlab/studyctl/pkg/persistence"
	"github.com/opinionlab/studyctl/pkg/studyapi"
)

// repository for the silicon persons of all projects
type PersonRepo struct {
	store  persistence.Store[studyapi.SiliconPerson]
	mu     sync.Mutex
	nextID int
}

func NewPersonRepo(store persistence.Store[studyapi.SiliconPerson]) *PersonRepo {
	return &PersonRepo{store: store, nextID: 1}
}

func (r *PersonRepo) Create(new *studyapi.SiliconPerson) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	new.ID = r.nextID
	if new.CreatedAt.IsZero() {
		new.CreatedAt = time.Now()
	}
	if err := r.store.Save(strconv.Itoa(new.ID), *new); err != nil {
		return fmt.Errorf("failed to store silicon person: %w", err)
	}
	r.nextID++
	return nil
}

func (r *PersonRepo) ReadByProject(projectID int) ([]studyapi.SiliconPerson, error) {
	all, err := r.store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read silicon persons: %w", err)
	}

	persons := slices.DeleteFunc(all, func(p studyapi.SiliconPerson) bool {
		return p.Project != projectID
	})
	slices.SortFunc(persons, func(a, b studyapi.SiliconPerson) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return persons, nil
}

package project

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/opinionlab/studyctl/pkg/persistence"
	"github.com/opinionlab/studyctl/pkg/studyapi"
)

var (
	ErrDuplicateTitle = errors.New("project title already exists for this user")
)

// repository for projects. Titles are unique per user.
type ProjectRepo struct {
	store  persistence.Store[studyapi.Project]
	mu     sync.Mutex
	nextID int
	now    func() time.Time
}

func NewProjectRepo(store persistence.Store[studyapi.Project]) (*ProjectRepo, error) {
	projects, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read projects: %w", err)
	}

	repo := &ProjectRepo{store: store, nextID: 1, now: time.Now}
	for _, p := range projects {
		repo.nextID = max(repo.nextID, p.ID+1)
	}
	return repo, nil
}

func (pr *ProjectRepo) Create(new *studyapi.Project) error {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	owned, err := pr.ReadByUser(new.User)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(owned, func(p studyapi.Project) bool { return p.Title == new.Title }) {
		return fmt.Errorf("%w: %s", ErrDuplicateTitle, new.Title)
	}

	now := pr.now()
	new.ID = pr.nextID
	new.CreatedAt = now
	new.UpdatedAt = now
	if new.Status == "" {
		new.Status = studyapi.PROJECT_DRAFT
	}

	if err := pr.store.Save(strconv.Itoa(new.ID), *new); err != nil {
		return fmt.Errorf("failed to store project: %w", err)
	}
	pr.nextID++

	return nil
}

func (pr *ProjectRepo) Update(id string, new *studyapi.Project) error {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	old, err := pr.Read(id)
	if err != nil {
		return err
	}

	new.ID = old.ID
	new.User = old.User
	new.CreatedAt = old.CreatedAt
	new.UpdatedAt = pr.now()
	if err := pr.store.Save(id, *new); err != nil {
		return fmt.Errorf("failed to update project with id: %s: %w", id, err)
	}
	return nil
}

func (pr *ProjectRepo) Delete(id string) error {
	if err := pr.store.Delete(id); err != nil {
		return fmt.Errorf("failed to delete project with id: %s: %w", id, err)
	}
	return nil
}

func (pr *ProjectRepo) Read(id string) (studyapi.Project, error) {
	p, err := pr.store.Load(id)
	if err != nil {
		return studyapi.Project{}, fmt.Errorf("failed to read project: %w", err)
	}
	return p, nil
}

func (pr *ProjectRepo) ReadAll() ([]studyapi.Project, error) {
	projects, err := pr.store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read projects: %w", err)
	}

	slices.SortFunc(projects, func(a, b studyapi.Project) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return projects, nil
}

func (pr *ProjectRepo) ReadByUser(userID int) ([]studyapi.Project, error) {
	all, err := pr.ReadAll()
	if err != nil {
		return nil, err
	}

	return slices.DeleteFunc(all, func(p studyapi.Project) bool {
		return p.User != userID
	}), nil
}

package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/erazemk/shelfkeeper/internal/model"
	"github.com/erazemk/shelfkeeper/internal/store"
)

// ContainerEvents is notified after containers are created or deleted.
type ContainerEvents interface {
	ContainerCreated()
	ContainerDeleted()
}

// Containers manages container records. Reads are unscoped; every mutation
// is scoped to the acting user.
type Containers struct {
	DB     *sql.DB
	Events ContainerEvents
}

// List returns every container regardless of owner.
func (s *Containers) List(ctx context.Context) ([]model.Container, error) {
	return store.ListContainers(ctx, s.DB)
}

// ListOwned returns the containers belonging to owner.
func (s *Containers) ListOwned(ctx context.Context, owner *model.User) ([]model.Container, error) {
	if owner == nil {
		return nil, ErrNotFound
	}
	return store.ListUserContainers(ctx, s.DB, owner.ID)
}

// Show returns a container by ID regardless of owner.
func (s *Containers) Show(ctx context.Context, id int64) (*model.Container, error) {
	c, err := store.GetContainer(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// Create validates p and stores a new container with its contents for owner.
// Any user_id in the payload is ignored.
func (s *Containers) Create(ctx context.Context, owner *model.User, p *ContainerPayload) (*model.Container, error) {
	if owner == nil {
		return nil, ErrNotFound
	}
	if p == nil {
		p = &ContainerPayload{}
	}

	c := &model.Container{UserID: owner.ID}
	var errs fieldErrors
	applyContainer(c, p, &errs)
	checkContainer(c, &errs)
	if err := s.checkProducts(ctx, c.Contents, &errs); err != nil {
		return nil, err
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	created, err := store.CreateContainer(ctx, s.DB, c)
	if err != nil {
		return nil, err
	}

	if s.Events != nil {
		s.Events.ContainerCreated()
	}
	slog.Info("container created", "id", created.ID, "shelf", created.Shelf, "row", created.Row, "user", owner.Username)
	return created, nil
}

// Update applies the fields present in p to one of owner's containers. A
// submitted contents_attributes list replaces the stored contents.
func (s *Containers) Update(ctx context.Context, owner *model.User, id int64, p *ContainerPayload) (*model.Container, error) {
	if owner == nil {
		return nil, ErrNotFound
	}
	c, err := store.GetUserContainer(ctx, s.DB, owner.ID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if p == nil {
		p = &ContainerPayload{}
	}

	replace := p.contentsSet || p.Contents != nil
	var errs fieldErrors
	applyContainer(c, p, &errs)
	checkContainer(c, &errs)
	if replace {
		if err := s.checkProducts(ctx, c.Contents, &errs); err != nil {
			return nil, err
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	if err := store.UpdateContainer(ctx, s.DB, c, replace); err != nil {
		return nil, err
	}

	slog.Info("container updated", "id", id, "user", owner.Username)
	return s.Show(ctx, id)
}

// Destroy deletes one of owner's containers and returns it as it was.
func (s *Containers) Destroy(ctx context.Context, owner *model.User, id int64) (*model.Container, error) {
	if owner == nil {
		return nil, ErrNotFound
	}
	c, err := store.GetUserContainer(ctx, s.DB, owner.ID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}

	if err := store.DeleteContainer(ctx, s.DB, id); err != nil {
		return nil, err
	}

	if s.Events != nil {
		s.Events.ContainerDeleted()
	}
	slog.Info("container deleted", "id", id, "user", owner.Username)
	return c, nil
}

// checkProducts reports contents that reference products which do not exist.
func (s *Containers) checkProducts(ctx context.Context, contents []model.Content, errs *fieldErrors) error {
	var ids []int64
	for i, content := range contents {
		if content.ProductID > 0 && !errs.has(fmt.Sprintf("contents[%d].product_id", i)) {
			ids = append(ids, content.ProductID)
		}
	}

	missing, err := store.MissingProducts(ctx, s.DB, ids)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	unknown := make(map[int64]bool, len(missing))
	for _, id := range missing {
		unknown[id] = true
	}
	for i, content := range contents {
		if unknown[content.ProductID] {
			field := fmt.Sprintf("contents[%d].product_id", i)
			errs.add(field, fmt.Sprintf("%s references an unknown product (%d)", field, content.ProductID))
		}
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/shelfkeeper/internal/model"
)

const containerColumns = `id, user_id, shelf, shelf_row, expires, created_at, updated_at`

func scanContainer(row interface{ Scan(...any) error }) (*model.Container, error) {
	c := &model.Container{}
	err := row.Scan(&c.ID, &c.UserID, &c.Shelf, &c.Row, &c.Expires, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Contents = []model.Content{}
	return c, nil
}

// CreateContainer inserts a container and its contents in one transaction.
// The contents are stored in the order given.
func CreateContainer(ctx context.Context, db *sql.DB, c *model.Container) (*model.Container, error) {
	var id int64
	err := WithTx(ctx, db, func(tx DBTX) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO containers (user_id, shelf, shelf_row, expires) VALUES (?, ?, ?, ?)`,
			c.UserID, c.Shelf, c.Row, c.Expires,
		)
		if err != nil {
			return fmt.Errorf("inserting container: %w", err)
		}

		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting container id: %w", err)
		}

		return insertContents(ctx, tx, id, c.Contents)
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}

	return GetContainer(ctx, db, id)
}

func insertContents(ctx context.Context, tx DBTX, containerID int64, contents []model.Content) error {
	for i, content := range contents {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO contents (container_id, product_id, concentration, position) VALUES (?, ?, ?, ?)`,
			containerID, content.ProductID, content.Concentration, i,
		)
		if err != nil {
			return fmt.Errorf("inserting content %d: %w", i, err)
		}
	}
	return nil
}

// UpdateContainer saves a container's shelf, row and expiry. When
// replaceContents is set the stored contents are swapped for c.Contents in
// the same transaction.
func UpdateContainer(ctx context.Context, db *sql.DB, c *model.Container, replaceContents bool) error {
	err := WithTx(ctx, db, func(tx DBTX) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE containers SET shelf = ?, shelf_row = ?, expires = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			c.Shelf, c.Row, c.Expires, c.ID,
		)
		if err != nil {
			return fmt.Errorf("updating container: %w", err)
		}

		if !replaceContents {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM contents WHERE container_id = ?`, c.ID,
		); err != nil {
			return fmt.Errorf("clearing contents: %w", err)
		}

		return insertContents(ctx, tx, c.ID, c.Contents)
	})
	if err != nil {
		return fmt.Errorf("saving container %d: %w", c.ID, err)
	}
	return nil
}

// DeleteContainer removes a container. Its contents are removed by cascade.
func DeleteContainer(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM containers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting container: %w", err)
	}
	return nil
}

// GetContainer returns a container by ID regardless of owner.
func GetContainer(ctx context.Context, db DBTX, id int64) (*model.Container, error) {
	return getContainer(ctx, db,
		`SELECT `+containerColumns+` FROM containers WHERE id = ?`, id,
	)
}

// GetUserContainer returns a container by ID only if it belongs to userID.
func GetUserContainer(ctx context.Context, db DBTX, userID, id int64) (*model.Container, error) {
	return getContainer(ctx, db,
		`SELECT `+containerColumns+` FROM containers WHERE id = ? AND user_id = ?`, id, userID,
	)
}

func getContainer(ctx context.Context, db DBTX, query string, args ...any) (*model.Container, error) {
	c, err := scanContainer(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting container: %w", err)
	}

	containers := []model.Container{*c}
	if err := attachContents(ctx, db, containers); err != nil {
		return nil, err
	}
	return &containers[0], nil
}

// ListContainers returns every container with its contents.
func ListContainers(ctx context.Context, db DBTX) ([]model.Container, error) {
	return listContainers(ctx, db,
		`SELECT `+containerColumns+` FROM containers ORDER BY id`,
	)
}

// ListUserContainers returns the containers owned by userID.
func ListUserContainers(ctx context.Context, db DBTX, userID int64) ([]model.Container, error) {
	return listContainers(ctx, db,
		`SELECT `+containerColumns+` FROM containers WHERE user_id = ? ORDER BY id`, userID,
	)
}

func listContainers(ctx context.Context, db DBTX, query string, args ...any) ([]model.Container, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	containers := []model.Container{}
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning container: %w", err)
		}
		containers = append(containers, *c)
	}
	// Close before loading contents so a single-connection pool is free again.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := attachContents(ctx, db, containers); err != nil {
		return nil, err
	}
	return containers, nil
}

// attachContents loads contents for the given containers in one query.
func attachContents(ctx context.Context, db DBTX, containers []model.Container) error {
	if len(containers) == 0 {
		return nil
	}

	index := make(map[int64]int, len(containers))
	args := make([]any, len(containers))
	for i, c := range containers {
		index[c.ID] = i
		args[i] = c.ID
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, container_id, product_id, concentration FROM contents
		 WHERE container_id IN (`+placeholders(len(containers))+`)
		 ORDER BY container_id, position, id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("listing contents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var content model.Content
		if err := rows.Scan(&content.ID, &content.ContainerID, &content.ProductID, &content.Concentration); err != nil {
			return fmt.Errorf("scanning content: %w", err)
		}
		i := index[content.ContainerID]
		containers[i].Contents = append(containers[i].Contents, content)
	}
	return rows.Err()
}

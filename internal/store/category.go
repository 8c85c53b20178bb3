// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"techbar/internal/models"
)

var (
	// ErrNotFound is returned when a mutation targets a missing category.
	ErrNotFound = errors.New("category not found")

	// ErrDuplicateSlug is returned when a slug is already used in the kapp.
	ErrDuplicateSlug = errors.New("category slug already exists")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

// CatalogStore reads and writes a kapp's categories and forms in the
// database. It serves as a category source in place of the platform API.
type CatalogStore struct {
	db *sql.DB
}

// NewCatalogStore returns a new CatalogStore.
func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// Categories returns every category of a kapp with its attributes and
// categorized forms, in the raw shape the platform API returns.
func (s *CatalogStore) Categories(ctx context.Context, kapp string) ([]models.RawCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, name
		FROM categories
		WHERE kapp_slug = $1
		ORDER BY slug
	`, kapp)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var (
		items []models.RawCategory
		index = make(map[uuid.UUID]int)
	)
	for rows.Next() {
		var (
			id uuid.UUID
			c  models.RawCategory
		)
		if err := rows.Scan(&id, &c.Slug, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Attributes = map[string][]string{}
		c.Categorizations = []models.Categorization{}
		index[id] = len(items)
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	if err := s.loadAttributes(ctx, kapp, items, index); err != nil {
		return nil, err
	}
	if err := s.loadCategorizations(ctx, kapp, items, index); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *CatalogStore) loadAttributes(ctx context.Context, kapp string, items []models.RawCategory, index map[uuid.UUID]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.category_id, a.name, a.value
		FROM category_attributes a
		JOIN categories c ON c.id = a.category_id
		WHERE c.kapp_slug = $1
		ORDER BY a.category_id, a.name, a.position
	`, kapp)
	if err != nil {
		return fmt.Errorf("list category attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          uuid.UUID
			name, value string
		)
		if err := rows.Scan(&id, &name, &value); err != nil {
			return fmt.Errorf("scan category attribute: %w", err)
		}
		if i, ok := index[id]; ok {
			items[i].Attributes[name] = append(items[i].Attributes[name], value)
		}
	}
	return rows.Err()
}

func (s *CatalogStore) loadCategorizations(ctx context.Context, kapp string, items []models.RawCategory, index map[uuid.UUID]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cz.category_id, f.slug, f.name, f.description, f.icon, f.type, f.status
		FROM categorizations cz
		JOIN categories c ON c.id = cz.category_id
		JOIN forms f ON f.id = cz.form_id
		WHERE c.kapp_slug = $1
		ORDER BY f.slug
	`, kapp)
	if err != nil {
		return fmt.Errorf("list categorizations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id uuid.UUID
			f  models.Form
		)
		if err := rows.Scan(&id, &f.Slug, &f.Name, &f.Description, &f.Icon, &f.Type, &f.Status); err != nil {
			return fmt.Errorf("scan categorization: %w", err)
		}
		if i, ok := index[id]; ok {
			f.Categories = []string{items[i].Slug}
			items[i].Categorizations = append(items[i].Categorizations, models.Categorization{Form: f})
		}
	}
	return rows.Err()
}

// CreateCategory inserts a category with its attributes.
func (s *CatalogStore) CreateCategory(ctx context.Context, kapp string, raw models.RawCategory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO categories (id, kapp_slug, slug, name) VALUES ($1, $2, $3, $4)`,
		id, kapp, raw.Slug, raw.Name,
	)
	if err != nil {
		return fmt.Errorf("create category: %w", mapError(err))
	}

	if err := insertAttributes(ctx, tx, id, raw.Attributes); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateCategory replaces the name, slug and attributes of the category
// stored under slug. Categorizations are kept.
func (s *CatalogStore) UpdateCategory(ctx context.Context, kapp, slug string, raw models.RawCategory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, `
		UPDATE categories SET slug = $1, name = $2, updated_at = NOW()
		WHERE kapp_slug = $3 AND slug = $4
		RETURNING id
	`, raw.Slug, raw.Name, kapp, slug).Scan(&id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("update category %s: %w", slug, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update category %s: %w", slug, mapError(err))
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM category_attributes WHERE category_id = $1`, id); err != nil {
		return fmt.Errorf("clear category attributes: %w", err)
	}
	if err := insertAttributes(ctx, tx, id, raw.Attributes); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteCategory removes a category. Children keep their parent attribute
// and become roots of the rebuilt hierarchy.
func (s *CatalogStore) DeleteCategory(ctx context.Context, kapp, slug string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE kapp_slug = $1 AND slug = $2`, kapp, slug)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete category %s: %w", slug, ErrNotFound)
	}
	return nil
}

func insertAttributes(ctx context.Context, tx *sql.Tx, id uuid.UUID, attrs map[string][]string) error {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for pos, value := range attrs[name] {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO category_attributes (category_id, name, position, value) VALUES ($1, $2, $3, $4)`,
				id, name, pos, value,
			); err != nil {
				return fmt.Errorf("insert attribute %s: %w", name, err)
			}
		}
	}
	return nil
}

// mapError converts unique violations into ErrDuplicateSlug.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateSlug
	}
	return err
}

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type seedCategory struct {
	slug, name, parent, sortOrder, icon string
	hidden                              bool
	forms                               []string
}

type seedForm struct {
	slug, name, description, formType, status string
}

var seedForms = []seedForm{
	{"laptop-repair", "Laptop Repair", "Bring in a laptop that needs fixing.", "Service", "Active"},
	{"new-phone", "New Phone", "Pick up a replacement mobile phone.", "Service", "Active"},
	{"software-install", "Software Install", "Get licensed software installed.", "Service", "New"},
	{"password-reset", "Password Reset", "Reset a locked account.", "Service", "Active"},
	{"appointment", "Appointment", "Tech Bar appointment.", "Template", "Active"},
}

var seedCategories = []seedCategory{
	{slug: "hardware", name: "Hardware", sortOrder: "1", icon: "fa-laptop"},
	{slug: "laptops", name: "Laptops", parent: "hardware", sortOrder: "1", forms: []string{"laptop-repair"}},
	{slug: "mobile", name: "Mobile Devices", parent: "hardware", sortOrder: "2", icon: "fa-mobile", forms: []string{"new-phone"}},
	{slug: "software", name: "Software", sortOrder: "2", icon: "fa-code", forms: []string{"software-install"}},
	{slug: "accounts", name: "Accounts & Access", sortOrder: "3", icon: "fa-key", forms: []string{"password-reset"}},
	{slug: "internal", name: "Internal", sortOrder: "9", hidden: true, forms: []string{"appointment"}},
}

// Seed populates a kapp with demo Tech Bar categories and forms. It is a
// no-op when the kapp already has categories.
func Seed(ctx context.Context, db *sql.DB, kapp string) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE kapp_slug = $1`, kapp).Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}
	if count > 0 {
		zap.S().Infow("database already seeded, skipping", "kapp", kapp)
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin tx: %w", err)
	}
	defer tx.Rollback()

	formIDs := make(map[string]uuid.UUID, len(seedForms))
	for _, f := range seedForms {
		id := uuid.New()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO forms (id, kapp_slug, slug, name, description, type, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, kapp, f.slug, f.name, f.description, f.formType, f.status,
		); err != nil {
			return fmt.Errorf("seed form %s: %w", f.slug, err)
		}
		formIDs[f.slug] = id
	}

	for _, c := range seedCategories {
		id := uuid.New()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, kapp_slug, slug, name) VALUES ($1, $2, $3, $4)`,
			id, kapp, c.slug, c.name,
		); err != nil {
			return fmt.Errorf("seed category %s: %w", c.slug, err)
		}

		attrs := map[string]string{"Sort Order": c.sortOrder, "Parent": c.parent, "Icon": c.icon}
		if c.hidden {
			attrs["Hidden"] = "true"
		}
		for name, value := range attrs {
			if value == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO category_attributes (category_id, name, position, value) VALUES ($1, $2, 0, $3)`,
				id, name, value,
			); err != nil {
				return fmt.Errorf("seed attribute %s of %s: %w", name, c.slug, err)
			}
		}

		for _, form := range c.forms {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO categorizations (category_id, form_id) VALUES ($1, $2)`,
				id, formIDs[form],
			); err != nil {
				return fmt.Errorf("seed categorization %s/%s: %w", c.slug, form, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	zap.S().Infow("database seeded with demo catalog",
		"kapp", kapp,
		"categories", len(seedCategories),
		"forms", len(seedForms),
	)
	return nil
}

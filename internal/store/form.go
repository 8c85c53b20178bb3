package store

import (
	"context"
	"fmt"
	"strings"

	"techbar/internal/models"
)

// Forms returns the forms of a kapp with the slugs of their categories.
func (s *CatalogStore) Forms(ctx context.Context, kapp string) ([]models.Form, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.slug, f.name, f.description, f.icon, f.type, f.status,
		       COALESCE(string_agg(c.slug, ',' ORDER BY c.slug), '')
		FROM forms f
		LEFT JOIN categorizations cz ON cz.form_id = f.id
		LEFT JOIN categories c ON c.id = cz.category_id
		WHERE f.kapp_slug = $1
		GROUP BY f.id
		ORDER BY f.slug
	`, kapp)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()

	var items []models.Form
	for rows.Next() {
		var (
			f    models.Form
			cats string
		)
		if err := rows.Scan(&f.Slug, &f.Name, &f.Description, &f.Icon, &f.Type, &f.Status, &cats); err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}
		// Slugs are URL-safe, so a comma never appears inside one.
		if cats != "" {
			f.Categories = strings.Split(cats, ",")
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

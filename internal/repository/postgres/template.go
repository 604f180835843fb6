package postgres

import (
	"architect/internal/repository/db"
	"context"
	"encoding/json"
	"fmt"
)

// CreateTemplate inserts a template
func (p *PostgresDB) CreateTemplate(ctx context.Context, category string, data db.TemplateData) (*db.Template, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error encoding template data: %w", err)
	}

	tmpl := db.Template{Category: category, Data: data}
	query := `INSERT INTO templates (category, template_data) VALUES ($1, $2) RETURNING id, created_at`

	if err := p.conn.QueryRowContext(ctx, query, category, string(payload)).Scan(&tmpl.ID, &tmpl.CreatedAt); err != nil {
		return nil, classify("error creating template", err)
	}
	return &tmpl, nil
}

// GetTemplates returns every template ordered by category then id
func (p *PostgresDB) GetTemplates(ctx context.Context) ([]db.Template, error) {
	query := `SELECT id, category, template_data, created_at FROM templates ORDER BY category, id`
	return p.queryTemplates(ctx, query)
}

// GetTemplatesByCategory returns templates in one category
func (p *PostgresDB) GetTemplatesByCategory(ctx context.Context, category string) ([]db.Template, error) {
	query := `SELECT id, category, template_data, created_at FROM templates WHERE category = $1 ORDER BY id`
	return p.queryTemplates(ctx, query, category)
}

// CountTemplates returns the number of stored templates
func (p *PostgresDB) CountTemplates(ctx context.Context) (int, error) {
	var n int
	if err := p.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`).Scan(&n); err != nil {
		return 0, classify("error counting templates", err)
	}
	return n, nil
}

func (p *PostgresDB) queryTemplates(ctx context.Context, query string, args ...any) ([]db.Template, error) {
	rows, err := p.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("error querying templates", err)
	}
	defer rows.Close()

	templates := []db.Template{}
	for rows.Next() {
		var tmpl db.Template
		var payload []byte
		if err := rows.Scan(&tmpl.ID, &tmpl.Category, &payload, &tmpl.CreatedAt); err != nil {
			return nil, classify("error scanning template", err)
		}
		if err := json.Unmarshal(payload, &tmpl.Data); err != nil {
			return nil, fmt.Errorf("error decoding template data: %w", err)
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("error iterating templates", err)
	}
	return templates, nil
}

package postgres

import (
	"architect/internal/logger"
	"architect/internal/repository/db"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

const specificationColumns = `id, user_id, conversation_id, app_name, spec_data, build_prompt, version, created_at`

// CreateSpecification inserts a new specification row. Version defaults to 1.
func (p *PostgresDB) CreateSpecification(ctx context.Context, spec *db.Specification) (*db.Specification, error) {
	document, err := json.Marshal(spec.Document)
	if err != nil {
		return nil, fmt.Errorf("error encoding specification document: %w", err)
	}

	stored := *spec
	if stored.Version == 0 {
		stored.Version = 1
	}

	var conversationID sql.NullInt64
	if spec.ConversationID != nil {
		conversationID = sql.NullInt64{Int64: *spec.ConversationID, Valid: true}
	}

	query := `
	INSERT INTO specifications (user_id, conversation_id, app_name, spec_data, build_prompt, version)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at
	`

	err = p.conn.QueryRowContext(ctx, query, spec.UserID, conversationID, spec.AppName, string(document), spec.BuildPrompt, stored.Version).
		Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, classify("error creating specification", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"specification_id": stored.ID,
		"user_id":          spec.UserID,
		"app_name":         spec.AppName,
	}).Info("Created new specification")

	return &stored, nil
}

// GetSpecification retrieves a specific specification
func (p *PostgresDB) GetSpecification(ctx context.Context, id int64) (*db.Specification, error) {
	query := `SELECT ` + specificationColumns + ` FROM specifications WHERE id = $1`

	spec, err := scanSpecification(p.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, classify("error retrieving specification", err)
	}
	return spec, nil
}

// GetSpecificationsByUser retrieves all specifications for a user, newest first
func (p *PostgresDB) GetSpecificationsByUser(ctx context.Context, userID int64) ([]db.Specification, error) {
	query := `
	SELECT ` + specificationColumns + `
	FROM specifications
	WHERE user_id = $1
	ORDER BY created_at DESC
	`

	rows, err := p.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, classify("error querying specifications", err)
	}
	defer rows.Close()

	specs := []db.Specification{}
	for rows.Next() {
		spec, err := scanSpecification(rows)
		if err != nil {
			return nil, classify("error scanning specification", err)
		}
		specs = append(specs, *spec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("error iterating specifications", err)
	}

	return specs, nil
}

// UpdateSpecification merges the provided fields and bumps the version in one statement
func (p *PostgresDB) UpdateSpecification(ctx context.Context, id int64, update db.SpecificationUpdate) (*db.Specification, error) {
	var document, buildPrompt sql.NullString
	if update.Document != nil {
		data, err := json.Marshal(update.Document)
		if err != nil {
			return nil, fmt.Errorf("error encoding specification document: %w", err)
		}
		document = sql.NullString{String: string(data), Valid: true}
	}
	if update.BuildPrompt != nil {
		buildPrompt = sql.NullString{String: *update.BuildPrompt, Valid: true}
	}

	query := `
	UPDATE specifications
	SET spec_data = COALESCE($1::jsonb, spec_data),
	    build_prompt = COALESCE($2::text, build_prompt),
	    version = version + 1
	WHERE id = $3
	RETURNING ` + specificationColumns

	spec, err := scanSpecification(p.conn.QueryRowContext(ctx, query, document, buildPrompt, id))
	if err != nil {
		return nil, classify("error updating specification", err)
	}

	logger.Log.WithFields(logrus.Fields{"specification_id": id, "version": spec.Version}).Info("Updated specification")
	return spec, nil
}

func scanSpecification(row rowScanner) (*db.Specification, error) {
	var spec db.Specification
	var conversationID sql.NullInt64
	var document []byte
	err := row.Scan(&spec.ID, &spec.UserID, &conversationID, &spec.AppName, &document, &spec.BuildPrompt, &spec.Version, &spec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if conversationID.Valid {
		id := conversationID.Int64
		spec.ConversationID = &id
	}
	if err := json.Unmarshal(document, &spec.Document); err != nil {
		return nil, fmt.Errorf("error decoding specification document: %w", err)
	}
	return &spec, nil
}

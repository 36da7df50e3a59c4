package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eun-legal/backend/internal/storage/models"
)

const decisionTableBody = `
	id VARCHAR(64) PRIMARY KEY,
	jurisdiction VARCHAR(16) NOT NULL,
	location VARCHAR(128) NOT NULL DEFAULT '',
	chamber VARCHAR(128) NOT NULL DEFAULT '',
	number VARCHAR(64) NOT NULL DEFAULT '',
	decision_date VARCHAR(10) NOT NULL,
	type VARCHAR(64) NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	solution TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	motivations JSONB NOT NULL DEFAULT '[]',
	themes JSONB NOT NULL DEFAULT '[]',
	visas JSONB NOT NULL DEFAULT '[]'`

// DecisionRepository persists decisions for one jurisdiction. Each
// jurisdiction gets its own table so corpora can be rebuilt independently.
type DecisionRepository struct {
	db    *Client
	table string
}

func NewDecisionRepository(db *Client, jurisdiction string) (*DecisionRepository, error) {
	table := fmt.Sprintf("jl_decision_%s", jurisdiction)
	if _, err := quoteIdentifier(table); err != nil {
		return nil, fmt.Errorf("invalid jurisdiction %q", jurisdiction)
	}
	return &DecisionRepository{db: db, table: table}, nil
}

func (r *DecisionRepository) Init(ctx context.Context) error {
	return r.db.CreateTable(ctx, r.table, decisionTableBody)
}

func (r *DecisionRepository) Create(ctx context.Context, d *models.Decision) error {
	motivations, themes, visas, err := marshalDecisionJSON(d)
	if err != nil {
		return err
	}
	_, err = r.db.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, jurisdiction, location, chamber, number, decision_date,
		 type, text, solution, summary, motivations, themes, visas)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`, r.table),
		d.ID, d.Jurisdiction, d.Location, d.Chamber, d.Number, d.DecisionDate,
		d.Type, d.Text, d.Solution, d.Summary, motivations, themes, visas,
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision %s: %w", d.ID, err)
	}
	return nil
}

func (r *DecisionRepository) Read(ctx context.Context, id string) (*models.Decision, error) {
	var (
		d                         models.Decision
		motivations, themes, visas []byte
	)
	err := r.db.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, jurisdiction, location, chamber, number, decision_date,
		 type, text, solution, summary, motivations, themes, visas
		 FROM %s WHERE id = $1`, r.table), id,
	).Scan(&d.ID, &d.Jurisdiction, &d.Location, &d.Chamber, &d.Number, &d.DecisionDate,
		&d.Type, &d.Text, &d.Solution, &d.Summary, &motivations, &themes, &visas)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read decision %s: %w", id, err)
	}
	if err := unmarshalDecisionJSON(&d, motivations, themes, visas); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DecisionRepository) Update(ctx context.Context, d *models.Decision) error {
	motivations, themes, visas, err := marshalDecisionJSON(d)
	if err != nil {
		return err
	}
	_, err = r.db.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET jurisdiction = $2, location = $3, chamber = $4, number = $5,
		 decision_date = $6, type = $7, text = $8, solution = $9, summary = $10,
		 motivations = $11, themes = $12, visas = $13 WHERE id = $1`, r.table),
		d.ID, d.Jurisdiction, d.Location, d.Chamber, d.Number, d.DecisionDate,
		d.Type, d.Text, d.Solution, d.Summary, motivations, themes, visas,
	)
	if err != nil {
		return fmt.Errorf("failed to update decision %s: %w", d.ID, err)
	}
	return nil
}

func (r *DecisionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", r.table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count decisions: %w", err)
	}
	return n, nil
}

func (r *DecisionRepository) Drop(ctx context.Context) error {
	return r.db.DropTable(ctx, r.table)
}

func marshalDecisionJSON(d *models.Decision) (motivations, themes, visas []byte, err error) {
	if motivations, err = json.Marshal(orEmptyZones(d.Motivations)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal motivations: %w", err)
	}
	if themes, err = json.Marshal(orEmptyStrings(d.Themes)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal themes: %w", err)
	}
	if visas, err = json.Marshal(orEmptyStrings(d.Visas)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal visas: %w", err)
	}
	return motivations, themes, visas, nil
}

func unmarshalDecisionJSON(d *models.Decision, motivations, themes, visas []byte) error {
	if err := json.Unmarshal(motivations, &d.Motivations); err != nil {
		return fmt.Errorf("failed to unmarshal motivations: %w", err)
	}
	if err := json.Unmarshal(themes, &d.Themes); err != nil {
		return fmt.Errorf("failed to unmarshal themes: %w", err)
	}
	if err := json.Unmarshal(visas, &d.Visas); err != nil {
		return fmt.Errorf("failed to unmarshal visas: %w", err)
	}
	return nil
}

func orEmptyZones(z []models.TextZone) []models.TextZone {
	if z == nil {
		return []models.TextZone{}
	}
	return z
}

func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

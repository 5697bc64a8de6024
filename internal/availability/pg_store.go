package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore persists one row per provider, with the weekly rules and duration
// overrides as JSONB documents.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Get(ctx context.Context, providerID uuid.UUID) (*Template, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT provider_id, days, slot_duration_minutes, modality_durations, updated_at
		FROM availability_templates
		WHERE provider_id = $1
	`, providerID)

	var (
		tpl       Template
		daysJSON  []byte
		oversJSON []byte
	)
	err := row.Scan(&tpl.ProviderID, &daysJSON, &tpl.SlotDurationMinutes, &oversJSON, &tpl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("load template: %w", err)
	}

	if err := json.Unmarshal(daysJSON, &tpl.Days); err != nil {
		return nil, fmt.Errorf("decode weekly rules: %w", err)
	}
	if len(oversJSON) > 0 {
		if err := json.Unmarshal(oversJSON, &tpl.ModalityDurations); err != nil {
			return nil, fmt.Errorf("decode duration overrides: %w", err)
		}
	}
	return &tpl, nil
}

func (s *PgStore) Set(ctx context.Context, tpl *Template) error {
	if err := tpl.Validate(); err != nil {
		return err
	}

	daysJSON, err := json.Marshal(tpl.Days)
	if err != nil {
		return fmt.Errorf("encode weekly rules: %w", err)
	}
	oversJSON, err := json.Marshal(tpl.ModalityDurations)
	if err != nil {
		return fmt.Errorf("encode duration overrides: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO availability_templates (provider_id, days, slot_duration_minutes, modality_durations, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider_id) DO UPDATE
		SET days = EXCLUDED.days,
		    slot_duration_minutes = EXCLUDED.slot_duration_minutes,
		    modality_durations = EXCLUDED.modality_durations,
		    updated_at = EXCLUDED.updated_at
	`, tpl.ProviderID, daysJSON, tpl.SlotDurationMinutes, oversJSON, time.Now())
	if err != nil {
		return fmt.Errorf("store template: %w", err)
	}
	return nil
}

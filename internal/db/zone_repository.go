package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vekshin/warground/internal/model"
)

// ZoneRepository persists the mutable subset of zone state.
type ZoneRepository struct {
	pool *pgxpool.Pool
}

// NewZoneRepository creates a zone repository.
func NewZoneRepository(pool *pgxpool.Pool) *ZoneRepository {
	return &ZoneRepository{pool: pool}
}

// SaveZoneState upserts a zone's mutable state.
func (r *ZoneRepository) SaveZoneState(ctx context.Context, s model.ZoneState) error {
	var lastCapture *time.Time
	if !s.LastCaptureTime.IsZero() {
		lastCapture = &s.LastCaptureTime
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO zone_state
		   (zone_id, controlling_town, capturing_town, last_capture_time, first_bonus_available, color, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT (zone_id) DO UPDATE SET
		   controlling_town = EXCLUDED.controlling_town,
		   capturing_town = EXCLUDED.capturing_town,
		   last_capture_time = EXCLUDED.last_capture_time,
		   first_bonus_available = EXCLUDED.first_bonus_available,
		   color = EXCLUDED.color,
		   updated_at = now()`,
		s.ZoneID, s.ControllingTown, s.CapturingTown, lastCapture, s.FirstCaptureBonusAvailable, s.Color,
	)
	if err != nil {
		return fmt.Errorf("saving zone state %q: %w", s.ZoneID, err)
	}
	return nil
}

// LoadZoneStates reads all persisted zone states, keyed by zone id.
func (r *ZoneRepository) LoadZoneStates(ctx context.Context) (map[string]model.ZoneState, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT zone_id, controlling_town, capturing_town, last_capture_time, first_bonus_available, color
		 FROM zone_state`)
	if err != nil {
		return nil, fmt.Errorf("querying zone states: %w", err)
	}
	defer rows.Close()

	result := make(map[string]model.ZoneState, 16)
	for rows.Next() {
		var s model.ZoneState
		var lastCapture *time.Time
		if err := rows.Scan(&s.ZoneID, &s.ControllingTown, &s.CapturingTown,
			&lastCapture, &s.FirstCaptureBonusAvailable, &s.Color); err != nil {
			return nil, fmt.Errorf("scanning zone state: %w", err)
		}
		if lastCapture != nil {
			s.LastCaptureTime = *lastCapture
		}
		// A live capturing town never survives a restart: no session
		// outlives the process.
		s.CapturingTown = ""
		result[s.ZoneID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading zone states: %w", err)
	}
	return result, nil
}

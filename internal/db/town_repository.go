package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vekshin/warground/internal/town"
)

// TownRepository persists towns and their members. The live directory
// is loaded into memory at startup; writes go through this repository
// and the in-memory copy together.
type TownRepository struct {
	pool *pgxpool.Pool
}

// NewTownRepository creates a town repository.
func NewTownRepository(pool *pgxpool.Pool) *TownRepository {
	return &TownRepository{pool: pool}
}

// LoadDirectory reads all towns and memberships into an in-memory
// directory.
func (r *TownRepository) LoadDirectory(ctx context.Context) (*town.Memory, error) {
	dir := town.NewMemory()

	rows, err := r.pool.Query(ctx, `SELECT name FROM towns`)
	if err != nil {
		return nil, fmt.Errorf("querying towns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning town: %w", err)
		}
		dir.AddTown(name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading towns: %w", err)
	}

	members, err := r.pool.Query(ctx, `SELECT actor_id, town_name FROM town_members`)
	if err != nil {
		return nil, fmt.Errorf("querying town members: %w", err)
	}
	defer members.Close()
	for members.Next() {
		var actorID, townName string
		if err := members.Scan(&actorID, &townName); err != nil {
			return nil, fmt.Errorf("scanning town member: %w", err)
		}
		dir.SetMember(actorID, townName)
	}
	if err := members.Err(); err != nil {
		return nil, fmt.Errorf("reading town members: %w", err)
	}
	return dir, nil
}

// CreateTown inserts a town if it does not exist.
func (r *TownRepository) CreateTown(ctx context.Context, name string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO towns (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("creating town %q: %w", name, err)
	}
	return nil
}

// SetMember upserts an actor's town membership. An empty town removes it.
func (r *TownRepository) SetMember(ctx context.Context, actorID, townName string) error {
	if townName == "" {
		_, err := r.pool.Exec(ctx, `DELETE FROM town_members WHERE actor_id = $1`, actorID)
		if err != nil {
			return fmt.Errorf("removing town membership of %q: %w", actorID, err)
		}
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO town_members (actor_id, town_name) VALUES ($1, $2)
		 ON CONFLICT (actor_id) DO UPDATE SET town_name = EXCLUDED.town_name`,
		actorID, townName)
	if err != nil {
		return fmt.Errorf("setting town membership of %q: %w", actorID, err)
	}
	return nil
}

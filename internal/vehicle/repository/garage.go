package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/motorlog/motorlog-backend/pkg/database"
	"github.com/motorlog/motorlog-backend/pkg/errors"
)

// Garage represents a location vehicles are kept or serviced at.
type Garage struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Address   *string    `db:"address" json:"address,omitempty"`
	City      *string    `db:"city" json:"city,omitempty"`
	State     *string    `db:"state" json:"state,omitempty"`
	ZipCode   *string    `db:"zip_code" json:"zip_code,omitempty"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	Notes     *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

const garageColumns = `id, name, address, city, state, zip_code, phone, notes, created_at, updated_at`

// GarageRepository handles garage persistence
type GarageRepository struct {
	db *database.DB
}

// NewGarageRepository creates a new garage repository
func NewGarageRepository(db *database.DB) *GarageRepository {
	return &GarageRepository{db: db}
}

// Create creates a new garage
func (r *GarageRepository) Create(ctx context.Context, g *Garage) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}

	query := `
		INSERT INTO garages (id, name, address, city, state, zip_code, phone, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		g.ID, g.Name, g.Address, g.City, g.State, g.ZipCode, g.Phone, g.Notes,
	).Scan(&g.CreatedAt, &g.UpdatedAt)

	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a garage by ID
func (r *GarageRepository) GetByID(ctx context.Context, id string) (*Garage, error) {
	var g Garage

	query := `
		SELECT ` + garageColumns + `
		FROM garages
		WHERE id = $1 AND deleted_at IS NULL
	`

	err := r.db.GetContext(ctx, &g, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("garage")
	}
	if err != nil {
		return nil, err
	}

	return &g, nil
}

// List lists all garages
func (r *GarageRepository) List(ctx context.Context) ([]*Garage, error) {
	query := `
		SELECT ` + garageColumns + `
		FROM garages
		WHERE deleted_at IS NULL
		ORDER BY name
	`

	var garages []*Garage
	if err := r.db.SelectContext(ctx, &garages, query); err != nil {
		return nil, err
	}

	return garages, nil
}

// Update updates a garage
func (r *GarageRepository) Update(ctx context.Context, g *Garage) error {
	query := `
		UPDATE garages SET
			name = $2, address = $3, city = $4, state = $5,
			zip_code = $6, phone = $7, notes = $8, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		g.ID, g.Name, g.Address, g.City, g.State, g.ZipCode, g.Phone, g.Notes,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("garage")
	}

	return nil
}

// SoftDelete soft deletes a garage and detaches its vehicles. Both writes
// run in one transaction so a vehicle never points at a deleted garage.
func (r *GarageRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		detach := `UPDATE vehicles SET garage_id = NULL, updated_at = NOW() WHERE garage_id = $1`
		if _, err := tx.ExecContext(ctx, detach, id); err != nil {
			return err
		}

		query := `UPDATE garages SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
		result, err := tx.ExecContext(ctx, query, id)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("garage")
		}

		return nil
	})
}

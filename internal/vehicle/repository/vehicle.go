package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/motorlog/motorlog-backend/pkg/database"
	"github.com/motorlog/motorlog-backend/pkg/errors"
)

// Vehicle represents a vehicle in a user's garage.
// DB and JSON field names match the database schema.
type Vehicle struct {
	ID       string  `db:"id" json:"id"`
	GarageID *string `db:"garage_id" json:"garage_id,omitempty"`
	Name     string  `db:"name" json:"name"`

	// Identity
	VIN          *string `db:"vin" json:"vin,omitempty"`
	LicensePlate *string `db:"license_plate" json:"license_plate,omitempty"`
	PlateState   *string `db:"plate_state" json:"plate_state,omitempty"`

	// Decoded specification
	Make     *string `db:"make" json:"make,omitempty"`
	Model    *string `db:"model" json:"model,omitempty"`
	Trim     *string `db:"trim" json:"trim,omitempty"`
	Year     *int    `db:"year" json:"year,omitempty"`
	BodyType *string `db:"body_type" json:"body_type,omitempty"`

	// Mileage
	OdometerMiles   *int64  `db:"odometer_miles" json:"odometer_miles,omitempty"`
	MileageCategory *string `db:"mileage_category" json:"mileage_category,omitempty"`

	Notes     *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

const vehicleColumns = `id, garage_id, name, vin, license_plate, plate_state,
	       make, model, trim, year, body_type,
	       odometer_miles, mileage_category, notes,
	       created_at, updated_at`

// VehicleRepository handles vehicle persistence
type VehicleRepository struct {
	db *database.DB
}

// NewVehicleRepository creates a new vehicle repository
func NewVehicleRepository(db *database.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// Create creates a new vehicle
func (r *VehicleRepository) Create(ctx context.Context, v *Vehicle) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}

	query := `
		INSERT INTO vehicles (
			id, garage_id, name, vin, license_plate, plate_state,
			make, model, trim, year, body_type,
			odometer_miles, mileage_category, notes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		) RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		v.ID, v.GarageID, v.Name, v.VIN, v.LicensePlate, v.PlateState,
		v.Make, v.Model, v.Trim, v.Year, v.BodyType,
		v.OdometerMiles, v.MileageCategory, v.Notes,
	).Scan(&v.CreatedAt, &v.UpdatedAt)

	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a vehicle by ID
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*Vehicle, error) {
	var v Vehicle

	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE id = $1 AND deleted_at IS NULL
	`

	err := r.db.GetContext(ctx, &v, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("vehicle")
	}
	if err != nil {
		return nil, err
	}

	return &v, nil
}

// GetByVIN gets a vehicle by its attached VIN
func (r *VehicleRepository) GetByVIN(ctx context.Context, vin string) (*Vehicle, error) {
	var v Vehicle

	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE vin = $1 AND deleted_at IS NULL
	`

	err := r.db.GetContext(ctx, &v, query, vin)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("vehicle")
	}
	if err != nil {
		return nil, err
	}

	return &v, nil
}

// List lists vehicles with pagination
func (r *VehicleRepository) List(ctx context.Context, page, perPage int) ([]*Vehicle, int64, error) {
	var total int64

	countQuery := `SELECT COUNT(*) FROM vehicles WHERE deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE deleted_at IS NULL
		ORDER BY name
		LIMIT $1 OFFSET $2
	`

	var vehicles []*Vehicle
	if err := r.db.SelectContext(ctx, &vehicles, query, perPage, offset); err != nil {
		return nil, 0, err
	}

	return vehicles, total, nil
}

// Update updates a vehicle's editable fields
func (r *VehicleRepository) Update(ctx context.Context, v *Vehicle) error {
	query := `
		UPDATE vehicles SET
			garage_id = $2, name = $3, license_plate = $4, plate_state = $5,
			notes = $6, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		v.ID, v.GarageID, v.Name, v.LicensePlate, v.PlateState, v.Notes,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("vehicle")
	}

	return nil
}

// AttachVIN attaches a VIN and its decoded specification to a vehicle.
// The decoded fields overwrite any previous specification.
func (r *VehicleRepository) AttachVIN(ctx context.Context, id, vin string, make_, model, trim, bodyType *string, year *int) error {
	query := `
		UPDATE vehicles SET
			vin = $2, make = $3, model = $4, trim = $5, year = $6, body_type = $7,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, vin, make_, model, trim, year, bodyType)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("vehicle")
	}

	return nil
}

// UpdateOdometer sets a vehicle's odometer reading and mileage category.
func (r *VehicleRepository) UpdateOdometer(ctx context.Context, id string, miles int64, category string) error {
	query := `
		UPDATE vehicles SET
			odometer_miles = $2, mileage_category = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, miles, category)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("vehicle")
	}

	return nil
}

// SoftDelete soft deletes a vehicle
func (r *VehicleRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE vehicles SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("vehicle")
	}

	return nil
}

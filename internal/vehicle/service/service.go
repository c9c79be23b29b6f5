package service

import (
	"context"
	"fmt"
	"strings"

	docdomain "github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/vindecode"
	"github.com/motorlog/motorlog-backend/internal/vehicle/repository"
	"github.com/motorlog/motorlog-backend/pkg/errors"
	"github.com/motorlog/motorlog-backend/pkg/logger"
)

// Odometer update sources.
const (
	SourceManual          = "manual"
	SourceDocumentCapture = "document-capture"
)

// Decoder looks up vehicle specifications for a VIN. Satisfied by
// *vindecode.Client; nil disables spec lookup on VIN attach.
type Decoder interface {
	Decode(ctx context.Context, vin string) (*vindecode.VehicleSpec, error)
}

// EventPublisher publishes vehicle lifecycle events. Satisfied by
// *events.VehicleEventPublisher; nil disables publishing.
type EventPublisher interface {
	PublishVehicleCreated(ctx context.Context, v *repository.Vehicle)
	PublishVehicleUpdated(ctx context.Context, v *repository.Vehicle)
	PublishVehicleDeleted(ctx context.Context, vehicleID string)
	PublishVINAttached(ctx context.Context, v *repository.Vehicle)
	PublishOdometerUpdated(ctx context.Context, vehicleID string, miles int64, source string)
	PublishGarageCreated(ctx context.Context, g *repository.Garage)
	PublishGarageDeleted(ctx context.Context, garageID string)
}

// VehicleService implements garage and vehicle management.
type VehicleService struct {
	vehicles *repository.VehicleRepository
	garages  *repository.GarageRepository
	decoder  Decoder
	events   EventPublisher
	log      *logger.Logger
}

// NewVehicleService creates a new vehicle service
func NewVehicleService(vehicles *repository.VehicleRepository, garages *repository.GarageRepository, decoder Decoder, events EventPublisher, log *logger.Logger) *VehicleService {
	return &VehicleService{
		vehicles: vehicles,
		garages:  garages,
		decoder:  decoder,
		events:   events,
		log:      log,
	}
}

// CreateVehicle creates a vehicle. A VIN supplied at creation is
// normalized but not decoded; use AttachVIN for the decoded flow.
func (s *VehicleService) CreateVehicle(ctx context.Context, v *repository.Vehicle) error {
	if v.VIN != nil {
		vin := normalizeVIN(*v.VIN)
		if err := checkVIN(vin); err != nil {
			return err
		}
		v.VIN = &vin
	}

	if err := s.vehicles.Create(ctx, v); err != nil {
		return err
	}

	if s.events != nil {
		s.events.PublishVehicleCreated(ctx, v)
	}
	s.log.Info().Str("vehicle_id", v.ID).Str("name", v.Name).Msg("vehicle created")
	return nil
}

// GetVehicle retrieves a vehicle by ID
func (s *VehicleService) GetVehicle(ctx context.Context, id string) (*repository.Vehicle, error) {
	return s.vehicles.GetByID(ctx, id)
}

// ListVehicles lists vehicles with pagination
func (s *VehicleService) ListVehicles(ctx context.Context, page, perPage int) ([]*repository.Vehicle, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.vehicles.List(ctx, page, perPage)
}

// UpdateVehicle updates a vehicle's editable fields
func (s *VehicleService) UpdateVehicle(ctx context.Context, v *repository.Vehicle) error {
	if err := s.vehicles.Update(ctx, v); err != nil {
		return err
	}

	if s.events != nil {
		s.events.PublishVehicleUpdated(ctx, v)
	}
	return nil
}

// DeleteVehicle soft deletes a vehicle
func (s *VehicleService) DeleteVehicle(ctx context.Context, id string) error {
	if err := s.vehicles.SoftDelete(ctx, id); err != nil {
		return err
	}

	if s.events != nil {
		s.events.PublishVehicleDeleted(ctx, id)
	}
	s.log.Info().Str("vehicle_id", id).Msg("vehicle deleted")
	return nil
}

// AttachVIN attaches a VIN to a vehicle, decoding it into make, model,
// and year when a decoder is available. A failed decode still attaches
// the VIN; the specification can be filled in later.
func (s *VehicleService) AttachVIN(ctx context.Context, id, vin string) (*repository.Vehicle, error) {
	vin = normalizeVIN(vin)
	if err := checkVIN(vin); err != nil {
		return nil, err
	}

	var make_, model, trim, bodyType *string
	var year *int

	if s.decoder != nil {
		spec, err := s.decoder.Decode(ctx, vin)
		if err != nil {
			s.log.Warn().Err(err).Str("vehicle_id", id).Msg("VIN decode failed, attaching without specification")
		} else {
			make_ = strPtr(spec.Make)
			model = strPtr(spec.Model)
			trim = strPtr(spec.Trim)
			bodyType = strPtr(spec.BodyType)
			if spec.Year > 0 {
				year = &spec.Year
			}
		}
	}

	if err := s.vehicles.AttachVIN(ctx, id, vin, make_, model, trim, bodyType, year); err != nil {
		return nil, err
	}

	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.PublishVINAttached(ctx, v)
	}
	s.log.Info().Str("vehicle_id", id).Str("vin", vin).Msg("VIN attached")
	return v, nil
}

// UpdateOdometer sets a vehicle's odometer reading in miles. A reading
// below the stored one is rejected for manual updates; captures win
// because the photo is ground truth.
func (s *VehicleService) UpdateOdometer(ctx context.Context, id string, miles int64, source string) error {
	if miles < 0 {
		return errors.Validation(map[string]string{"miles": "must not be negative"})
	}

	if source == SourceManual {
		current, err := s.vehicles.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.OdometerMiles != nil && miles < *current.OdometerMiles {
			return errors.BadRequest(fmt.Sprintf(
				"odometer reading %d is below the recorded %d", miles, *current.OdometerMiles))
		}
	}

	category := docdomain.MileageCategoryForMiles(miles)
	if err := s.vehicles.UpdateOdometer(ctx, id, miles, category); err != nil {
		return err
	}

	if s.events != nil {
		s.events.PublishOdometerUpdated(ctx, id, miles, source)
	}
	s.log.Info().
		Str("vehicle_id", id).
		Int64("miles", miles).
		Str("source", source).
		Msg("odometer updated")
	return nil
}

// CreateGarage creates a garage
func (s *VehicleService) CreateGarage(ctx context.Context, g *repository.Garage) error {
	if err := s.garages.Create(ctx, g); err != nil {
		return err
	}

	if s.events != nil {
		s.events.PublishGarageCreated(ctx, g)
	}
	return nil
}

// GetGarage retrieves a garage by ID
func (s *VehicleService) GetGarage(ctx context.Context, id string) (*repository.Garage, error) {
	return s.garages.GetByID(ctx, id)
}

// ListGarages lists all garages
func (s *VehicleService) ListGarages(ctx context.Context) ([]*repository.Garage, error) {
	return s.garages.List(ctx)
}

// UpdateGarage updates a garage
func (s *VehicleService) UpdateGarage(ctx context.Context, g *repository.Garage) error {
	return s.garages.Update(ctx, g)
}

// DeleteGarage soft deletes a garage
func (s *VehicleService) DeleteGarage(ctx context.Context, id string) error {
	if err := s.garages.SoftDelete(ctx, id); err != nil {
		return err
	}

	if s.events != nil {
		s.events.PublishGarageDeleted(ctx, id)
	}
	return nil
}

func normalizeVIN(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// checkVIN enforces the structural VIN rules before the database
// constraints get a chance to reject the row.
func checkVIN(vin string) error {
	if len(vin) != 17 {
		return errors.Validation(map[string]string{"vin": "must be exactly 17 characters"})
	}
	for i := 0; i < len(vin); i++ {
		c := vin[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z' && c != 'I' && c != 'O' && c != 'Q':
		default:
			return errors.Validation(map[string]string{"vin": "contains invalid characters"})
		}
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

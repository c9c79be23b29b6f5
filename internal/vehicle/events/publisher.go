package events

import (
	"context"

	"github.com/motorlog/motorlog-backend/internal/vehicle/repository"
	"github.com/motorlog/motorlog-backend/pkg/logger"
	"github.com/motorlog/motorlog-backend/pkg/messaging"
)

// VehicleEventPublisher publishes vehicle and garage events
type VehicleEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewVehicleEventPublisher creates a new vehicle event publisher
func NewVehicleEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*VehicleEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeVehicleEvents, "vehicle-service", log)
	if err != nil {
		return nil, err
	}

	return &VehicleEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishVehicleCreated publishes a vehicle created event
func (p *VehicleEventPublisher) PublishVehicleCreated(ctx context.Context, v *repository.Vehicle) {
	data := messaging.VehicleCreatedEvent{
		VehicleID: v.ID,
		Name:      v.Name,
	}
	if v.VIN != nil {
		data.VIN = *v.VIN
	}

	if err := p.publisher.Publish(ctx, messaging.EventVehicleCreated, data); err != nil {
		p.logger.Error().Err(err).Str("vehicle_id", v.ID).Msg("failed to publish vehicle created event")
	}
}

// PublishVehicleUpdated publishes a vehicle updated event
func (p *VehicleEventPublisher) PublishVehicleUpdated(ctx context.Context, v *repository.Vehicle) {
	data := messaging.VehicleUpdatedEvent{
		VehicleID: v.ID,
		Fields:    map[string]any{"name": v.Name},
	}

	if err := p.publisher.Publish(ctx, messaging.EventVehicleUpdated, data); err != nil {
		p.logger.Error().Err(err).Str("vehicle_id", v.ID).Msg("failed to publish vehicle updated event")
	}
}

// PublishVehicleDeleted publishes a vehicle deleted event
func (p *VehicleEventPublisher) PublishVehicleDeleted(ctx context.Context, vehicleID string) {
	data := messaging.VehicleDeletedEvent{
		VehicleID: vehicleID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventVehicleDeleted, data); err != nil {
		p.logger.Error().Err(err).Str("vehicle_id", vehicleID).Msg("failed to publish vehicle deleted event")
	}
}

// PublishVINAttached publishes a VIN attached event
func (p *VehicleEventPublisher) PublishVINAttached(ctx context.Context, v *repository.Vehicle) {
	data := messaging.VehicleVINAttachedEvent{
		VehicleID: v.ID,
	}
	if v.VIN != nil {
		data.VIN = *v.VIN
	}
	if v.Make != nil {
		data.Make = *v.Make
	}
	if v.Model != nil {
		data.Model = *v.Model
	}
	if v.Year != nil {
		data.Year = *v.Year
	}

	if err := p.publisher.Publish(ctx, messaging.EventVehicleVINAttached, data); err != nil {
		p.logger.Error().Err(err).Str("vehicle_id", v.ID).Msg("failed to publish vin attached event")
	}
}

// PublishOdometerUpdated publishes an odometer updated event
func (p *VehicleEventPublisher) PublishOdometerUpdated(ctx context.Context, vehicleID string, miles int64, source string) {
	data := messaging.VehicleOdometerUpdatedEvent{
		VehicleID: vehicleID,
		Miles:     miles,
		Source:    source,
	}

	if err := p.publisher.Publish(ctx, messaging.EventVehicleOdometerUpdated, data); err != nil {
		p.logger.Error().Err(err).Str("vehicle_id", vehicleID).Msg("failed to publish odometer updated event")
	}
}

// PublishGarageCreated publishes a garage created event
func (p *VehicleEventPublisher) PublishGarageCreated(ctx context.Context, g *repository.Garage) {
	data := messaging.GarageCreatedEvent{
		GarageID: g.ID,
		Name:     g.Name,
	}

	if err := p.publisher.Publish(ctx, messaging.EventGarageCreated, data); err != nil {
		p.logger.Error().Err(err).Str("garage_id", g.ID).Msg("failed to publish garage created event")
	}
}

// PublishGarageDeleted publishes a garage deleted event
func (p *VehicleEventPublisher) PublishGarageDeleted(ctx context.Context, garageID string) {
	data := messaging.GarageDeletedEvent{
		GarageID: garageID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventGarageDeleted, data); err != nil {
		p.logger.Error().Err(err).Str("garage_id", garageID).Msg("failed to publish garage deleted event")
	}
}

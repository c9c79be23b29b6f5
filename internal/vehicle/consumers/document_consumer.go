package consumers

import (
	"context"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
	"github.com/motorlog/motorlog-backend/internal/vehicle/service"
	"github.com/motorlog/motorlog-backend/pkg/logger"
	"github.com/motorlog/motorlog-backend/pkg/messaging"
)

// DocumentEventConsumer consumes document capture events and applies
// vehicle-affecting captures (VIN, odometer) to the vehicle record.
type DocumentEventConsumer struct {
	consumer       *messaging.Consumer
	vehicleService *service.VehicleService
	logger         *logger.Logger
}

// NewDocumentEventConsumer creates a new document event consumer
func NewDocumentEventConsumer(
	rmq *messaging.RabbitMQ,
	vehicleService *service.VehicleService,
	log *logger.Logger,
) (*DocumentEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "vehicle-service.document-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeDocumentEvents, "document.#"); err != nil {
		return nil, err
	}

	c := &DocumentEventConsumer{
		consumer:       consumer,
		vehicleService: vehicleService,
		logger:         log,
	}

	consumer.RegisterHandler(messaging.EventDocumentCaptured, c.handleDocumentCaptured)

	return c, nil
}

// Start starts consuming messages
func (c *DocumentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *DocumentEventConsumer) handleDocumentCaptured(ctx context.Context, event *messaging.Event) error {
	var data messaging.DocumentCapturedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("capture_id", data.CaptureID).
		Str("kind", data.Kind).
		Bool("valid", data.Valid).
		Msg("received document captured event")

	// Only valid captures addressed to a vehicle mutate anything.
	if !data.Valid || data.VehicleID == nil {
		return nil
	}
	vehicleID := *data.VehicleID

	switch domain.DocumentKind(data.Kind) {
	case domain.KindVIN:
		return c.applyVIN(ctx, vehicleID, &data)
	case domain.KindOdometer:
		return c.applyOdometer(ctx, vehicleID, &data)
	}

	return nil
}

func (c *DocumentEventConsumer) applyVIN(ctx context.Context, vehicleID string, data *messaging.DocumentCapturedEvent) error {
	if data.VIN == "" {
		return nil
	}

	if _, err := c.vehicleService.AttachVIN(ctx, vehicleID, data.VIN); err != nil {
		// The capture remains retrievable; don't requeue on a vehicle
		// that no longer exists or a VIN that fails validation.
		c.logger.Warn().
			Err(err).
			Str("capture_id", data.CaptureID).
			Str("vehicle_id", vehicleID).
			Msg("failed to attach captured VIN")
		return nil
	}

	return nil
}

func (c *DocumentEventConsumer) applyOdometer(ctx context.Context, vehicleID string, data *messaging.DocumentCapturedEvent) error {
	if data.OdometerMiles <= 0 {
		return nil
	}

	err := c.vehicleService.UpdateOdometer(ctx, vehicleID, data.OdometerMiles, service.SourceDocumentCapture)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("capture_id", data.CaptureID).
			Str("vehicle_id", vehicleID).
			Msg("failed to apply captured odometer reading")
		return nil
	}

	return nil
}

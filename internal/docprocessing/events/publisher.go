package events

import (
	"context"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
	"github.com/motorlog/motorlog-backend/pkg/logger"
	"github.com/motorlog/motorlog-backend/pkg/messaging"
)

// DocumentEventPublisher publishes document capture events
type DocumentEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewDocumentEventPublisher creates a new document event publisher
func NewDocumentEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*DocumentEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeDocumentEvents, "document-service", log)
	if err != nil {
		return nil, err
	}

	return &DocumentEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishDocumentCaptured publishes a document captured event. Kind-specific
// highlights (VIN, odometer miles) let consumers react without decoding the
// full record.
func (p *DocumentEventPublisher) PublishDocumentCaptured(ctx context.Context, capture *domain.Capture, userID string) {
	data := messaging.DocumentCapturedEvent{
		CaptureID: capture.ID,
		Kind:      string(capture.DocumentKind),
		VehicleID: capture.VehicleID,
		UserID:    userID,
		Summary:   capture.Summary,
	}
	if capture.Validation != nil {
		data.Valid = capture.Validation.Valid
		data.Warnings = capture.Validation.Warnings
	}

	switch rec := capture.Record.(type) {
	case *domain.VINRecord:
		data.VIN = rec.VIN
	case *domain.OdometerRecord:
		data.OdometerMiles = rec.EstimatedMiles
		data.MileageCategory = rec.MileageCategory
	}

	if err := p.publisher.Publish(ctx, messaging.EventDocumentCaptured, data); err != nil {
		p.logger.Error().Err(err).Str("capture_id", capture.ID).Msg("failed to publish document captured event")
	}
}

// PublishCaptureFailed publishes a capture failed event
func (p *DocumentEventPublisher) PublishCaptureFailed(ctx context.Context, captureID string, kind domain.DocumentKind, reason string) {
	data := messaging.DocumentCaptureFailedEvent{
		CaptureID: captureID,
		Kind:      string(kind),
		Reason:    reason,
	}

	if err := p.publisher.Publish(ctx, messaging.EventDocumentCaptureFailed, data); err != nil {
		p.logger.Error().Err(err).Str("capture_id", captureID).Msg("failed to publish capture failed event")
	}
}

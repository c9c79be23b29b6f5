package service

import (
	"context"
	"errors"
	"time"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/processor"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/repository"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/storage"
	"github.com/motorlog/motorlog-backend/pkg/logger"
)

// VisionClient sends a document image for analysis and returns raw model
// output. Satisfied by *vision.Client.
type VisionClient interface {
	Analyze(ctx context.Context, imageData []byte, meta domain.Metadata, kind domain.DocumentKind) (string, error)
}

// EventPublisher publishes capture lifecycle events. Satisfied by
// *events.DocumentEventPublisher; nil disables publishing.
type EventPublisher interface {
	PublishDocumentCaptured(ctx context.Context, capture *domain.Capture, userID string)
	PublishCaptureFailed(ctx context.Context, captureID string, kind domain.DocumentKind, reason string)
}

// AuditWriter persists capture audit rows. Satisfied by
// *repository.AuditRepository; nil disables auditing.
type AuditWriter interface {
	Insert(ctx context.Context, entry *repository.AuditEntry) error
}

// Service orchestrates the capture pipeline: vision analysis, then
// extract, validate, enrich, and format through the kind's processor.
type Service struct {
	registry *processor.Registry
	vision   VisionClient
	store    *storage.CaptureStore
	audit    AuditWriter
	events   EventPublisher
	log      *logger.Logger
}

// NewService creates a document capture service.
func NewService(registry *processor.Registry, vision VisionClient, store *storage.CaptureStore, audit AuditWriter, events EventPublisher, log *logger.Logger) *Service {
	return &Service{
		registry: registry,
		vision:   vision,
		store:    store,
		audit:    audit,
		events:   events,
		log:      log,
	}
}

// CaptureImage runs the full pipeline on a document image. The image is
// held in memory only and zeroed as soon as the vision call returns.
func (s *Service) CaptureImage(ctx context.Context, imageData []byte, kind domain.DocumentKind, vehicleID *string, userID string) (*domain.Capture, error) {
	proc, err := s.registry.Resolve(kind)
	if err != nil {
		storage.ZeroBytes(imageData)
		return nil, err
	}

	captureID := storage.GenerateCaptureID()
	started := time.Now()

	s.log.Info().
		Str("capture_id", captureID).
		Str("kind", string(kind)).
		Int("image_bytes", len(imageData)).
		Msg("starting document capture")

	raw, visionErr := s.vision.Analyze(ctx, imageData, proc.Metadata(), kind)

	// Image data is never needed past this point.
	storage.ZeroBytes(imageData)
	imageDeletedAt := time.Now()

	if visionErr != nil {
		capture := s.failCapture(ctx, captureID, kind, vehicleID, started, &imageDeletedAt, visionErr)
		return capture, visionErr
	}

	return s.runPipeline(ctx, proc, captureID, raw, kind, vehicleID, userID, started, &imageDeletedAt)
}

// ProcessText runs the pipeline on raw text, bypassing the vision call.
// This serves callers that already hold OCR output or structured payloads.
func (s *Service) ProcessText(ctx context.Context, raw string, kind domain.DocumentKind, vehicleID *string, userID string) (*domain.Capture, error) {
	proc, err := s.registry.Resolve(kind)
	if err != nil {
		return nil, err
	}

	captureID := storage.GenerateCaptureID()
	return s.runPipeline(ctx, proc, captureID, raw, kind, vehicleID, userID, time.Now(), nil)
}

func (s *Service) runPipeline(ctx context.Context, proc processor.Processor, captureID, raw string, kind domain.DocumentKind, vehicleID *string, userID string, started time.Time, imageDeletedAt *time.Time) (*domain.Capture, error) {
	rec, err := proc.Extract(raw)
	if err != nil {
		capture := s.failCapture(ctx, captureID, kind, vehicleID, started, imageDeletedAt, err)
		return capture, err
	}

	validation := proc.Validate(rec)
	if validation.Valid {
		rec = proc.Enrich(ctx, rec)
	}

	capture := &domain.Capture{
		ID:               captureID,
		DocumentKind:     kind,
		VehicleID:        vehicleID,
		Status:           domain.StatusCompleted,
		Record:           rec,
		Validation:       validation,
		Summary:          proc.Format(rec),
		ProcessingTimeMs: time.Since(started).Milliseconds(),
		CreatedAt:        started,
	}
	s.store.Store(capture)

	if s.events != nil {
		s.events.PublishDocumentCaptured(ctx, capture, userID)
	}
	s.writeAudit(capture, userID, imageDeletedAt)

	s.log.Info().
		Str("capture_id", captureID).
		Str("kind", string(kind)).
		Bool("valid", validation.Valid).
		Int("warnings", len(validation.Warnings)).
		Int64("duration_ms", capture.ProcessingTimeMs).
		Msg("document capture completed")

	return capture, nil
}

// failCapture records a failed capture so the caller can still retrieve
// the failure by ID, and reports it downstream.
func (s *Service) failCapture(ctx context.Context, captureID string, kind domain.DocumentKind, vehicleID *string, started time.Time, imageDeletedAt *time.Time, cause error) *domain.Capture {
	capture := &domain.Capture{
		ID:               captureID,
		DocumentKind:     kind,
		VehicleID:        vehicleID,
		Status:           domain.StatusFailed,
		Error:            cause.Error(),
		ProcessingTimeMs: time.Since(started).Milliseconds(),
		CreatedAt:        started,
	}
	s.store.Store(capture)

	if s.events != nil {
		s.events.PublishCaptureFailed(ctx, captureID, kind, cause.Error())
	}
	s.writeAudit(capture, "", imageDeletedAt)

	s.log.Warn().Err(cause).
		Str("capture_id", captureID).
		Str("kind", string(kind)).
		Msg("document capture failed")

	return capture
}

// GetCapture retrieves a stored capture by ID.
func (s *Service) GetCapture(captureID string) *domain.Capture {
	return s.store.Get(captureID)
}

// KindInfo describes one registered document kind for discovery.
type KindInfo struct {
	Kind        domain.DocumentKind `json:"kind"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Version     string              `json:"version"`
}

// Kinds lists the registered document kinds with their metadata.
func (s *Service) Kinds() []KindInfo {
	kinds := s.registry.Kinds()
	infos := make([]KindInfo, 0, len(kinds))
	for _, kind := range kinds {
		proc, err := s.registry.Resolve(kind)
		if err != nil {
			continue
		}
		meta := proc.Metadata()
		infos = append(infos, KindInfo{
			Kind:        kind,
			Name:        meta.Name,
			Description: meta.Description,
			Version:     s.registry.Version(kind),
		})
	}
	return infos
}

// writeAudit records the capture in the audit table without blocking the
// request path.
func (s *Service) writeAudit(capture *domain.Capture, userID string, imageDeletedAt *time.Time) {
	if s.audit == nil {
		return
	}

	entry := &repository.AuditEntry{
		CaptureID:            capture.ID,
		Kind:                 string(capture.DocumentKind),
		Summary:              capture.Summary,
		ProcessingDurationMs: capture.ProcessingTimeMs,
		ImageDeletedAt:       imageDeletedAt,
	}
	if userID != "" {
		entry.CapturedBy = &userID
	}
	if capture.Validation != nil {
		entry.Valid = capture.Validation.Valid
		entry.ErrorCount = len(capture.Validation.Errors)
		entry.WarningCount = len(capture.Validation.Warnings)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audit.Insert(ctx, entry); err != nil {
			s.log.Error().Err(err).Str("capture_id", capture.ID).Msg("failed to write capture audit")
		}
	}()
}

// IsExtractionFailure reports whether err is one of the hard extraction
// failure modes, as opposed to an upstream or registry fault.
func IsExtractionFailure(err error) bool {
	var extErr *domain.ExtractionError
	return errors.As(err, &extErr) || errors.Is(err, domain.ErrNoDocument)
}

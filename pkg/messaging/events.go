package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Document capture events
	EventDocumentCaptured         = "document.captured"
	EventDocumentCaptureFailed    = "document.capture.failed"
	EventDocumentCaptureConfirmed = "document.capture.confirmed"

	// Vehicle events
	EventVehicleCreated         = "vehicle.created"
	EventVehicleUpdated         = "vehicle.updated"
	EventVehicleDeleted         = "vehicle.deleted"
	EventVehicleVINAttached     = "vehicle.vin.attached"
	EventVehicleOdometerUpdated = "vehicle.odometer.updated"

	// Garage events
	EventGarageCreated = "garage.created"
	EventGarageUpdated = "garage.updated"
	EventGarageDeleted = "garage.deleted"
)

// Exchange names
const (
	ExchangeDocumentEvents = "document.events"
	ExchangeVehicleEvents  = "vehicle.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.New().String()
}

// Document capture events

// DocumentCapturedEvent is published when a document capture completes the
// extraction pipeline, whether or not validation passed.
type DocumentCapturedEvent struct {
	CaptureID string   `json:"capture_id"`
	Kind      string   `json:"kind"`
	VehicleID *string  `json:"vehicle_id,omitempty"`
	UserID    string   `json:"user_id,omitempty"`
	Valid     bool     `json:"valid"`
	Warnings  []string `json:"warnings,omitempty"`
	Summary   string   `json:"summary"`

	// Kind-specific payload highlights used by downstream consumers.
	VIN             string `json:"vin,omitempty"`
	OdometerMiles   int64  `json:"odometer_miles,omitempty"`
	MileageCategory string `json:"mileage_category,omitempty"`
}

// DocumentCaptureFailedEvent is published when extraction finds nothing usable.
type DocumentCaptureFailedEvent struct {
	CaptureID string `json:"capture_id"`
	Kind      string `json:"kind"`
	Reason    string `json:"reason"`
}

// Vehicle events

// VehicleCreatedEvent is published when a vehicle is created
type VehicleCreatedEvent struct {
	VehicleID string `json:"vehicle_id"`
	Name      string `json:"name"`
	VIN       string `json:"vin,omitempty"`
}

// VehicleUpdatedEvent is published when a vehicle is updated
type VehicleUpdatedEvent struct {
	VehicleID string         `json:"vehicle_id"`
	Fields    map[string]any `json:"fields"`
}

// VehicleDeletedEvent is published when a vehicle is deleted
type VehicleDeletedEvent struct {
	VehicleID string `json:"vehicle_id"`
}

// VehicleVINAttachedEvent is published when a decoded VIN capture is attached
// to a vehicle record.
type VehicleVINAttachedEvent struct {
	VehicleID string `json:"vehicle_id"`
	VIN       string `json:"vin"`
	Make      string `json:"make,omitempty"`
	Model     string `json:"model,omitempty"`
	Year      int    `json:"year,omitempty"`
}

// VehicleOdometerUpdatedEvent is published when a vehicle's odometer reading changes
type VehicleOdometerUpdatedEvent struct {
	VehicleID string `json:"vehicle_id"`
	Miles     int64  `json:"miles"`
	Source    string `json:"source"` // manual, document-capture
}

// Garage events

// GarageCreatedEvent is published when a garage is created
type GarageCreatedEvent struct {
	GarageID string `json:"garage_id"`
	Name     string `json:"name"`
}

// GarageDeletedEvent is published when a garage is deleted
type GarageDeletedEvent struct {
	GarageID string `json:"garage_id"`
}

package domain

import "time"

// DocumentKind identifies one of the supported capture categories.
// It is the registry lookup key.
type DocumentKind string

const (
	KindVIN            DocumentKind = "vin"
	KindLicensePlate   DocumentKind = "license-plate"
	KindDriversLicense DocumentKind = "drivers-license"
	KindInsurance      DocumentKind = "insurance"
	KindOdometer       DocumentKind = "odometer"
)

// AllKinds returns every supported document kind in display order.
func AllKinds() []DocumentKind {
	return []DocumentKind{
		KindVIN,
		KindLicensePlate,
		KindDriversLicense,
		KindInsurance,
		KindOdometer,
	}
}

// IsValid reports whether k is a known document kind.
func (k DocumentKind) IsValid() bool {
	switch k {
	case KindVIN, KindLicensePlate, KindDriversLicense, KindInsurance, KindOdometer:
		return true
	}
	return false
}

// Metadata is the static description of a document processor: how the
// upstream vision service should be prompted and which model to use.
type Metadata struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Prompt      string  `json:"-"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

// Character quality tags assigned during extraction.
const (
	QualityGood = "good"
	QualityFair = "fair"
)

// Odometer units.
const (
	UnitMiles      = "miles"
	UnitKilometers = "kilometers"
)

// Mileage categories, bucketed on a miles basis.
const (
	MileageLow      = "low"       // < 30,000 mi
	MileageMedium   = "medium"    // 30,000 - 74,999 mi
	MileageHigh     = "high"      // 75,000 - 149,999 mi
	MileageVeryHigh = "very-high" // >= 150,000 mi
)

// MileageCategoryForMiles buckets a miles-basis reading. Boundaries are
// inclusive on the low end: 30,000 is medium, 150,000 is very-high.
func MileageCategoryForMiles(miles int64) string {
	switch {
	case miles < 30_000:
		return MileageLow
	case miles < 75_000:
		return MileageMedium
	case miles < 150_000:
		return MileageHigh
	default:
		return MileageVeryHigh
	}
}

// ValidationResult is the outcome of validating a draft record.
// Valid is true exactly when Errors is empty; warnings never block.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// NewValidationResult returns an empty, passing result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true, Errors: []string{}, Warnings: []string{}}
}

// AddError records a blocking validation error.
func (r *ValidationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Valid = false
}

// AddWarning records a non-blocking validation warning.
func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Record is a typed draft or enriched record for one document kind.
// Enrichment is purely additive: enriched records carry every draft field
// unchanged plus derived fields.
type Record interface {
	Kind() DocumentKind
}

// VINRecord is the draft/enriched record for a vehicle identification number.
type VINRecord struct {
	VIN              string `json:"vin"`
	Location         string `json:"location,omitempty"`
	CharacterQuality string `json:"character_quality,omitempty"`

	// Enrichment (VIN decode lookup)
	Make            string `json:"make,omitempty"`
	Model           string `json:"model,omitempty"`
	Trim            string `json:"trim,omitempty"`
	Year            int    `json:"year,omitempty"`
	BodyType        string `json:"body_type,omitempty"`
	EngineModel     string `json:"engine_model,omitempty"`
	FuelType        string `json:"fuel_type,omitempty"`
	PlantCountry    string `json:"plant_country,omitempty"`
	Validated       bool   `json:"validated"`
	CheckDigitValid bool   `json:"check_digit_valid"`
	Error           string `json:"error,omitempty"`
}

func (VINRecord) Kind() DocumentKind { return KindVIN }

// PlateRecord is the draft record for a license plate. The plate kind has
// no enrichment stage; validation is terminal.
type PlateRecord struct {
	Plate   string `json:"plate"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

func (PlateRecord) Kind() DocumentKind { return KindLicensePlate }

// DriversLicenseRecord is the draft/enriched record for a driver's license.
type DriversLicenseRecord struct {
	LicenseNumber  string `json:"license_number"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	MiddleName     string `json:"middle_name,omitempty"`
	DateOfBirth    string `json:"date_of_birth"`
	Address        string `json:"address,omitempty"`
	City           string `json:"city,omitempty"`
	State          string `json:"state"`
	ZipCode        string `json:"zip_code,omitempty"`
	IssueDate      string `json:"issue_date,omitempty"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	Class          string `json:"class,omitempty"`
	Restrictions   string `json:"restrictions,omitempty"`
	Endorsements   string `json:"endorsements,omitempty"`
	Height         string `json:"height,omitempty"`
	Weight         string `json:"weight,omitempty"`
	EyeColor       string `json:"eye_color,omitempty"`
	Sex            string `json:"sex,omitempty"`

	// Enrichment (pure date arithmetic)
	Age                 *int   `json:"age,omitempty"`
	IsExpired           *bool  `json:"is_expired,omitempty"`
	DaysUntilExpiration *int   `json:"days_until_expiration,omitempty"`
	Error               string `json:"error,omitempty"`
}

func (DriversLicenseRecord) Kind() DocumentKind { return KindDriversLicense }

// InsuranceRecord is the draft/enriched record for an insurance card.
type InsuranceRecord struct {
	PolicyNumber     string `json:"policy_number"`
	Carrier          string `json:"carrier"`
	PolicyholderName string `json:"policyholder_name"`
	EffectiveDate    string `json:"effective_date,omitempty"`
	ExpirationDate   string `json:"expiration_date,omitempty"`
	VIN              string `json:"vin,omitempty"`
	VehicleMake      string `json:"vehicle_make,omitempty"`
	VehicleModel     string `json:"vehicle_model,omitempty"`
	VehicleYear      string `json:"vehicle_year,omitempty"`
	CoverageType     string `json:"coverage_type,omitempty"`
	LiabilityLimits  string `json:"liability_limits,omitempty"`
	Deductible       string `json:"deductible,omitempty"`
	AgentName        string `json:"agent_name,omitempty"`
	AgentPhone       string `json:"agent_phone,omitempty"`

	// Enrichment
	IsActive            *bool      `json:"is_active,omitempty"`
	DaysUntilExpiration *int       `json:"days_until_expiration,omitempty"`
	Vehicle             *VINRecord `json:"vehicle,omitempty"`
	Error               string     `json:"error,omitempty"`
}

func (InsuranceRecord) Kind() DocumentKind { return KindInsurance }

// OdometerRecord is the draft/enriched record for an odometer reading.
// Reading is a pointer because zero is a legitimate reading.
type OdometerRecord struct {
	Reading     *int64 `json:"reading"`
	Unit        string `json:"unit"`
	UnitAssumed bool   `json:"unit_assumed,omitempty"`
	Location    string `json:"location,omitempty"`
	DigitCount  int    `json:"digit_count,omitempty"`
	IsDigital   *bool  `json:"is_digital,omitempty"`

	// Enrichment (pure unit conversion)
	EstimatedMiles      int64  `json:"estimated_miles,omitempty"`
	EstimatedKilometers int64  `json:"estimated_kilometers,omitempty"`
	Display             string `json:"display,omitempty"`
	MileageCategory     string `json:"mileage_category,omitempty"`
}

func (OdometerRecord) Kind() DocumentKind { return KindOdometer }

// CaptureStatus represents the processing state of a document capture.
type CaptureStatus string

const (
	StatusProcessing CaptureStatus = "processing"
	StatusCompleted  CaptureStatus = "completed"
	StatusFailed     CaptureStatus = "failed"
)

// Capture is the result of running one document through the pipeline.
type Capture struct {
	ID               string            `json:"capture_id"`
	DocumentKind     DocumentKind      `json:"kind"`
	VehicleID        *string           `json:"vehicle_id,omitempty"`
	Status           CaptureStatus     `json:"status"`
	Record           Record            `json:"record,omitempty"`
	Validation       *ValidationResult `json:"validation,omitempty"`
	Summary          string            `json:"summary,omitempty"`
	Error            string            `json:"error,omitempty"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	CreatedAt        time.Time         `json:"created_at"`
}

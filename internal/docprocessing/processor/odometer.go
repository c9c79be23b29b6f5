package processor

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
)

const kmPerMile = 1.60934

var odometerReadingRe = regexp.MustCompile(`(\d[\d,]*)(?:\.\d+)?\s*([A-Za-z]+)?`)

// Unit words the vision model tends to emit, normalized to miles/kilometers.
var odometerUnits = map[string]string{
	"mi":         domain.UnitMiles,
	"mile":       domain.UnitMiles,
	"miles":      domain.UnitMiles,
	"km":         domain.UnitKilometers,
	"kms":        domain.UnitKilometers,
	"kilometer":  domain.UnitKilometers,
	"kilometers": domain.UnitKilometers,
	"kilometre":  domain.UnitKilometers,
	"kilometres": domain.UnitKilometers,
}

// OdometerProcessor handles odometer readings from dashboard photos.
type OdometerProcessor struct{}

func NewOdometerProcessor() *OdometerProcessor { return &OdometerProcessor{} }

func (p *OdometerProcessor) Kind() domain.DocumentKind { return domain.KindOdometer }

func (p *OdometerProcessor) Metadata() domain.Metadata {
	return domain.Metadata{
		Name:        "Odometer",
		Description: "Odometer mileage reading from a dashboard display",
		Prompt: "Read the odometer on this dashboard. Respond with the number shown " +
			"followed by its unit (miles or km), e.g. \"87432 miles\". Ignore trip " +
			"meters. If no odometer is visible, respond with NOT_FOUND.",
		Model:       "llama3.2-vision",
		MaxTokens:   50,
		Temperature: 0,
	}
}

// Extract pulls the first numeric run out of raw vision output, tolerating
// comma grouping. A missing unit word falls back to miles and is flagged on
// the draft so validation can surface it as a quality concern.
func (p *OdometerProcessor) Extract(raw string) (domain.Record, error) {
	text := strings.TrimSpace(raw)
	if text == "" || strings.Contains(strings.ToUpper(text), "NOT_FOUND") {
		return nil, domain.NewExtractionError(domain.KindOdometer, "no odometer reading found in image")
	}

	m := odometerReadingRe.FindStringSubmatch(text)
	if m == nil {
		return nil, domain.NewExtractionError(domain.KindOdometer, "no odometer reading found in image")
	}

	digits := strings.ReplaceAll(m[1], ",", "")
	reading, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil, domain.NewExtractionError(domain.KindOdometer, "odometer reading is not a number: "+m[1])
	}

	rec := &domain.OdometerRecord{
		Reading:    &reading,
		DigitCount: len(digits),
	}

	if unit, ok := odometerUnits[strings.ToLower(m[2])]; ok {
		rec.Unit = unit
	} else {
		rec.Unit = domain.UnitMiles
		rec.UnitAssumed = true
	}

	return rec, nil
}

func (p *OdometerProcessor) Validate(rec domain.Record) *domain.ValidationResult {
	result := domain.NewValidationResult()
	odo, ok := rec.(*domain.OdometerRecord)
	if !ok {
		result.AddError("record is not an odometer record")
		return result
	}

	if odo.Reading == nil {
		result.AddError("odometer reading is missing")
		return result
	}
	reading := *odo.Reading

	if reading < 0 {
		result.AddError("odometer reading must not be negative")
		return result
	}

	if odo.Unit != domain.UnitMiles && odo.Unit != domain.UnitKilometers {
		result.AddError("unit must be miles or kilometers")
		return result
	}

	if odo.UnitAssumed {
		result.AddWarning("unit was not visible; assumed miles")
	}

	if reading > 1_000_000 {
		result.AddWarning("reading exceeds 1,000,000; likely a misread")
	}

	miles := toMiles(reading, odo.Unit)
	if miles > 500_000 {
		result.AddWarning("reading exceeds 500,000 miles; verify against the vehicle")
	}
	if miles < 100 {
		result.AddWarning("reading is under 100 miles; may be a trip meter")
	}

	// A full 6-digit display showing a low number suggests a rolled-over
	// mechanical odometer.
	if odo.DigitCount == 6 && reading < 10_000 {
		result.AddWarning("six-digit display with a low reading; odometer may have rolled over")
	}

	return result
}

// Enrich converts the reading to both unit systems and buckets it into a
// mileage category on a miles basis.
func (p *OdometerProcessor) Enrich(_ context.Context, rec domain.Record) domain.Record {
	odo, ok := rec.(*domain.OdometerRecord)
	if !ok || odo.Reading == nil {
		return rec
	}

	enriched := *odo
	reading := *odo.Reading

	miles := toMiles(reading, odo.Unit)
	enriched.EstimatedMiles = miles
	enriched.EstimatedKilometers = toKilometers(reading, odo.Unit)
	enriched.MileageCategory = domain.MileageCategoryForMiles(miles)

	unitWord := odo.Unit
	if odo.Unit == domain.UnitKilometers {
		unitWord = "km"
	} else {
		unitWord = "mi"
	}
	enriched.Display = fmt.Sprintf("%s %s", formatThousands(reading), unitWord)

	return &enriched
}

func (p *OdometerProcessor) Format(rec domain.Record) string {
	odo, ok := rec.(*domain.OdometerRecord)
	if !ok || odo.Reading == nil {
		return ""
	}
	if odo.Display != "" {
		return odo.Display
	}
	unitWord := "mi"
	if odo.Unit == domain.UnitKilometers {
		unitWord = "km"
	}
	return fmt.Sprintf("%s %s", formatThousands(*odo.Reading), unitWord)
}

func toMiles(reading int64, unit string) int64 {
	if unit == domain.UnitKilometers {
		return int64(math.Round(float64(reading) / kmPerMile))
	}
	return reading
}

func toKilometers(reading int64, unit string) int64 {
	if unit == domain.UnitMiles {
		return int64(math.Round(float64(reading) * kmPerMile))
	}
	return reading
}

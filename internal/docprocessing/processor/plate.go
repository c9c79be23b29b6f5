package processor

import (
	"context"
	"regexp"
	"strings"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
)

var (
	plateStateRe = regexp.MustCompile(`\b([A-Z0-9]{2,8})[\s.,:-]+([A-Z]{2})\b`)
	plateOnlyRe  = regexp.MustCompile(`\b([A-Z0-9]{2,8})\b`)
	plateCharsRe = regexp.MustCompile(`^[A-Z0-9]+$`)
)

var usStateCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true,
	"CT": true, "DE": true, "FL": true, "GA": true, "HI": true, "ID": true,
	"IL": true, "IN": true, "IA": true, "KS": true, "KY": true, "LA": true,
	"ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true, "OK": true,
	"OR": true, "PA": true, "RI": true, "SC": true, "SD": true, "TN": true,
	"TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true, "DC": true,
}

var caProvinceCodes = map[string]bool{
	"AB": true, "BC": true, "MB": true, "NB": true, "NL": true, "NS": true,
	"NT": true, "NU": true, "ON": true, "PE": true, "QC": true, "SK": true,
	"YT": true,
}

// PlateProcessor handles license plate reads. Plates have no enrichment
// stage; the record is terminal after validation.
type PlateProcessor struct{}

func NewPlateProcessor() *PlateProcessor { return &PlateProcessor{} }

func (p *PlateProcessor) Kind() domain.DocumentKind { return domain.KindLicensePlate }

func (p *PlateProcessor) Metadata() domain.Metadata {
	return domain.Metadata{
		Name:        "License Plate",
		Description: "License plate number and issuing state",
		Prompt: "Read the license plate in this image. Respond with the plate characters " +
			"followed by the two-letter state code, e.g. \"ABC1234 CA\". " +
			"If no plate is visible, respond with NOT_FOUND.",
		Model:       "llama3.2-vision",
		MaxTokens:   50,
		Temperature: 0,
	}
}

// Extract pulls a plate and, when present, a two-letter state code out of
// raw vision output. A plate-with-state pattern is preferred; otherwise the
// first plate-shaped token is taken alone.
func (p *PlateProcessor) Extract(raw string) (domain.Record, error) {
	text := strings.ToUpper(strings.TrimSpace(raw))
	if text == "" || strings.Contains(text, "NOT_FOUND") {
		return nil, domain.NewExtractionError(domain.KindLicensePlate, "no license plate found in image")
	}

	matches := plateStateRe.FindAllStringSubmatch(text, -1)
	for _, m := range matches {
		plate, state := m[1], m[2]
		if usStateCodes[state] || caProvinceCodes[state] {
			return &domain.PlateRecord{
				Plate:   plate,
				State:   state,
				Country: plateCountry(state),
			}, nil
		}
	}

	// No recognized code, but the read still ends in a two-letter token.
	// Carry it as the state so validation can flag it instead of silently
	// dropping what the camera saw. The vision prompt puts the state last,
	// so the final pairing is the likeliest one.
	if len(matches) > 0 {
		m := matches[len(matches)-1]
		return &domain.PlateRecord{Plate: m[1], State: m[2]}, nil
	}

	if m := plateOnlyRe.FindString(text); m != "" {
		return &domain.PlateRecord{Plate: m}, nil
	}

	return nil, domain.NewExtractionError(domain.KindLicensePlate, "no license plate found in image")
}

func (p *PlateProcessor) Validate(rec domain.Record) *domain.ValidationResult {
	result := domain.NewValidationResult()
	plate, ok := rec.(*domain.PlateRecord)
	if !ok {
		result.AddError("record is not a license plate record")
		return result
	}

	if n := len(plate.Plate); n < 2 || n > 8 {
		result.AddError("plate must be between 2 and 8 characters")
	}
	if plate.Plate != "" && !plateCharsRe.MatchString(plate.Plate) {
		result.AddError("plate contains characters other than letters and digits")
	}

	switch {
	case plate.State == "":
		result.AddWarning("issuing state could not be determined from the image")
	case len(plate.State) != 2:
		result.AddWarning("state code should be two letters")
	case !usStateCodes[plate.State] && !caProvinceCodes[plate.State]:
		result.AddWarning("unrecognized state or province code: " + plate.State)
	}

	return result
}

func (p *PlateProcessor) Enrich(_ context.Context, rec domain.Record) domain.Record {
	return rec
}

func (p *PlateProcessor) Format(rec domain.Record) string {
	plate, ok := rec.(*domain.PlateRecord)
	if !ok {
		return ""
	}
	if plate.State != "" {
		return plate.Plate + " (" + plate.State + ")"
	}
	return plate.Plate
}

func plateCountry(state string) string {
	switch {
	case usStateCodes[state]:
		return "US"
	case caProvinceCodes[state]:
		return "CA"
	}
	return ""
}

package processor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/vindecode"
)

// Decoder looks up vehicle specifications for a VIN. Satisfied by
// *vindecode.Client; tests substitute a stub.
type Decoder interface {
	Decode(ctx context.Context, vin string) (*vindecode.VehicleSpec, error)
}

// VIN character set excludes I, O and Q to avoid confusion with 1 and 0.
var (
	vinRunRe   = regexp.MustCompile(`[A-HJ-NPR-Z0-9]+`)
	vinNoiseRe = regexp.MustCompile(`[\s\-_]+`)
)

// Transliteration values for the ISO 3779 check digit computation.
var vinCharValues = map[byte]int{
	'A': 1, 'B': 2, 'C': 3, 'D': 4, 'E': 5, 'F': 6, 'G': 7, 'H': 8,
	'J': 1, 'K': 2, 'L': 3, 'M': 4, 'N': 5, 'P': 7, 'R': 9,
	'S': 2, 'T': 3, 'U': 4, 'V': 5, 'W': 6, 'X': 7, 'Y': 8, 'Z': 9,
	'0': 0, '1': 1, '2': 2, '3': 3, '4': 4, '5': 5, '6': 6, '7': 7, '8': 8, '9': 9,
}

// Position weights for the check digit; position 9 (the check digit
// itself) carries weight 0.
var vinWeights = [17]int{8, 7, 6, 5, 4, 3, 2, 10, 0, 9, 8, 7, 6, 5, 4, 3, 2}

// VINProcessor handles vehicle identification number plates and stickers.
type VINProcessor struct {
	decoder Decoder
}

// NewVINProcessor creates a VIN processor. The decoder may be nil, in
// which case enrichment skips the spec lookup.
func NewVINProcessor(decoder Decoder) *VINProcessor {
	return &VINProcessor{decoder: decoder}
}

func (p *VINProcessor) Kind() domain.DocumentKind { return domain.KindVIN }

func (p *VINProcessor) Metadata() domain.Metadata {
	return domain.Metadata{
		Name:        "VIN",
		Description: "Vehicle identification number from a door jamb sticker, dashboard plate, or title document",
		Prompt: "Read the 17-character vehicle identification number (VIN) in this image. " +
			"VINs never contain the letters I, O, or Q. " +
			"Respond with the VIN only, no extra text. If no VIN is visible, respond with NOT_FOUND.",
		Model:       "llama3.2-vision",
		MaxTokens:   100,
		Temperature: 0,
	}
}

// Extract locates a VIN in raw vision output. Whitespace, dashes and
// underscores are stripped before matching so OCR spacing does not split
// the number. An exact 17-character match is preferred; a 15-19 character
// near-match is accepted but tagged with lower character quality.
func (p *VINProcessor) Extract(raw string) (domain.Record, error) {
	text := strings.ToUpper(strings.TrimSpace(raw))
	if text == "" || strings.Contains(text, "NOT_FOUND") {
		return nil, domain.NewExtractionError(domain.KindVIN, "no VIN found in image")
	}

	// Exact matches are tried on the raw text first, where whitespace still
	// separates labels like "VIN:" from the number, then on a cleaned form
	// that rejoins numbers the OCR split across spaces or dashes.
	// An exact 17-character run over the VIN alphabet is always taken as
	// the VIN, even when it happens to be all letters.
	cleaned := vinNoiseRe.ReplaceAllString(text, "")
	for _, candidate := range []string{text, cleaned} {
		for _, run := range vinRunRe.FindAllString(candidate, -1) {
			if len(run) == 17 {
				return &domain.VINRecord{
					VIN:              run,
					CharacterQuality: domain.QualityGood,
				}, nil
			}
		}
	}

	runs := vinRunRe.FindAllString(cleaned, -1)

	// Near-match fallback: a run close to 17 characters is usually a VIN
	// with an OCR insertion or deletion. Keep the first 17 and flag it.
	// The digit guard applies only here, where a stray 15-19 letter
	// phrase would otherwise pass for a mangled VIN.
	for _, run := range runs {
		if len(run) >= 15 && len(run) <= 19 && containsDigit(run) {
			if len(run) > 17 {
				run = run[:17]
			}
			return &domain.VINRecord{
				VIN:              run,
				CharacterQuality: domain.QualityFair,
			}, nil
		}
	}

	return nil, domain.NewExtractionError(domain.KindVIN, "no VIN found in image")
}

func (p *VINProcessor) Validate(rec domain.Record) *domain.ValidationResult {
	result := domain.NewValidationResult()
	vin, ok := rec.(*domain.VINRecord)
	if !ok {
		result.AddError("record is not a VIN record")
		return result
	}

	if len(vin.VIN) != 17 {
		result.AddError(fmt.Sprintf("VIN must be exactly 17 characters, got %d", len(vin.VIN)))
		return result
	}

	if illegal := illegalVINChars(vin.VIN); illegal != "" {
		result.AddError("VIN contains illegal characters: " + illegal)
	}

	if result.Valid && !checkDigitValid(vin.VIN) {
		result.AddWarning("VIN check digit does not match; one or more characters may be misread")
	}

	if vin.CharacterQuality == domain.QualityFair {
		result.AddWarning("VIN was recovered from a partial or noisy read; confirm against the vehicle")
	}

	return result
}

// Enrich decodes the VIN into vehicle specifications. Lookup failures are
// recorded on the returned record and never abort the pipeline.
func (p *VINProcessor) Enrich(ctx context.Context, rec domain.Record) domain.Record {
	vin, ok := rec.(*domain.VINRecord)
	if !ok {
		return rec
	}

	enriched := *vin
	enriched.CheckDigitValid = len(vin.VIN) == 17 && checkDigitValid(vin.VIN)

	if p.decoder == nil {
		return &enriched
	}

	spec, err := p.decoder.Decode(ctx, vin.VIN)
	if err != nil {
		enriched.Error = err.Error()
		enriched.Validated = false
		return &enriched
	}

	enriched.Make = spec.Make
	enriched.Model = spec.Model
	enriched.Trim = spec.Trim
	enriched.Year = spec.Year
	enriched.BodyType = spec.BodyType
	enriched.EngineModel = spec.EngineModel
	enriched.FuelType = spec.FuelType
	enriched.PlantCountry = spec.PlantCountry
	enriched.Validated = true
	return &enriched
}

func (p *VINProcessor) Format(rec domain.Record) string {
	vin, ok := rec.(*domain.VINRecord)
	if !ok {
		return ""
	}

	if vin.Year > 0 && vin.Make != "" {
		parts := []string{fmt.Sprintf("%d", vin.Year), vin.Make}
		if vin.Model != "" {
			parts = append(parts, vin.Model)
		}
		if vin.Trim != "" {
			parts = append(parts, vin.Trim)
		}
		return strings.Join(parts, " ")
	}
	return vin.VIN
}

// containsDigit screens near-match candidates that are plain words:
// every real VIN carries digits in its serial section.
func containsDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}

// illegalVINChars returns the distinct characters in vin that are outside
// the VIN alphabet, in order of first appearance.
func illegalVINChars(vin string) string {
	var illegal []byte
	seen := make(map[byte]bool)
	for i := 0; i < len(vin); i++ {
		c := vin[i]
		if _, ok := vinCharValues[c]; !ok && !seen[c] {
			illegal = append(illegal, c)
			seen[c] = true
		}
	}
	return string(illegal)
}

// checkDigitValid computes the ISO 3779 weighted sum modulo 11 and
// compares it against position 9. A remainder of 10 is written as X.
func checkDigitValid(vin string) bool {
	if len(vin) != 17 {
		return false
	}

	sum := 0
	for i := 0; i < 17; i++ {
		value, ok := vinCharValues[vin[i]]
		if !ok {
			return false
		}
		sum += value * vinWeights[i]
	}

	remainder := sum % 11
	expected := byte('0' + remainder)
	if remainder == 10 {
		expected = 'X'
	}
	return vin[8] == expected
}

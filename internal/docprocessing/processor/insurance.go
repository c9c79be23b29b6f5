package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
)

// InsuranceProcessor handles auto insurance ID cards.
type InsuranceProcessor struct {
	decoder Decoder
}

// NewInsuranceProcessor creates an insurance card processor. The decoder
// is used to expand a VIN printed on the card into a nested vehicle
// record; it may be nil.
func NewInsuranceProcessor(decoder Decoder) *InsuranceProcessor {
	return &InsuranceProcessor{decoder: decoder}
}

func (p *InsuranceProcessor) Kind() domain.DocumentKind { return domain.KindInsurance }

func (p *InsuranceProcessor) Metadata() domain.Metadata {
	return domain.Metadata{
		Name:        "Insurance Card",
		Description: "Auto insurance card policy, carrier, coverage dates, and insured vehicle",
		Prompt: "Extract the fields from this auto insurance card as JSON with keys: " +
			"policy_number, carrier, policyholder_name, effective_date, expiration_date, " +
			"vin, vehicle_make, vehicle_model, vehicle_year, coverage_type, " +
			"liability_limits, deductible, agent_name, agent_phone. " +
			"Use YYYY-MM-DD for dates. Omit keys that are not visible. " +
			"Respond with JSON only. If the image is not an insurance card, " +
			"respond with {\"error\": \"NO_DOCUMENT\"}.",
		Model:       "llama3.2-vision",
		MaxTokens:   500,
		Temperature: 0,
	}
}

func (p *InsuranceProcessor) Extract(raw string) (domain.Record, error) {
	var rec domain.InsuranceRecord
	if err := parseVisionJSON(domain.KindInsurance, raw, &rec); err != nil {
		return nil, err
	}

	var missing []string
	if rec.PolicyNumber == "" {
		missing = append(missing, "policy_number")
	}
	if rec.Carrier == "" {
		missing = append(missing, "carrier")
	}
	if rec.PolicyholderName == "" {
		missing = append(missing, "policyholder_name")
	}
	if len(missing) > 0 {
		return nil, domain.NewMissingFieldsError(domain.KindInsurance, missing...)
	}

	return &rec, nil
}

func (p *InsuranceProcessor) Validate(rec domain.Record) *domain.ValidationResult {
	result := domain.NewValidationResult()
	ins, ok := rec.(*domain.InsuranceRecord)
	if !ok {
		result.AddError("record is not an insurance record")
		return result
	}

	if ins.PolicyNumber == "" {
		result.AddError("policy number is required")
	}
	if ins.Carrier == "" {
		result.AddError("carrier name is required")
	}
	if ins.PolicyholderName == "" {
		result.AddError("policyholder name is required")
	}

	// Missing coverage dates are a legibility problem, not an invalid
	// card, so they warn rather than block.
	if ins.EffectiveDate == "" {
		result.AddWarning("effective date is not visible on the card")
	}
	if ins.ExpirationDate == "" {
		result.AddWarning("expiration date is not visible on the card")
	}

	now := time.Now()
	effective, effectiveOK := parseDate(ins.EffectiveDate)
	expiration, expirationOK := parseDate(ins.ExpirationDate)

	if ins.EffectiveDate != "" && !effectiveOK {
		result.AddError("effective date is not a recognizable date: " + ins.EffectiveDate)
	}
	if ins.ExpirationDate != "" && !expirationOK {
		result.AddError("expiration date is not a recognizable date: " + ins.ExpirationDate)
	}

	if effectiveOK && expirationOK && effective.After(expiration) {
		result.AddError("effective date is after expiration date")
	}

	if effectiveOK && now.Before(effective) {
		result.AddWarning("policy is not yet effective")
	}

	if expirationOK {
		days := daysUntil(expiration, now)
		if days < 0 {
			result.AddWarning("policy is expired")
		} else if days <= expirationWarningDays {
			result.AddWarning(fmt.Sprintf("policy expires in %d days", days))
		}
	}

	if ins.VIN != "" {
		if len(ins.VIN) != 17 {
			result.AddWarning(fmt.Sprintf("VIN on card is %d characters, expected 17", len(ins.VIN)))
		} else if illegal := illegalVINChars(strings.ToUpper(ins.VIN)); illegal != "" {
			result.AddWarning("VIN on card contains unexpected characters: " + illegal)
		}
	}

	return result
}

// Enrich computes policy status and, when the card lists a plausible VIN,
// a nested decoded vehicle record. A failed decode is tolerated silently:
// the card's own vehicle fields remain the source of truth.
func (p *InsuranceProcessor) Enrich(ctx context.Context, rec domain.Record) domain.Record {
	ins, ok := rec.(*domain.InsuranceRecord)
	if !ok {
		return rec
	}

	enriched := *ins
	now := time.Now()

	effective, effectiveOK := parseDate(ins.EffectiveDate)
	expiration, expirationOK := parseDate(ins.ExpirationDate)

	if expirationOK {
		days := daysUntil(expiration, now)
		enriched.DaysUntilExpiration = &days

		active := !now.After(expiration)
		if effectiveOK {
			active = active && !now.Before(effective)
		}
		enriched.IsActive = &active
	}

	if p.decoder != nil && len(ins.VIN) == 17 {
		vin := strings.ToUpper(ins.VIN)
		if spec, err := p.decoder.Decode(ctx, vin); err == nil {
			enriched.Vehicle = &domain.VINRecord{
				VIN:              vin,
				CharacterQuality: domain.QualityGood,
				Make:             spec.Make,
				Model:            spec.Model,
				Trim:             spec.Trim,
				Year:             spec.Year,
				BodyType:         spec.BodyType,
				EngineModel:      spec.EngineModel,
				FuelType:         spec.FuelType,
				PlantCountry:     spec.PlantCountry,
				Validated:        true,
				CheckDigitValid:  checkDigitValid(vin),
			}
		}
	}

	return &enriched
}

func (p *InsuranceProcessor) Format(rec domain.Record) string {
	ins, ok := rec.(*domain.InsuranceRecord)
	if !ok {
		return ""
	}

	parts := []string{ins.Carrier}

	vehicle := p.vehicleSummary(ins)
	if vehicle != "" {
		parts = append(parts, vehicle)
	}
	parts = append(parts, "Policy #"+ins.PolicyNumber)

	return strings.Join(parts, " - ")
}

// vehicleSummary prefers the decoded vehicle over the card's printed
// fields, which are frequently abbreviated.
func (p *InsuranceProcessor) vehicleSummary(ins *domain.InsuranceRecord) string {
	if v := ins.Vehicle; v != nil && v.Make != "" {
		summary := fmt.Sprintf("%d %s", v.Year, v.Make)
		if v.Model != "" {
			summary += " " + v.Model
		}
		return summary
	}

	var parts []string
	if ins.VehicleYear != "" {
		parts = append(parts, ins.VehicleYear)
	}
	if ins.VehicleMake != "" {
		parts = append(parts, ins.VehicleMake)
	}
	if ins.VehicleModel != "" {
		parts = append(parts, ins.VehicleModel)
	}
	return strings.Join(parts, " ")
}

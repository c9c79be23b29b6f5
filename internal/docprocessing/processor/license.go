package processor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
)

var zipCodeRe = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// Expirations within this window get a heads-up warning.
const expirationWarningDays = 30

// DriversLicenseProcessor handles US driver's license cards.
type DriversLicenseProcessor struct{}

func NewDriversLicenseProcessor() *DriversLicenseProcessor {
	return &DriversLicenseProcessor{}
}

func (p *DriversLicenseProcessor) Kind() domain.DocumentKind {
	return domain.KindDriversLicense
}

func (p *DriversLicenseProcessor) Metadata() domain.Metadata {
	return domain.Metadata{
		Name:        "Driver's License",
		Description: "Driver's license holder details, dates, and physical descriptors",
		Prompt: "Extract the fields from this driver's license as JSON with keys: " +
			"license_number, first_name, last_name, middle_name, date_of_birth, " +
			"address, city, state, zip_code, issue_date, expiration_date, class, " +
			"restrictions, endorsements, height, weight, eye_color, sex. " +
			"Use YYYY-MM-DD for dates. Omit keys that are not visible. " +
			"Respond with JSON only. If the image is not a driver's license, " +
			"respond with {\"error\": \"NO_DOCUMENT\"}.",
		Model:       "llama3.2-vision",
		MaxTokens:   500,
		Temperature: 0,
	}
}

// Extract decodes the structured JSON the vision prompt asks for and
// checks that the identifying fields made it through.
func (p *DriversLicenseProcessor) Extract(raw string) (domain.Record, error) {
	var rec domain.DriversLicenseRecord
	if err := parseVisionJSON(domain.KindDriversLicense, raw, &rec); err != nil {
		return nil, err
	}

	var missing []string
	if rec.LicenseNumber == "" {
		missing = append(missing, "license_number")
	}
	if rec.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if rec.LastName == "" {
		missing = append(missing, "last_name")
	}
	if rec.DateOfBirth == "" {
		missing = append(missing, "date_of_birth")
	}
	if rec.State == "" {
		missing = append(missing, "state")
	}
	if len(missing) > 0 {
		return nil, domain.NewMissingFieldsError(domain.KindDriversLicense, missing...)
	}

	return &rec, nil
}

func (p *DriversLicenseProcessor) Validate(rec domain.Record) *domain.ValidationResult {
	result := domain.NewValidationResult()
	lic, ok := rec.(*domain.DriversLicenseRecord)
	if !ok {
		result.AddError("record is not a driver's license record")
		return result
	}

	if lic.LicenseNumber == "" {
		result.AddError("license number is required")
	}
	if lic.FirstName == "" {
		result.AddError("first name is required")
	}
	if lic.LastName == "" {
		result.AddError("last name is required")
	}

	now := time.Now()

	dob, dobOK := parseDate(lic.DateOfBirth)
	if lic.DateOfBirth == "" {
		result.AddError("date of birth is required")
	} else if !dobOK {
		result.AddError("date of birth is not a recognizable date: " + lic.DateOfBirth)
	} else {
		age := yearsBetween(dob, now)
		switch {
		case age > 120:
			result.AddError(fmt.Sprintf("date of birth implies an implausible age of %d", age))
		case age < 0:
			result.AddError("date of birth is in the future")
		case age < 16:
			result.AddWarning(fmt.Sprintf("holder is %d years old, below typical licensing age", age))
		}
	}

	if lic.ExpirationDate != "" {
		exp, ok := parseDate(lic.ExpirationDate)
		if !ok {
			result.AddError("expiration date is not a recognizable date: " + lic.ExpirationDate)
		} else {
			days := daysUntil(exp, now)
			if days < 0 {
				result.AddWarning("license is expired")
			} else if days <= expirationWarningDays {
				result.AddWarning(fmt.Sprintf("license expires in %d days", days))
			}
		}
	}

	if len(lic.State) != 2 {
		result.AddError("state must be a two-letter code")
	} else if !usStateCodes[strings.ToUpper(lic.State)] {
		result.AddWarning("unrecognized state code: " + lic.State)
	}

	if lic.ZipCode != "" && !zipCodeRe.MatchString(lic.ZipCode) {
		result.AddWarning("ZIP code does not match the expected 5 or 5+4 digit format")
	}

	return result
}

// Enrich computes age and expiration status. All derivations are pure
// date arithmetic; unparseable dates simply leave the fields unset.
func (p *DriversLicenseProcessor) Enrich(_ context.Context, rec domain.Record) domain.Record {
	lic, ok := rec.(*domain.DriversLicenseRecord)
	if !ok {
		return rec
	}

	enriched := *lic
	now := time.Now()

	if dob, ok := parseDate(lic.DateOfBirth); ok {
		age := yearsBetween(dob, now)
		enriched.Age = &age
	}

	if exp, ok := parseDate(lic.ExpirationDate); ok {
		days := daysUntil(exp, now)
		expired := days < 0
		enriched.IsExpired = &expired
		enriched.DaysUntilExpiration = &days
	}

	return &enriched
}

func (p *DriversLicenseProcessor) Format(rec domain.Record) string {
	lic, ok := rec.(*domain.DriversLicenseRecord)
	if !ok {
		return ""
	}

	name := strings.TrimSpace(lic.FirstName + " " + lic.LastName)
	if lic.State != "" && lic.LicenseNumber != "" {
		return fmt.Sprintf("%s (%s %s)", name, lic.State, lic.LicenseNumber)
	}
	if lic.LicenseNumber != "" {
		return fmt.Sprintf("%s (%s)", name, lic.LicenseNumber)
	}
	return name
}

package processor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/processor"
)

func isoDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func TestDriversLicenseProcessor_Extract(t *testing.T) {
	p := processor.NewDriversLicenseProcessor()

	raw := `{
		"license_number": "D1234567",
		"first_name": "JANE",
		"last_name": "DOE",
		"date_of_birth": "1990-03-15",
		"state": "CA",
		"zip_code": "94110",
		"expiration_date": "2030-03-15",
		"class": "C"
	}`

	rec, err := p.Extract(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lic := rec.(*domain.DriversLicenseRecord)
	if lic.LicenseNumber != "D1234567" {
		t.Errorf("LicenseNumber = %q, want D1234567", lic.LicenseNumber)
	}
	if lic.FirstName != "JANE" || lic.LastName != "DOE" {
		t.Errorf("name = %q %q, want JANE DOE", lic.FirstName, lic.LastName)
	}
	if lic.State != "CA" {
		t.Errorf("State = %q, want CA", lic.State)
	}
}

func TestDriversLicenseProcessor_ExtractFenced(t *testing.T) {
	p := processor.NewDriversLicenseProcessor()

	raw := "```json\n{\"license_number\": \"D1234567\", \"first_name\": \"JANE\", " +
		"\"last_name\": \"DOE\", \"date_of_birth\": \"1990-03-15\", \"state\": \"CA\"}\n```"

	if _, err := p.Extract(raw); err != nil {
		t.Fatalf("fenced JSON should parse, got: %v", err)
	}
}

func TestDriversLicenseProcessor_ExtractFailureModes(t *testing.T) {
	p := processor.NewDriversLicenseProcessor()

	t.Run("no document sentinel", func(t *testing.T) {
		_, err := p.Extract(`{"error": "NO_DOCUMENT"}`)
		if !errors.Is(err, domain.ErrNoDocument) {
			t.Errorf("error = %v, want ErrNoDocument", err)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := p.Extract(`{"license_number": "D1234`)
		var malformed *domain.MalformedPayloadError
		if !errors.As(err, &malformed) {
			t.Errorf("error = %T, want *domain.MalformedPayloadError", err)
		}
	})

	t.Run("missing required fields", func(t *testing.T) {
		_, err := p.Extract(`{"first_name": "JANE", "last_name": "DOE"}`)
		var extErr *domain.ExtractionError
		if !errors.As(err, &extErr) {
			t.Fatalf("error = %T, want *domain.ExtractionError", err)
		}
		if len(extErr.MissingFields) != 3 {
			t.Errorf("MissingFields = %v, want license_number, date_of_birth, state", extErr.MissingFields)
		}
	})
}

func TestDriversLicenseProcessor_Validate(t *testing.T) {
	p := processor.NewDriversLicenseProcessor()
	now := time.Now()

	base := func() *domain.DriversLicenseRecord {
		return &domain.DriversLicenseRecord{
			LicenseNumber:  "D1234567",
			FirstName:      "JANE",
			LastName:       "DOE",
			DateOfBirth:    "1990-03-15",
			State:          "CA",
			ExpirationDate: isoDate(now.AddDate(3, 0, 0)),
		}
	}

	t.Run("clean record", func(t *testing.T) {
		result := p.Validate(base())
		if !result.Valid || len(result.Warnings) != 0 {
			t.Errorf("Valid = %v, Warnings = %v, want valid with no warnings", result.Valid, result.Warnings)
		}
	})

	t.Run("under licensing age warns", func(t *testing.T) {
		rec := base()
		rec.DateOfBirth = isoDate(now.AddDate(-15, 0, 0))
		result := p.Validate(rec)
		if !result.Valid {
			t.Errorf("under-age should warn, not error: %v", result.Errors)
		}
		if len(result.Warnings) != 1 {
			t.Errorf("Warnings = %v, want 1", result.Warnings)
		}
	})

	t.Run("implausible age errors", func(t *testing.T) {
		rec := base()
		rec.DateOfBirth = "1880-01-01"
		result := p.Validate(rec)
		if result.Valid {
			t.Error("age over 120 should be an error")
		}
	})

	t.Run("unparseable birth date errors", func(t *testing.T) {
		rec := base()
		rec.DateOfBirth = "sometime in spring"
		result := p.Validate(rec)
		if result.Valid {
			t.Error("unparseable date of birth should be an error")
		}
	})

	t.Run("expired license warns", func(t *testing.T) {
		rec := base()
		rec.ExpirationDate = isoDate(now.AddDate(-1, 0, 0))
		result := p.Validate(rec)
		if !result.Valid {
			t.Errorf("expired license should warn, not error: %v", result.Errors)
		}
		if len(result.Warnings) != 1 {
			t.Errorf("Warnings = %v, want 1", result.Warnings)
		}
	})

	t.Run("expiring soon warns", func(t *testing.T) {
		rec := base()
		rec.ExpirationDate = isoDate(now.AddDate(0, 0, 10))
		result := p.Validate(rec)
		if len(result.Warnings) != 1 {
			t.Errorf("Warnings = %v, want expiring-soon warning", result.Warnings)
		}
	})

	t.Run("bad zip warns", func(t *testing.T) {
		rec := base()
		rec.ZipCode = "9411"
		result := p.Validate(rec)
		if !result.Valid {
			t.Errorf("bad ZIP should warn, not error: %v", result.Errors)
		}
		if len(result.Warnings) != 1 {
			t.Errorf("Warnings = %v, want 1", result.Warnings)
		}
	})

	t.Run("bad state code errors", func(t *testing.T) {
		rec := base()
		rec.State = "CAL"
		result := p.Validate(rec)
		if result.Valid {
			t.Error("three-letter state should be an error")
		}
	})

	t.Run("missing identity fields error", func(t *testing.T) {
		rec := &domain.DriversLicenseRecord{
			DateOfBirth: "1990-05-01",
			State:       "CA",
		}
		result := p.Validate(rec)
		if result.Valid {
			t.Fatal("missing license number and names should be errors")
		}
		if len(result.Errors) != 3 {
			t.Errorf("Errors = %v, want license number, first name, last name", result.Errors)
		}
	})

	t.Run("missing date of birth errors", func(t *testing.T) {
		rec := base()
		rec.DateOfBirth = ""
		result := p.Validate(rec)
		if result.Valid {
			t.Error("missing date of birth should be an error")
		}
	})
}

func TestDriversLicenseProcessor_Enrich(t *testing.T) {
	p := processor.NewDriversLicenseProcessor()
	now := time.Now()

	rec := &domain.DriversLicenseRecord{
		LicenseNumber:  "D1234567",
		FirstName:      "JANE",
		LastName:       "DOE",
		DateOfBirth:    isoDate(now.AddDate(-34, 0, -1)),
		State:          "CA",
		ExpirationDate: isoDate(now.AddDate(0, 0, 90)),
	}

	enriched := p.Enrich(context.Background(), rec).(*domain.DriversLicenseRecord)

	if enriched.Age == nil || *enriched.Age != 34 {
		t.Errorf("Age = %v, want 34", enriched.Age)
	}
	if enriched.IsExpired == nil || *enriched.IsExpired {
		t.Errorf("IsExpired = %v, want false", enriched.IsExpired)
	}
	if enriched.DaysUntilExpiration == nil {
		t.Fatal("DaysUntilExpiration not set")
	}
	if d := *enriched.DaysUntilExpiration; d < 88 || d > 90 {
		t.Errorf("DaysUntilExpiration = %d, want about 90", d)
	}

	// Draft fields carry through unchanged.
	if enriched.LicenseNumber != rec.LicenseNumber || enriched.State != rec.State {
		t.Error("enrichment must not modify draft fields")
	}
}

func TestDriversLicenseProcessor_EnrichUnparseableDates(t *testing.T) {
	p := processor.NewDriversLicenseProcessor()

	rec := &domain.DriversLicenseRecord{
		LicenseNumber: "D1234567",
		FirstName:     "JANE",
		LastName:      "DOE",
		DateOfBirth:   "unknown",
		State:         "CA",
	}

	enriched := p.Enrich(context.Background(), rec).(*domain.DriversLicenseRecord)
	if enriched.Age != nil {
		t.Errorf("Age = %v, want unset for unparseable birth date", *enriched.Age)
	}
	if enriched.IsExpired != nil {
		t.Error("IsExpired should be unset when no expiration date is present")
	}
}

func TestDriversLicenseProcessor_Format(t *testing.T) {
	p := processor.NewDriversLicenseProcessor()

	rec := &domain.DriversLicenseRecord{
		LicenseNumber: "D1234567",
		FirstName:     "JANE",
		LastName:      "DOE",
		State:         "CA",
	}

	want := "JANE DOE (CA D1234567)"
	if got := p.Format(rec); got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

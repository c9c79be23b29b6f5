package processor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/processor"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/vindecode"
)

func TestInsuranceProcessor_Extract(t *testing.T) {
	p := processor.NewInsuranceProcessor(nil)

	raw := `{
		"policy_number": "POL-998877",
		"carrier": "State Farm",
		"policyholder_name": "Jane Doe",
		"effective_date": "2026-01-01",
		"expiration_date": "2026-07-01",
		"vin": "1HGBH41JXMN109186",
		"vehicle_make": "HOND",
		"vehicle_year": "2002"
	}`

	rec, err := p.Extract(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ins := rec.(*domain.InsuranceRecord)
	if ins.PolicyNumber != "POL-998877" {
		t.Errorf("PolicyNumber = %q, want POL-998877", ins.PolicyNumber)
	}
	if ins.Carrier != "State Farm" {
		t.Errorf("Carrier = %q, want State Farm", ins.Carrier)
	}
	if ins.VIN != "1HGBH41JXMN109186" {
		t.Errorf("VIN = %q", ins.VIN)
	}
}

func TestInsuranceProcessor_ExtractFailureModes(t *testing.T) {
	p := processor.NewInsuranceProcessor(nil)

	t.Run("missing carrier", func(t *testing.T) {
		_, err := p.Extract(`{"policy_number": "P1", "policyholder_name": "Jane Doe"}`)
		var extErr *domain.ExtractionError
		if !errors.As(err, &extErr) {
			t.Fatalf("error = %T, want *domain.ExtractionError", err)
		}
	})

	t.Run("no document", func(t *testing.T) {
		_, err := p.Extract(`{"error": "NO_DOCUMENT"}`)
		if !errors.Is(err, domain.ErrNoDocument) {
			t.Errorf("error = %v, want ErrNoDocument", err)
		}
	})

	t.Run("garbage payload", func(t *testing.T) {
		_, err := p.Extract("I cannot read this image clearly")
		var malformed *domain.MalformedPayloadError
		if !errors.As(err, &malformed) {
			t.Errorf("error = %T, want *domain.MalformedPayloadError", err)
		}
	})
}

func TestInsuranceProcessor_Validate(t *testing.T) {
	p := processor.NewInsuranceProcessor(nil)
	now := time.Now()

	base := func() *domain.InsuranceRecord {
		return &domain.InsuranceRecord{
			PolicyNumber:     "POL-998877",
			Carrier:          "State Farm",
			PolicyholderName: "Jane Doe",
			EffectiveDate:    isoDate(now.AddDate(0, -3, 0)),
			ExpirationDate:   isoDate(now.AddDate(0, 3, 0)),
		}
	}

	t.Run("clean record", func(t *testing.T) {
		result := p.Validate(base())
		if !result.Valid || len(result.Warnings) != 0 {
			t.Errorf("Valid = %v, Warnings = %v", result.Valid, result.Warnings)
		}
	})

	t.Run("inverted date range errors", func(t *testing.T) {
		rec := base()
		rec.EffectiveDate, rec.ExpirationDate = rec.ExpirationDate, rec.EffectiveDate
		result := p.Validate(rec)
		if result.Valid {
			t.Error("effective after expiration should be an error")
		}
	})

	t.Run("expired policy warns", func(t *testing.T) {
		rec := base()
		rec.EffectiveDate = isoDate(now.AddDate(-1, 0, 0))
		rec.ExpirationDate = isoDate(now.AddDate(0, -1, 0))
		result := p.Validate(rec)
		if !result.Valid {
			t.Errorf("expired policy should warn, not error: %v", result.Errors)
		}
		if len(result.Warnings) != 1 {
			t.Errorf("Warnings = %v, want 1", result.Warnings)
		}
	})

	t.Run("short VIN warns", func(t *testing.T) {
		rec := base()
		rec.VIN = "1HGBH41JX"
		result := p.Validate(rec)
		if !result.Valid {
			t.Errorf("bad card VIN should warn, not error: %v", result.Errors)
		}
		if len(result.Warnings) != 1 {
			t.Errorf("Warnings = %v, want 1", result.Warnings)
		}
	})

	t.Run("unparseable date errors", func(t *testing.T) {
		rec := base()
		rec.ExpirationDate = "mid next year"
		result := p.Validate(rec)
		if result.Valid {
			t.Error("unparseable expiration date should be an error")
		}
	})

	t.Run("missing policyholder name errors", func(t *testing.T) {
		rec := base()
		rec.PolicyholderName = ""
		result := p.Validate(rec)
		if result.Valid {
			t.Error("missing policyholder name should be an error")
		}
	})

	t.Run("missing coverage dates warn", func(t *testing.T) {
		rec := base()
		rec.EffectiveDate = ""
		rec.ExpirationDate = ""
		result := p.Validate(rec)
		if !result.Valid {
			t.Errorf("missing dates should warn, not error: %v", result.Errors)
		}
		if len(result.Warnings) != 2 {
			t.Errorf("Warnings = %v, want one per missing date", result.Warnings)
		}
	})

	t.Run("not yet effective warns", func(t *testing.T) {
		rec := base()
		rec.EffectiveDate = isoDate(now.AddDate(0, 1, 0))
		rec.ExpirationDate = isoDate(now.AddDate(1, 1, 0))
		result := p.Validate(rec)
		if !result.Valid {
			t.Errorf("future policy should warn, not error: %v", result.Errors)
		}
		if len(result.Warnings) != 1 {
			t.Errorf("Warnings = %v, want not-yet-effective warning", result.Warnings)
		}
	})
}

func TestInsuranceProcessor_Enrich(t *testing.T) {
	decoder := &stubDecoder{spec: &vindecode.VehicleSpec{
		Make:  "Honda",
		Model: "Accord",
		Year:  2002,
	}}
	p := processor.NewInsuranceProcessor(decoder)
	now := time.Now()

	rec := &domain.InsuranceRecord{
		PolicyNumber:     "POL-998877",
		Carrier:          "State Farm",
		PolicyholderName: "Jane Doe",
		EffectiveDate:    isoDate(now.AddDate(0, -3, 0)),
		ExpirationDate:   isoDate(now.AddDate(0, 3, 0)),
		VIN:              "1HGBH41JXMN109186",
	}

	enriched := p.Enrich(context.Background(), rec).(*domain.InsuranceRecord)

	if enriched.IsActive == nil || !*enriched.IsActive {
		t.Errorf("IsActive = %v, want true", enriched.IsActive)
	}
	if enriched.DaysUntilExpiration == nil || *enriched.DaysUntilExpiration <= 0 {
		t.Errorf("DaysUntilExpiration = %v, want positive", enriched.DaysUntilExpiration)
	}
	if enriched.Vehicle == nil {
		t.Fatal("expected nested decoded vehicle")
	}
	if enriched.Vehicle.Make != "Honda" || enriched.Vehicle.Year != 2002 {
		t.Errorf("nested vehicle = %s %d, want Honda 2002", enriched.Vehicle.Make, enriched.Vehicle.Year)
	}
	if !enriched.Vehicle.CheckDigitValid {
		t.Error("nested vehicle check digit should validate")
	}
}

func TestInsuranceProcessor_EnrichDecodeFailureTolerated(t *testing.T) {
	decoder := &stubDecoder{err: errors.New("timeout")}
	p := processor.NewInsuranceProcessor(decoder)

	rec := &domain.InsuranceRecord{
		PolicyNumber:     "POL-998877",
		Carrier:          "State Farm",
		PolicyholderName: "Jane Doe",
		VIN:              "1HGBH41JXMN109186",
	}

	enriched := p.Enrich(context.Background(), rec).(*domain.InsuranceRecord)
	if enriched.Vehicle != nil {
		t.Error("failed decode should leave nested vehicle unset")
	}
}

func TestInsuranceProcessor_Format(t *testing.T) {
	p := processor.NewInsuranceProcessor(nil)

	tests := []struct {
		name string
		rec  *domain.InsuranceRecord
		want string
	}{
		{
			name: "with decoded vehicle",
			rec: &domain.InsuranceRecord{
				PolicyNumber: "POL-998877",
				Carrier:      "State Farm",
				Vehicle:      &domain.VINRecord{Make: "Honda", Model: "Accord", Year: 2002},
			},
			want: "State Farm - 2002 Honda Accord - Policy #POL-998877",
		},
		{
			name: "with card fields only",
			rec: &domain.InsuranceRecord{
				PolicyNumber: "POL-998877",
				Carrier:      "State Farm",
				VehicleYear:  "2002",
				VehicleMake:  "HOND",
			},
			want: "State Farm - 2002 HOND - Policy #POL-998877",
		},
		{
			name: "no vehicle",
			rec: &domain.InsuranceRecord{
				PolicyNumber: "POL-998877",
				Carrier:      "State Farm",
			},
			want: "State Farm - Policy #POL-998877",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Format(tt.rec); got != tt.want {
				t.Errorf("Format = %q, want %q", got, tt.want)
			}
		})
	}
}

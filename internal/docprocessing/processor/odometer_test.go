package processor_test

import (
	"context"
	"testing"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/processor"
)

func int64Ptr(v int64) *int64 { return &v }

func TestOdometerProcessor_Extract(t *testing.T) {
	p := processor.NewOdometerProcessor()

	tests := []struct {
		name        string
		raw         string
		wantReading int64
		wantUnit    string
		wantAssumed bool
		wantErr     bool
	}{
		{
			name:        "miles with unit word",
			raw:         "87432 miles",
			wantReading: 87432,
			wantUnit:    domain.UnitMiles,
		},
		{
			name:        "comma grouped",
			raw:         "87,432 MILES",
			wantReading: 87432,
			wantUnit:    domain.UnitMiles,
		},
		{
			name:        "kilometers abbreviated",
			raw:         "140700 km",
			wantReading: 140700,
			wantUnit:    domain.UnitKilometers,
		},
		{
			name:        "no unit assumes miles",
			raw:         "87432",
			wantReading: 87432,
			wantUnit:    domain.UnitMiles,
			wantAssumed: true,
		},
		{
			name:        "surrounding prose",
			raw:         "The odometer shows 87,432 mi on the display",
			wantReading: 87432,
			wantUnit:    domain.UnitMiles,
		},
		{
			name:    "sentinel",
			raw:     "NOT_FOUND",
			wantErr: true,
		},
		{
			name:    "no digits",
			raw:     "dashboard is too dark to read",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := p.Extract(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			odo := rec.(*domain.OdometerRecord)
			if odo.Reading == nil || *odo.Reading != tt.wantReading {
				t.Errorf("Reading = %v, want %d", odo.Reading, tt.wantReading)
			}
			if odo.Unit != tt.wantUnit {
				t.Errorf("Unit = %q, want %q", odo.Unit, tt.wantUnit)
			}
			if odo.UnitAssumed != tt.wantAssumed {
				t.Errorf("UnitAssumed = %v, want %v", odo.UnitAssumed, tt.wantAssumed)
			}
		})
	}
}

func TestOdometerProcessor_Validate(t *testing.T) {
	p := processor.NewOdometerProcessor()

	tests := []struct {
		name         string
		rec          *domain.OdometerRecord
		wantValid    bool
		wantWarnings int
	}{
		{
			name:      "typical reading",
			rec:       &domain.OdometerRecord{Reading: int64Ptr(87432), Unit: domain.UnitMiles, DigitCount: 5},
			wantValid: true,
		},
		{
			name:      "missing reading",
			rec:       &domain.OdometerRecord{Unit: domain.UnitMiles},
			wantValid: false,
		},
		{
			name:      "negative reading",
			rec:       &domain.OdometerRecord{Reading: int64Ptr(-5), Unit: domain.UnitMiles},
			wantValid: false,
		},
		{
			name:         "over a million warns",
			rec:          &domain.OdometerRecord{Reading: int64Ptr(1_200_000), Unit: domain.UnitMiles, DigitCount: 7},
			wantValid:    true,
			wantWarnings: 2, // over 1M and over 500k miles
		},
		{
			name:         "assumed unit warns",
			rec:          &domain.OdometerRecord{Reading: int64Ptr(87432), Unit: domain.UnitMiles, UnitAssumed: true, DigitCount: 5},
			wantValid:    true,
			wantWarnings: 1,
		},
		{
			name:         "possible rollover warns",
			rec:          &domain.OdometerRecord{Reading: int64Ptr(2500), Unit: domain.UnitMiles, DigitCount: 6},
			wantValid:    true,
			wantWarnings: 1,
		},
		{
			name:         "trip meter suspicion",
			rec:          &domain.OdometerRecord{Reading: int64Ptr(42), Unit: domain.UnitMiles, DigitCount: 2},
			wantValid:    true,
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := p.Validate(tt.rec)
			if result.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors: %v)", result.Valid, tt.wantValid, result.Errors)
			}
			if tt.wantValid && len(result.Warnings) != tt.wantWarnings {
				t.Errorf("Warnings = %v, want %d", result.Warnings, tt.wantWarnings)
			}
		})
	}
}

func TestOdometerProcessor_EnrichConversionRoundTrip(t *testing.T) {
	p := processor.NewOdometerProcessor()

	// Converting to the other unit and back should land within a mile.
	miles := int64(87432)
	rec := &domain.OdometerRecord{Reading: &miles, Unit: domain.UnitMiles, DigitCount: 5}

	enriched := p.Enrich(context.Background(), rec).(*domain.OdometerRecord)
	if enriched.EstimatedMiles != miles {
		t.Errorf("EstimatedMiles = %d, want %d", enriched.EstimatedMiles, miles)
	}

	km := enriched.EstimatedKilometers
	back := &domain.OdometerRecord{Reading: &km, Unit: domain.UnitKilometers, DigitCount: 6}
	roundTrip := p.Enrich(context.Background(), back).(*domain.OdometerRecord)

	diff := roundTrip.EstimatedMiles - miles
	if diff < -1 || diff > 1 {
		t.Errorf("round trip %d mi -> %d km -> %d mi, want within 1", miles, km, roundTrip.EstimatedMiles)
	}
}

func TestOdometerProcessor_MileageCategories(t *testing.T) {
	p := processor.NewOdometerProcessor()

	tests := []struct {
		miles int64
		want  string
	}{
		{0, domain.MileageLow},
		{29_999, domain.MileageLow},
		{30_000, domain.MileageMedium},
		{74_999, domain.MileageMedium},
		{75_000, domain.MileageHigh},
		{149_999, domain.MileageHigh},
		{150_000, domain.MileageVeryHigh},
		{320_000, domain.MileageVeryHigh},
	}

	for _, tt := range tests {
		rec := &domain.OdometerRecord{Reading: int64Ptr(tt.miles), Unit: domain.UnitMiles}
		enriched := p.Enrich(context.Background(), rec).(*domain.OdometerRecord)
		if enriched.MileageCategory != tt.want {
			t.Errorf("category(%d mi) = %q, want %q", tt.miles, enriched.MileageCategory, tt.want)
		}
	}
}

func TestOdometerProcessor_DisplayAndFormat(t *testing.T) {
	p := processor.NewOdometerProcessor()

	rec := &domain.OdometerRecord{Reading: int64Ptr(87432), Unit: domain.UnitMiles, DigitCount: 5}
	enriched := p.Enrich(context.Background(), rec).(*domain.OdometerRecord)

	if enriched.Display != "87,432 mi" {
		t.Errorf("Display = %q, want %q", enriched.Display, "87,432 mi")
	}
	if got := p.Format(enriched); got != "87,432 mi" {
		t.Errorf("Format = %q, want %q", got, "87,432 mi")
	}

	km := int64(1_234_567)
	kmRec := &domain.OdometerRecord{Reading: &km, Unit: domain.UnitKilometers}
	kmEnriched := p.Enrich(context.Background(), kmRec).(*domain.OdometerRecord)
	if kmEnriched.Display != "1,234,567 km" {
		t.Errorf("Display = %q, want %q", kmEnriched.Display, "1,234,567 km")
	}
}

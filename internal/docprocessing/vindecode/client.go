// Package vindecode calls the public vPIC-compatible VIN decode API to
// turn a VIN into vehicle specifications (make, model, year, body type).
package vindecode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/motorlog/motorlog-backend/pkg/config"
)

// VehicleSpec holds the decoded vehicle attributes for a VIN.
type VehicleSpec struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Trim         string `json:"trim,omitempty"`
	Year         int    `json:"year"`
	BodyType     string `json:"body_type,omitempty"`
	EngineModel  string `json:"engine_model,omitempty"`
	FuelType     string `json:"fuel_type,omitempty"`
	PlantCountry string `json:"plant_country,omitempty"`
}

// Client is an HTTP client for the VIN decode service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a VIN decode client from configuration.
func NewClient(cfg *config.DecodeConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// decodeResponse mirrors the vPIC flat-format response envelope.
type decodeResponse struct {
	Count   int              `json:"Count"`
	Results []decodedVehicle `json:"Results"`
}

type decodedVehicle struct {
	Make         string `json:"Make"`
	Model        string `json:"Model"`
	Trim         string `json:"Trim"`
	ModelYear    string `json:"ModelYear"`
	BodyClass    string `json:"BodyClass"`
	EngineModel  string `json:"EngineModel"`
	FuelType     string `json:"FuelTypePrimary"`
	PlantCountry string `json:"PlantCountry"`
	ErrorCode    string `json:"ErrorCode"`
	ErrorText    string `json:"ErrorText"`
}

// Decode looks up vehicle specifications for a VIN.
func (c *Client) Decode(ctx context.Context, vin string) (*VehicleSpec, error) {
	u := fmt.Sprintf("%s/vehicles/DecodeVinValues/%s?format=json", c.baseURL, url.PathEscape(vin))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("vindecode: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vindecode: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vindecode: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vindecode: service returned %d: %s", resp.StatusCode, string(body))
	}

	var decoded decodeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("vindecode: parse response: %w", err)
	}
	if len(decoded.Results) == 0 {
		return nil, fmt.Errorf("vindecode: empty result set for VIN %s", vin)
	}

	r := decoded.Results[0]
	// ErrorCode "0" means clean decode; "1" and above carry partial or
	// failed decodes. A result with no make is not usable.
	if r.Make == "" {
		if r.ErrorText != "" {
			return nil, fmt.Errorf("vindecode: decode failed: %s", r.ErrorText)
		}
		return nil, fmt.Errorf("vindecode: no vehicle data for VIN %s", vin)
	}

	spec := &VehicleSpec{
		Make:         r.Make,
		Model:        r.Model,
		Trim:         r.Trim,
		BodyType:     r.BodyClass,
		EngineModel:  r.EngineModel,
		FuelType:     r.FuelType,
		PlantCountry: r.PlantCountry,
	}
	if year, err := strconv.Atoi(r.ModelYear); err == nil {
		spec.Year = year
	}
	return spec, nil
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/motorlog/motorlog-backend/internal/vehicle/repository"
	"github.com/motorlog/motorlog-backend/internal/vehicle/service"
	"github.com/motorlog/motorlog-backend/pkg/errors"
	"github.com/motorlog/motorlog-backend/pkg/httputil"
	"github.com/motorlog/motorlog-backend/pkg/logger"
)

// VehicleHandler handles HTTP requests for vehicles
type VehicleHandler struct {
	service *service.VehicleService
	log     *logger.Logger
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(svc *service.VehicleService, log *logger.Logger) *VehicleHandler {
	return &VehicleHandler{
		service: svc,
		log:     log,
	}
}

// Routes mounts the vehicle endpoints on a chi router.
func (h *VehicleHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Route("/{vehicleId}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Put("/vin", h.AttachVIN)
		r.Put("/odometer", h.UpdateOdometer)
	})
}

type createVehicleRequest struct {
	GarageID     *string `json:"garage_id,omitempty" validate:"omitempty,uuid"`
	Name         string  `json:"name" validate:"required,min=1,max=100"`
	VIN          *string `json:"vin,omitempty"`
	LicensePlate *string `json:"license_plate,omitempty" validate:"omitempty,max=8"`
	PlateState   *string `json:"plate_state,omitempty" validate:"omitempty,len=2"`
	Notes        *string `json:"notes,omitempty"`
}

// Create handles POST /api/v1/vehicles
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createVehicleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	v := &repository.Vehicle{
		GarageID:     req.GarageID,
		Name:         req.Name,
		VIN:          req.VIN,
		LicensePlate: req.LicensePlate,
		PlateState:   req.PlateState,
		Notes:        req.Notes,
	}

	if err := h.service.CreateVehicle(r.Context(), v); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, v)
}

// Get handles GET /api/v1/vehicles/{vehicleId}
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vehicleId")

	v, err := h.service.GetVehicle(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, v)
}

// List handles GET /api/v1/vehicles
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	vehicles, total, err := h.service.ListVehicles(r.Context(), page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	httputil.JSONWithMeta(w, http.StatusOK, vehicles, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

type updateVehicleRequest struct {
	GarageID     *string `json:"garage_id,omitempty" validate:"omitempty,uuid"`
	Name         string  `json:"name" validate:"required,min=1,max=100"`
	LicensePlate *string `json:"license_plate,omitempty" validate:"omitempty,max=8"`
	PlateState   *string `json:"plate_state,omitempty" validate:"omitempty,len=2"`
	Notes        *string `json:"notes,omitempty"`
}

// Update handles PUT /api/v1/vehicles/{vehicleId}
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vehicleId")

	var req updateVehicleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	v := &repository.Vehicle{
		ID:           id,
		GarageID:     req.GarageID,
		Name:         req.Name,
		LicensePlate: req.LicensePlate,
		PlateState:   req.PlateState,
		Notes:        req.Notes,
	}

	if err := h.service.UpdateVehicle(r.Context(), v); err != nil {
		httputil.Error(w, err)
		return
	}

	updated, err := h.service.GetVehicle(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/vehicles/{vehicleId}
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vehicleId")

	if err := h.service.DeleteVehicle(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

type attachVINRequest struct {
	VIN string `json:"vin" validate:"required,len=17"`
}

// AttachVIN handles PUT /api/v1/vehicles/{vehicleId}/vin
// Decodes the VIN and stores the resulting specification on the vehicle.
func (h *VehicleHandler) AttachVIN(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vehicleId")

	var req attachVINRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	v, err := h.service.AttachVIN(r.Context(), id, req.VIN)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, v)
}

type updateOdometerRequest struct {
	Miles *int64 `json:"miles" validate:"required,min=0"`
}

// UpdateOdometer handles PUT /api/v1/vehicles/{vehicleId}/odometer
func (h *VehicleHandler) UpdateOdometer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vehicleId")

	var req updateOdometerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}
	if req.Miles == nil {
		httputil.Error(w, errors.BadRequest("miles is required"))
		return
	}

	if err := h.service.UpdateOdometer(r.Context(), id, *req.Miles, service.SourceManual); err != nil {
		httputil.Error(w, err)
		return
	}

	v, err := h.service.GetVehicle(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, v)
}

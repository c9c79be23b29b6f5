package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/motorlog/motorlog-backend/internal/vehicle/repository"
	"github.com/motorlog/motorlog-backend/internal/vehicle/service"
	"github.com/motorlog/motorlog-backend/pkg/httputil"
	"github.com/motorlog/motorlog-backend/pkg/logger"
)

// GarageHandler handles HTTP requests for garages
type GarageHandler struct {
	service *service.VehicleService
	log     *logger.Logger
}

// NewGarageHandler creates a new garage handler
func NewGarageHandler(svc *service.VehicleService, log *logger.Logger) *GarageHandler {
	return &GarageHandler{
		service: svc,
		log:     log,
	}
}

// Routes mounts the garage endpoints on a chi router.
func (h *GarageHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Route("/{garageId}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

type garageRequest struct {
	Name    string  `json:"name" validate:"required,min=1,max=100"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	State   *string `json:"state,omitempty" validate:"omitempty,len=2"`
	ZipCode *string `json:"zip_code,omitempty" validate:"omitempty,max=10"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Notes   *string `json:"notes,omitempty"`
}

// Create handles POST /api/v1/garages
func (h *GarageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req garageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	g := &repository.Garage{
		Name:    req.Name,
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		ZipCode: req.ZipCode,
		Phone:   req.Phone,
		Notes:   req.Notes,
	}

	if err := h.service.CreateGarage(r.Context(), g); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, g)
}

// Get handles GET /api/v1/garages/{garageId}
func (h *GarageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "garageId")

	g, err := h.service.GetGarage(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, g)
}

// List handles GET /api/v1/garages
func (h *GarageHandler) List(w http.ResponseWriter, r *http.Request) {
	garages, err := h.service.ListGarages(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, garages)
}

// Update handles PUT /api/v1/garages/{garageId}
func (h *GarageHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "garageId")

	var req garageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	g := &repository.Garage{
		ID:      id,
		Name:    req.Name,
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		ZipCode: req.ZipCode,
		Phone:   req.Phone,
		Notes:   req.Notes,
	}

	if err := h.service.UpdateGarage(r.Context(), g); err != nil {
		httputil.Error(w, err)
		return
	}

	updated, err := h.service.GetGarage(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/garages/{garageId}
func (h *GarageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "garageId")

	if err := h.service.DeleteGarage(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

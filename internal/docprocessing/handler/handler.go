package handler

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/service"
	"github.com/motorlog/motorlog-backend/pkg/errors"
	"github.com/motorlog/motorlog-backend/pkg/httputil"
	"github.com/motorlog/motorlog-backend/pkg/logger"
)

const maxUploadSize = 20 << 20 // 20MB

// Handler handles HTTP requests for document capture and processing
type Handler struct {
	service *service.Service
	log     *logger.Logger
}

// NewHandler creates a new document capture handler
func NewHandler(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{
		service: svc,
		log:     log,
	}
}

// Routes mounts the document endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/captures", func(r chi.Router) {
		r.Post("/", h.Capture)
		r.Get("/{captureId}", h.GetCapture)
	})
	r.Post("/process", h.Process)
	r.Get("/kinds", h.Kinds)
}

// Capture handles POST /api/v1/documents/captures
// Accepts multipart form with:
// - file: the document image (JPEG or PNG)
// - kind: one of vin, license-plate, drivers-license, insurance, odometer
// - vehicle_id: optional vehicle to associate the capture with
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httputil.Error(w, errors.BadRequest("file too large or invalid multipart form"))
		return
	}

	kind := domain.DocumentKind(r.FormValue("kind"))
	if !kind.IsValid() {
		httputil.Error(w, errors.BadRequest(
			"invalid kind; must be one of: vin, license-plate, drivers-license, insurance, odometer"))
		return
	}

	var vehicleID *string
	if v := r.FormValue("vehicle_id"); v != "" {
		vehicleID = &v
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing file in request"))
		return
	}
	defer file.Close()

	// Read file into memory; it is never written to disk and the service
	// zeroes it after processing.
	imageData, err := io.ReadAll(file)
	if err != nil {
		httputil.Error(w, errors.Internal("failed to read uploaded file"))
		return
	}

	userID := httputil.GetUserID(r.Context())

	capture, err := h.service.CaptureImage(r.Context(), imageData, kind, vehicleID, userID)
	if err != nil {
		httputil.Error(w, mapPipelineError(err, capture))
		return
	}

	httputil.JSON(w, http.StatusOK, capture)
}

// processRequest is the body for POST /api/v1/documents/process
type processRequest struct {
	Kind      string  `json:"kind" validate:"required"`
	Text      string  `json:"text" validate:"required"`
	VehicleID *string `json:"vehicle_id,omitempty"`
}

// Process handles POST /api/v1/documents/process
// Runs the extraction pipeline on raw text, bypassing the vision service.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	kind := domain.DocumentKind(req.Kind)
	if !kind.IsValid() {
		httputil.Error(w, errors.BadRequest(
			"invalid kind; must be one of: vin, license-plate, drivers-license, insurance, odometer"))
		return
	}

	userID := httputil.GetUserID(r.Context())

	capture, err := h.service.ProcessText(r.Context(), req.Text, kind, req.VehicleID, userID)
	if err != nil {
		httputil.Error(w, mapPipelineError(err, capture))
		return
	}

	httputil.JSON(w, http.StatusOK, capture)
}

// GetCapture handles GET /api/v1/documents/captures/{captureId}
func (h *Handler) GetCapture(w http.ResponseWriter, r *http.Request) {
	captureID := chi.URLParam(r, "captureId")
	if captureID == "" {
		httputil.Error(w, errors.BadRequest("missing captureId parameter"))
		return
	}

	capture := h.service.GetCapture(captureID)
	if capture == nil {
		httputil.Error(w, errors.NotFound("capture"))
		return
	}

	httputil.JSON(w, http.StatusOK, capture)
}

// Kinds handles GET /api/v1/documents/kinds
func (h *Handler) Kinds(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, h.service.Kinds())
}

// mapPipelineError converts pipeline failures into transport errors.
// Extraction failures are the client's problem (unreadable or absent
// document); malformed vision payloads are an upstream fault.
func mapPipelineError(err error, capture *domain.Capture) error {
	appErr := func() *errors.AppError {
		var malformed *domain.MalformedPayloadError
		switch {
		case stderrors.Is(err, domain.ErrUnknownKind):
			return errors.BadRequest(err.Error())
		case stderrors.Is(err, domain.ErrNoDocument):
			return errors.Unprocessable("no document of the requested kind was detected")
		case stderrors.As(err, &malformed):
			return errors.Unavailable("vision service returned an unreadable payload")
		case service.IsExtractionFailure(err):
			return errors.Unprocessable(err.Error())
		default:
			return errors.Internal("document processing failed")
		}
	}()

	if capture != nil {
		appErr = appErr.WithDetails(map[string]string{"capture_id": capture.ID})
	}
	return appErr
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/handler"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/processor"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/service"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/storage"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/vindecode"
	"github.com/motorlog/motorlog-backend/pkg/httputil"
	"github.com/motorlog/motorlog-backend/pkg/logger"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}

type stubVision struct {
	response string
}

func (s *stubVision) Analyze(_ context.Context, _ []byte, _ domain.Metadata, _ domain.DocumentKind) (string, error) {
	return s.response, nil
}

type stubDecoder struct{}

func (stubDecoder) Decode(_ context.Context, _ string) (*vindecode.VehicleSpec, error) {
	return &vindecode.VehicleSpec{Make: "Honda", Model: "Accord", Year: 2002}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func newTestRouter(visionResponse string) chi.Router {
	log := logger.New("document-service-test", "development")
	registry := processor.NewDefaultRegistry(stubDecoder{})
	store := storage.NewCaptureStore(time.Minute)
	svc := service.NewService(registry, &stubVision{response: visionResponse}, store, nil, nil, log)
	h := handler.NewHandler(svc, log)

	r := chi.NewRouter()
	r.Use(httputil.UserContext)
	r.Route("/api/v1/documents", h.Routes)
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return rr, env
}

func TestHandler_Process_VIN(t *testing.T) {
	router := newTestRouter("")

	rr, env := doJSON(t, router, http.MethodPost, "/api/v1/documents/process", map[string]string{
		"kind": "vin",
		"text": "1HGBH41JXMN109186",
	})

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, env.Success)

	var capture struct {
		CaptureID  string `json:"capture_id"`
		Status     string `json:"status"`
		Summary    string `json:"summary"`
		Validation struct {
			Valid bool `json:"valid"`
		} `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &capture))
	assert.Equal(t, "completed", capture.Status)
	assert.True(t, capture.Validation.Valid)
	assert.Equal(t, "2002 Honda Accord", capture.Summary)
	assert.NotEmpty(t, capture.CaptureID)

	// The capture is retrievable afterwards.
	rr2, env2 := doJSON(t, router, http.MethodGet, "/api/v1/documents/captures/"+capture.CaptureID, nil)
	assert.Equal(t, http.StatusOK, rr2.Code)
	assert.True(t, env2.Success)
}

func TestHandler_Process_UnknownKind(t *testing.T) {
	router := newTestRouter("")

	rr, env := doJSON(t, router, http.MethodPost, "/api/v1/documents/process", map[string]string{
		"kind": "boat-registration",
		"text": "something",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotNil(t, env.Error)
}

func TestHandler_Process_MissingFields(t *testing.T) {
	router := newTestRouter("")

	rr, _ := doJSON(t, router, http.MethodPost, "/api/v1/documents/process", map[string]string{
		"kind": "vin",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Process_ExtractionFailureIs422(t *testing.T) {
	router := newTestRouter("")

	rr, env := doJSON(t, router, http.MethodPost, "/api/v1/documents/process", map[string]string{
		"kind": "vin",
		"text": "no number visible here",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.NotNil(t, env.Error)
	assert.NotEmpty(t, env.Error.Details["capture_id"], "failed capture should still be addressable")
}

func TestHandler_Process_NoDocumentIs422(t *testing.T) {
	router := newTestRouter("")

	rr, _ := doJSON(t, router, http.MethodPost, "/api/v1/documents/process", map[string]string{
		"kind": "insurance",
		"text": `{"error": "NO_DOCUMENT"}`,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandler_Process_MalformedPayloadIs502(t *testing.T) {
	router := newTestRouter("")

	rr, _ := doJSON(t, router, http.MethodPost, "/api/v1/documents/process", map[string]string{
		"kind": "insurance",
		"text": "not json at all",
	})

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestHandler_GetCapture_NotFound(t *testing.T) {
	router := newTestRouter("")

	rr, _ := doJSON(t, router, http.MethodGet, "/api/v1/documents/captures/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_Kinds(t *testing.T) {
	router := newTestRouter("")

	rr, env := doJSON(t, router, http.MethodGet, "/api/v1/documents/kinds", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var kinds []struct {
		Kind    string `json:"kind"`
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &kinds))
	assert.Len(t, kinds, 5)
}

func TestHandler_Capture_Multipart(t *testing.T) {
	router := newTestRouter("87,432 miles")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "odometer.jpg")
	require.NoError(t, err)
	_, err = part.Write(jpegHeader)
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("kind", "odometer"))
	require.NoError(t, writer.WriteField("vehicle_id", "veh-42"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/captures", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", "user-7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.True(t, env.Success)

	var capture struct {
		Status    string  `json:"status"`
		Summary   string  `json:"summary"`
		VehicleID *string `json:"vehicle_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &capture))
	assert.Equal(t, "completed", capture.Status)
	assert.Equal(t, "87,432 mi", capture.Summary)
	require.NotNil(t, capture.VehicleID)
	assert.Equal(t, "veh-42", *capture.VehicleID)
}

func TestHandler_Capture_InvalidKind(t *testing.T) {
	router := newTestRouter("")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("kind", "passport"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/captures", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Capture_MissingFile(t *testing.T) {
	router := newTestRouter("")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("kind", "vin"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/captures", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/vindecode"
	"github.com/motorlog/motorlog-backend/internal/vehicle/repository"
	"github.com/motorlog/motorlog-backend/internal/vehicle/service"
	"github.com/motorlog/motorlog-backend/pkg/errors"
	"github.com/motorlog/motorlog-backend/pkg/logger"
	"github.com/motorlog/motorlog-backend/pkg/testutil"
)

var vehicleCols = []string{
	"id", "garage_id", "name", "vin", "license_plate", "plate_state",
	"make", "model", "trim", "year", "body_type",
	"odometer_miles", "mileage_category", "notes",
	"created_at", "updated_at",
}

type stubDecoder struct {
	spec *vindecode.VehicleSpec
	err  error
}

func (d *stubDecoder) Decode(_ context.Context, _ string) (*vindecode.VehicleSpec, error) {
	return d.spec, d.err
}

type recordingPublisher struct {
	vinAttached     []string
	odometerUpdates []int64
	odometerSources []string
	vehiclesCreated []string
	vehiclesDeleted []string
}

func (p *recordingPublisher) PublishVehicleCreated(_ context.Context, v *repository.Vehicle) {
	p.vehiclesCreated = append(p.vehiclesCreated, v.ID)
}
func (p *recordingPublisher) PublishVehicleUpdated(_ context.Context, _ *repository.Vehicle) {}
func (p *recordingPublisher) PublishVehicleDeleted(_ context.Context, id string) {
	p.vehiclesDeleted = append(p.vehiclesDeleted, id)
}
func (p *recordingPublisher) PublishVINAttached(_ context.Context, v *repository.Vehicle) {
	p.vinAttached = append(p.vinAttached, v.ID)
}
func (p *recordingPublisher) PublishOdometerUpdated(_ context.Context, _ string, miles int64, source string) {
	p.odometerUpdates = append(p.odometerUpdates, miles)
	p.odometerSources = append(p.odometerSources, source)
}
func (p *recordingPublisher) PublishGarageCreated(_ context.Context, _ *repository.Garage) {}
func (p *recordingPublisher) PublishGarageDeleted(_ context.Context, _ string)            {}

func newTestService(t *testing.T, decoder service.Decoder, events service.EventPublisher) (*service.VehicleService, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	vehicles := repository.NewVehicleRepository(mockDB.DB)
	garages := repository.NewGarageRepository(mockDB.DB)
	log := logger.New("test", "development")

	return service.NewVehicleService(vehicles, garages, decoder, events, log), mockDB
}

func vehicleRow(id string, miles *int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(vehicleCols).AddRow(
		id, nil, "Daily Driver", nil, nil, nil,
		nil, nil, nil, nil, nil,
		miles, nil, nil,
		now, now,
	)
}

func TestAttachVIN_RejectsMalformedVIN(t *testing.T) {
	svc, mockDB := newTestService(t, nil, nil)

	_, err := svc.AttachVIN(context.Background(), "veh-1", "TOOSHORT")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = svc.AttachVIN(context.Background(), "veh-1", "1HGBH41JXMN10918O") // illegal O
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	mockDB.ExpectationsWereMet(t)
}

func TestAttachVIN_NormalizesAndDecodes(t *testing.T) {
	events := &recordingPublisher{}
	decoder := &stubDecoder{spec: &vindecode.VehicleSpec{Make: "HONDA", Model: "Accord", Year: 2002}}
	svc, mockDB := newTestService(t, decoder, events)

	mockDB.Mock.ExpectExec("UPDATE vehicles SET").
		WithArgs("veh-1", "1HGBH41JXMN109186", "HONDA", "Accord", nil, 2002, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectQuery("SELECT").
		WithArgs("veh-1").
		WillReturnRows(vehicleRow("veh-1", nil))

	v, err := svc.AttachVIN(context.Background(), "veh-1", " 1hgbh41jxmn109186 ")
	require.NoError(t, err)
	assert.Equal(t, "veh-1", v.ID)
	assert.Equal(t, []string{"veh-1"}, events.vinAttached)

	mockDB.ExpectationsWereMet(t)
}

func TestAttachVIN_DecodeFailureStillAttaches(t *testing.T) {
	decoder := &stubDecoder{err: assert.AnError}
	svc, mockDB := newTestService(t, decoder, nil)

	mockDB.Mock.ExpectExec("UPDATE vehicles SET").
		WithArgs("veh-1", "1HGBH41JXMN109186", nil, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectQuery("SELECT").
		WithArgs("veh-1").
		WillReturnRows(vehicleRow("veh-1", nil))

	_, err := svc.AttachVIN(context.Background(), "veh-1", "1HGBH41JXMN109186")
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestUpdateOdometer_RejectsNegative(t *testing.T) {
	svc, mockDB := newTestService(t, nil, nil)

	err := svc.UpdateOdometer(context.Background(), "veh-1", -1, service.SourceManual)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	mockDB.ExpectationsWereMet(t)
}

func TestUpdateOdometer_ManualRollbackRejected(t *testing.T) {
	svc, mockDB := newTestService(t, nil, nil)

	current := int64(100_000)
	mockDB.Mock.ExpectQuery("SELECT").
		WithArgs("veh-1").
		WillReturnRows(vehicleRow("veh-1", &current))

	err := svc.UpdateOdometer(context.Background(), "veh-1", 50_000, service.SourceManual)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	mockDB.ExpectationsWereMet(t)
}

func TestUpdateOdometer_CaptureOverridesLowerReading(t *testing.T) {
	events := &recordingPublisher{}
	svc, mockDB := newTestService(t, nil, events)

	// No GetByID: a capture is taken as ground truth.
	mockDB.Mock.ExpectExec("UPDATE vehicles SET").
		WithArgs("veh-1", int64(50_000), "medium").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.UpdateOdometer(context.Background(), "veh-1", 50_000, service.SourceDocumentCapture)
	require.NoError(t, err)
	assert.Equal(t, []int64{50_000}, events.odometerUpdates)
	assert.Equal(t, []string{service.SourceDocumentCapture}, events.odometerSources)

	mockDB.ExpectationsWereMet(t)
}

func TestUpdateOdometer_CategoryBoundaries(t *testing.T) {
	events := &recordingPublisher{}
	svc, mockDB := newTestService(t, nil, events)

	cases := []struct {
		miles    int64
		category string
	}{
		{29_999, "low"},
		{30_000, "medium"},
		{150_000, "very-high"},
	}

	for _, tc := range cases {
		mockDB.Mock.ExpectExec("UPDATE vehicles SET").
			WithArgs("veh-1", tc.miles, tc.category).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := svc.UpdateOdometer(context.Background(), "veh-1", tc.miles, service.SourceDocumentCapture)
		require.NoError(t, err)
	}

	mockDB.ExpectationsWereMet(t)
}

func TestCreateVehicle_NormalizesVIN(t *testing.T) {
	events := &recordingPublisher{}
	svc, mockDB := newTestService(t, nil, events)

	now := time.Now()
	mockDB.Mock.ExpectQuery("INSERT INTO vehicles").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	vin := "1hgbh41jxmn109186"
	v := &repository.Vehicle{Name: "Daily Driver", VIN: &vin}
	err := svc.CreateVehicle(context.Background(), v)

	require.NoError(t, err)
	assert.Equal(t, "1HGBH41JXMN109186", *v.VIN)
	assert.Len(t, events.vehiclesCreated, 1)

	mockDB.ExpectationsWereMet(t)
}

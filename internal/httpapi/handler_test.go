package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rpattn/cagetrack/internal/auth"
	"github.com/rpattn/cagetrack/internal/domain"
	"github.com/rpattn/cagetrack/internal/ingestion"
	"github.com/rpattn/cagetrack/internal/metrics"
	"github.com/rpattn/cagetrack/internal/notify"
	"github.com/rpattn/cagetrack/internal/report"
	"github.com/rpattn/cagetrack/internal/repository/memory"
	"github.com/rpattn/cagetrack/internal/tracking"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type apiFixture struct {
	t       *testing.T
	handler http.Handler
	svc     *tracking.Service
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)

	svc := tracking.NewService(store, notify.NewLog(10),
		tracking.WithLogger(logger),
		tracking.WithMetrics(m),
		tracking.WithPublicBaseURL("https://laundry.example"),
	)
	handler := NewHandler(Config{
		Tracking:  svc,
		Reports:   report.NewService(store),
		Ingestion: ingestion.NewService(svc, logger),
		Hospitals: store.Repositories().Hospitals,
		Logger:    logger,
		Metrics:   m,
		Registry:  registry,
	})
	return &apiFixture{t: t, handler: handler, svc: svc}
}

func (f *apiFixture) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (f *apiFixture) seedCage(code string) (domain.Hospital, domain.Cage) {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/v1/hospitals", map[string]any{"name": "Hospital Central"})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	hospital := decodeBody[domain.Hospital](f.t, rec)

	rec = f.do(http.MethodPost, "/api/v1/cages", map[string]any{"hospitalId": hospital.ID, "code": code})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	return hospital, decodeBody[domain.Cage](f.t, rec)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.do(http.MethodGet, "/healthz", nil)
	rec = f.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cagetrack_http_requests_total")
}

func TestWeighingFlowRaisesDivergence(t *testing.T) {
	f := newAPIFixture(t)
	_, cage := f.seedCage("GAI-001")
	user := uuid.New()

	rec := f.do(http.MethodPost, "/api/v1/weighings",
		map[string]any{"cageId": cage.ID, "kind": "saida_hospital", "weight": "100"},
		auth.UserHeader, user.String())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	departure := decodeBody[domain.Weighing](t, rec)
	require.NotNil(t, departure.UserID)
	assert.Equal(t, user, *departure.UserID)

	rec = f.do(http.MethodPost, "/api/v1/weighings/scale",
		map[string]any{"cageCode": "GAI-001", "kind": "expedicao", "weight": 58.5, "scaleId": "SC-1"},
		auth.UserHeader, user.String())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dispatch := decodeBody[domain.Weighing](t, rec)
	assert.True(t, dispatch.DivergenceAlert)
	require.NotNil(t, dispatch.DivergencePercent)
	assert.True(t, dispatch.DivergencePercent.Equal(decimal.RequireFromString("-41.5")))
	assert.Nil(t, dispatch.UserID)

	rec = f.do(http.MethodGet, "/api/v1/cages/"+cage.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StageReadyForDispatch, decodeBody[domain.Cage](t, rec).Stage)

	rec = f.do(http.MethodGet, "/api/v1/weighings?cageId="+cage.ID.String()+"&kind=EXPEDICAO", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.Weighing](t, rec), 1)

	rec = f.do(http.MethodGet, "/api/v1/reports/divergences", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeBody[[]report.DivergenceRow](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, "GAI-001", rows[0].Code)
	assert.True(t, rows[0].Divergence.Equal(decimal.RequireFromString("41.5")))

	rec = f.do(http.MethodGet, "/api/v1/reports/divergences?threshold=50", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]report.DivergenceRow](t, rec))

	rec = f.do(http.MethodGet, "/api/v1/notifications?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeBody[[]domain.StageChangeEvent](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, domain.StageReadyForDispatch, events[0].To)
}

func TestErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	hospital, cage := f.seedCage("GAI-001")

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		headers []string
		status  int
	}{
		{"malformed id", http.MethodGet, "/api/v1/cages/not-a-uuid", nil, nil, http.StatusBadRequest},
		{"unknown cage", http.MethodGet, "/api/v1/cages/" + uuid.NewString(), nil, nil, http.StatusNotFound},
		{"unknown code", http.MethodGet, "/api/v1/cages/by-code/NOPE", nil, nil, http.StatusNotFound},
		{"duplicate code", http.MethodPost, "/api/v1/cages", map[string]any{"hospitalId": hospital.ID, "code": "GAI-001"}, nil, http.StatusConflict},
		{"negative weight", http.MethodPost, "/api/v1/weighings", map[string]any{"cageId": cage.ID, "kind": "expedicao", "weight": -1}, nil, http.StatusBadRequest},
		{"missing weight", http.MethodPost, "/api/v1/weighings", map[string]any{"cageId": cage.ID, "kind": "expedicao"}, nil, http.StatusBadRequest},
		{"oversized weight", http.MethodPost, "/api/v1/weighings", map[string]any{"cageId": cage.ID, "kind": "expedicao", "weight": "10000000"}, nil, http.StatusBadRequest},
		{"scale reading without weight", http.MethodPost, "/api/v1/weighings/scale", map[string]any{"cageCode": "GAI-001", "kind": "expedicao"}, nil, http.StatusBadRequest},
		{"bad user header", http.MethodGet, "/api/v1/cages", nil, []string{auth.UserHeader, "nobody"}, http.StatusBadRequest},
		{"bad stage filter", http.MethodGet, "/api/v1/cages?stage=LOST", nil, nil, http.StatusBadRequest},
		{"bad date", http.MethodGet, "/api/v1/reports/productivity?from=10/05/2024", nil, nil, http.StatusBadRequest},
		{"negative threshold", http.MethodGet, "/api/v1/reports/divergences?threshold=-1", nil, nil, http.StatusBadRequest},
		{"bad format", http.MethodGet, "/api/v1/reports/expedition?format=pdf", nil, nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/v1/notifications?limit=x", nil, nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, tt.body, tt.headers...)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestWeighingWithoutWeightIsRejected(t *testing.T) {
	f := newAPIFixture(t)
	_, cage := f.seedCage("GAI-005")

	rec := f.do(http.MethodPost, "/api/v1/weighings", map[string]any{"cageId": cage.ID, "kind": "saida_hospital"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "weight is required")

	rec = f.do(http.MethodPost, "/api/v1/weighings/scale", map[string]any{"cageCode": "GAI-005", "kind": "saida_hospital", "weight": nil})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/weighings?cageId="+cage.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]domain.Weighing](t, rec))

	rec = f.do(http.MethodGet, "/api/v1/cages/"+cage.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cage.Stage, decodeBody[domain.Cage](t, rec).Stage)
}

func TestCageRegistryEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	_, cage := f.seedCage("GAI-010")

	rec := f.do(http.MethodGet, "/api/v1/cages/by-code/GAI-010", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cage.ID, decodeBody[domain.Cage](t, rec).ID)

	rec = f.do(http.MethodPut, "/api/v1/cages/"+cage.ID.String(), map[string]any{"notes": "torn wheel"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[domain.Cage](t, rec)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "torn wheel", *updated.Notes)

	rec = f.do(http.MethodPut, "/api/v1/cages/"+cage.ID.String()+"/stage", map[string]any{"stage": "em_lavagem", "notes": "manual"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.StageWashing, decodeBody[domain.Cage](t, rec).Stage)

	rec = f.do(http.MethodGet, "/api/v1/cages?stage=EM_LAVAGEM", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.Cage](t, rec), 1)

	rec = f.do(http.MethodGet, "/api/v1/cages/"+cage.ID.String()+"/qr-payload", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeBody[domain.QRPayload](t, rec)
	assert.Equal(t, "GAI-010", payload.Code)
	assert.Equal(t, "https://laundry.example/gaiolas/"+cage.ID.String(), payload.URL)

	rec = f.do(http.MethodGet, "/api/v1/hospitals?active=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hospitals := decodeBody[[]domain.Hospital](t, rec)
	require.Len(t, hospitals, 1)

	rec = f.do(http.MethodPut, "/api/v1/hospitals/"+hospitals[0].ID.String(), map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.do(http.MethodGet, "/api/v1/hospitals?active=true", nil)
	assert.Empty(t, decodeBody[[]domain.Hospital](t, rec))
}

func TestTransportAndProcessStepEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	_, cage := f.seedCage("GAI-020")

	rec := f.do(http.MethodPost, "/api/v1/process-steps", map[string]any{"cageId": cage.ID, "kind": "lavagem", "machineId": "W-3"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	step := decodeBody[domain.ProcessStep](t, rec)
	assert.Nil(t, step.EndedAt)

	rec = f.do(http.MethodPut, "/api/v1/process-steps/"+step.ID.String(), map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, decodeBody[domain.ProcessStep](t, rec).EndedAt)

	rec = f.do(http.MethodGet, "/api/v1/process-steps?cageId="+cage.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.ProcessStep](t, rec), 1)

	rec = f.do(http.MethodPost, "/api/v1/transports", map[string]any{"cageId": cage.ID, "kind": "volta", "driver": "Ana"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	transport := decodeBody[domain.Transport](t, rec)
	assert.Equal(t, domain.TransportInTransit, transport.Status)

	rec = f.do(http.MethodPut, "/api/v1/transports/"+transport.ID.String(), map[string]any{"status": "entregue"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	delivered := decodeBody[domain.Transport](t, rec)
	assert.Equal(t, domain.TransportDelivered, delivered.Status)
	assert.NotNil(t, delivered.ArrivedAt)

	rec = f.do(http.MethodGet, "/api/v1/cages/"+cage.ID.String(), nil)
	assert.Equal(t, domain.StageDelivered, decodeBody[domain.Cage](t, rec).Stage)

	rec = f.do(http.MethodGet, "/api/v1/transports/"+transport.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/reports/productivity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[report.Productivity](t, rec)
	assert.Equal(t, 1, summary.TotalCages)
	assert.Equal(t, 1, summary.Delivered)
	assert.Equal(t, 1, summary.CompletedSteps[domain.StepWashing])
}

func TestExpeditionExportFormats(t *testing.T) {
	f := newAPIFixture(t)
	_, cage := f.seedCage("GAI-030")
	weight := decimal.RequireFromString("12.5")
	_, err := f.svc.RecordWeighing(context.Background(), tracking.WeighingInput{
		CageID: cage.ID, Kind: domain.WeighingDeparture, Weight: &weight,
	})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/v1/reports/expedition", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeBody[[]report.ExpeditionRow](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, "Hospital Central", rows[0].HospitalName)

	rec = f.do(http.MethodGet, "/api/v1/reports/expedition?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "expedition.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\xEF\xBB\xBF"))
	assert.Contains(t, rec.Body.String(), "GAI-030")

	rec = f.do(http.MethodGet, "/api/v1/reports/expedition?format=XLSX", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}

func TestScaleImportEndpointIsMounted(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/weighings/import", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package cdshttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tribal-ehr/hl7engine/pkg/cds"
	"github.com/tribal-ehr/hl7engine/pkg/router"
)

type stubHandler struct {
	descriptor cds.ServiceDescriptor
	response   cds.Response
}

func (s stubHandler) Descriptor() cds.ServiceDescriptor { return s.descriptor }
func (s stubHandler) Invoke(req cds.Request) (cds.Response, error) {
	return s.response, nil
}

func newTestServer() *Server {
	reg := cds.NewRegistry(nil)
	reg.Register(stubHandler{
		descriptor: cds.ServiceDescriptor{ID: "drug-interaction", Hook: "order-select", Title: "Drug Interaction Check"},
		response:   cds.Response{Cards: []cds.Card{{Summary: "test card", Indicator: cds.IndicatorWarning}}},
	})
	engine := cds.NewEngine(reg, cds.EngineConfig{}, nil)
	rt := router.New(router.NewRegistry(nil), router.Config{}, nil)
	return New(engine, rt, cds.NewInMemoryOverrideStore(), nil)
}

func TestServer_HealthzReportsOK(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_DiscoveryListsRegisteredServices(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cds-services", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body discoveryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Services, 1)
	require.Equal(t, "drug-interaction", body.Services[0].ID)
}

func TestServer_InvokeKnownServiceReturnsCards(t *testing.T) {
	s := newTestServer()
	reqBody, err := json.Marshal(cds.Request{Hook: "order-select"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cds-services/drug-interaction", bytes.NewReader(reqBody))
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp cds.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Cards, 1)
	require.Equal(t, "test card", resp.Cards[0].Summary)
}

func TestServer_InvokeUnknownServiceReturns404(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cds-services/does-not-exist", bytes.NewReader([]byte(`{}`)))
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_DLQEmptyWhenRouterHasNoDeadLetters(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dlq", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []router.DeadLetter
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
	require.Empty(t, entries)
}

func TestServer_RecordAndFetchOverride(t *testing.T) {
	s := newTestServer()

	fb := overrideFeedback{
		PatientID:    "PAT-1",
		UserID:       "PRACTITIONER-9",
		ServiceID:    "drug-interaction",
		CardUUID:     "card-uuid-1",
		HookInstance: "hook-instance-1",
		CardSummary:  "test card",
		Accepted:     false,
		OverrideCode: "clinician-reviewed",
	}
	body, err := json.Marshal(fb)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/overrides", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec2 := httptest.NewRecorder()
	s.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/overrides/PAT-1", nil))
	require.Equal(t, http.StatusOK, rec2.Code)

	var records []cds.OverrideRecord
	require.NoError(t, json.NewDecoder(rec2.Body).Decode(&records))
	require.Len(t, records, 1)
	require.Equal(t, "drug-interaction", records[0].ServiceID)
	require.Equal(t, "PRACTITIONER-9", records[0].UserID)
	require.Equal(t, "hook-instance-1", records[0].HookInstance)
	require.Equal(t, "test card", records[0].CardSummary)
}

func TestServer_RecordOverrideWithoutStoreReturns503(t *testing.T) {
	reg := cds.NewRegistry(nil)
	engine := cds.NewEngine(reg, cds.EngineConfig{}, nil)
	s := New(engine, nil, nil, nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/overrides", bytes.NewReader([]byte(`{}`))))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// Package cdshttp exposes a CDS Hooks engine over HTTP using gorilla/mux,
// plus a small operational surface for liveness and dead-letter-queue
// inspection.
package cdshttp

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tribal-ehr/hl7engine/pkg/cds"
	"github.com/tribal-ehr/hl7engine/pkg/monitoring"
	"github.com/tribal-ehr/hl7engine/pkg/router"
)

// overrideFeedback is the wire shape of POST /overrides.
type overrideFeedback struct {
	PatientID    string `json:"patientId"`
	UserID       string `json:"userId"`
	ServiceID    string `json:"serviceId"`
	CardUUID     string `json:"cardUuid"`
	HookInstance string `json:"hookInstance"`
	CardSummary  string `json:"cardSummary"`
	Accepted     bool   `json:"accepted"`
	OverrideCode string `json:"overrideCode,omitempty"`
	OverrideNote string `json:"overrideNote,omitempty"`
}

// discoveryResponse is the wire shape of GET /cds-services.
type discoveryResponse struct {
	Services []cds.ServiceDescriptor `json:"services"`
}

// Server wires a cds.Engine and a router.Router into an HTTP surface.
type Server struct {
	engine    *cds.Engine
	rt        *router.Router
	overrides cds.OverrideStore
	logger    *monitoring.Logger
	router    *mux.Router
}

// New builds the mux.Router for the CDS Hooks and operational endpoints.
// rt and overrides may both be nil: /dlq then reports an empty snapshot and
// /overrides rejects writes with 503.
func New(engine *cds.Engine, rt *router.Router, overrides cds.OverrideStore, logger *monitoring.Logger) *Server {
	s := &Server{engine: engine, rt: rt, overrides: overrides, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/cds-services", s.handleDiscovery).Methods(http.MethodGet)
	r.HandleFunc("/cds-services/{serviceId}", s.handleInvoke).Methods(http.MethodPost)
	r.HandleFunc("/overrides", s.handleRecordOverride).Methods(http.MethodPost)
	r.HandleFunc("/overrides/{patientId}", s.handleGetOverrides).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/dlq", s.handleDLQ).Methods(http.MethodGet)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, discoveryResponse{Services: s.engine.Discovery()})
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	serviceID := vars["serviceId"]

	var req cds.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.engine.InvokeService(serviceID, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordOverride(w http.ResponseWriter, r *http.Request) {
	if s.overrides == nil {
		http.Error(w, "override store not configured", http.StatusServiceUnavailable)
		return
	}

	var fb overrideFeedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	rec := cds.OverrideRecord{
		PatientID:    fb.PatientID,
		UserID:       fb.UserID,
		ServiceID:    fb.ServiceID,
		CardUUID:     fb.CardUUID,
		HookInstance: fb.HookInstance,
		CardSummary:  fb.CardSummary,
		Accepted:     fb.Accepted,
		OverrideCode: fb.OverrideCode,
		OverrideNote: fb.OverrideNote,
	}
	if err := s.overrides.Record(r.Context(), rec); err != nil {
		if s.logger != nil {
			s.logger.Error("cdshttp: failed to record override: %v", err)
		}
		http.Error(w, "failed to record override", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetOverrides(w http.ResponseWriter, r *http.Request) {
	if s.overrides == nil {
		writeJSON(w, http.StatusOK, []cds.OverrideRecord{})
		return
	}

	patientID := mux.Vars(r)["patientId"]
	records, err := s.overrides.ByPatient(r.Context(), patientID)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("cdshttp: failed to fetch overrides: %v", err)
		}
		http.Error(w, "failed to fetch overrides", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDLQ(w http.ResponseWriter, r *http.Request) {
	if s.rt == nil {
		writeJSON(w, http.StatusOK, []router.DeadLetter{})
		return
	}
	writeJSON(w, http.StatusOK, s.rt.DLQ().Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		return
	}
}

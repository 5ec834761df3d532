package cds

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OverrideStore records clinician override decisions. Records are
// append-only; callers never mutate a record once recorded. Durable
// persistence is the store implementation's responsibility, not this
// package's (spec §4.7).
type OverrideStore interface {
	Record(ctx context.Context, rec OverrideRecord) error
	ByPatient(ctx context.Context, patientID string) ([]OverrideRecord, error)
}

// InMemoryOverrideStore is the zero-dependency default implementation.
type InMemoryOverrideStore struct {
	mu      sync.RWMutex
	records []OverrideRecord
}

// NewInMemoryOverrideStore creates an empty InMemoryOverrideStore.
func NewInMemoryOverrideStore() *InMemoryOverrideStore {
	return &InMemoryOverrideStore{}
}

// Record implements OverrideStore.
func (s *InMemoryOverrideStore) Record(_ context.Context, rec OverrideRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// ByPatient implements OverrideStore.
func (s *InMemoryOverrideStore) ByPatient(_ context.Context, patientID string) ([]OverrideRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []OverrideRecord
	for _, rec := range s.records {
		if rec.PatientID == patientID {
			out = append(out, rec)
		}
	}
	return out, nil
}

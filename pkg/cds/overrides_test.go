package cds

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemoryOverrideStore_RecordAssignsIDAndTimestamp(t *testing.T) {
	store := NewInMemoryOverrideStore()
	ctx := context.Background()

	err := store.Record(ctx, OverrideRecord{PatientID: "PAT-1", ServiceID: "drug-interaction", Accepted: false})
	require.NoError(t, err)

	records, err := store.ByPatient(ctx, "PAT-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotEmpty(t, records[0].ID)
	require.False(t, records[0].RecordedAt.IsZero())
}

func TestInMemoryOverrideStore_ByPatientFiltersByID(t *testing.T) {
	store := NewInMemoryOverrideStore()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, OverrideRecord{PatientID: "PAT-1"}))
	require.NoError(t, store.Record(ctx, OverrideRecord{PatientID: "PAT-2"}))
	require.NoError(t, store.Record(ctx, OverrideRecord{PatientID: "PAT-1"}))

	records, err := store.ByPatient(ctx, "PAT-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	none, err := store.ByPatient(ctx, "PAT-404")
	require.NoError(t, err)
	require.Empty(t, none)
}

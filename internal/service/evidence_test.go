package service

import (
	"context"
	"io"
	"testing"

	"github.com/E10-Naganiom/backOFraud/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvidenceService(t *testing.T) {
	f := newIncidentFixture(t)
	ctx := context.Background()

	incident, err := f.svc.CreateIncident(ctx, userFive, validCreateInput(),
		[]storage.Upload{upload("chat.png", "chat-bytes")})
	require.NoError(t, err)
	evidenceID := incident.Evidence[0].ID

	items, err := f.evidence.ListEvidence(ctx, userFive, incident.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = f.evidence.ListEvidence(ctx, userSeven, incident.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	item, rc, err := f.evidence.OpenEvidence(ctx, userFive, incident.ID, evidenceID)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "chat-bytes", string(data))
	assert.Equal(t, evidenceID, item.ID)

	_, _, err = f.evidence.OpenEvidence(ctx, userSeven, incident.ID, evidenceID)
	assert.ErrorIs(t, err, ErrForbidden)

	// Evidence of incident 10 is not reachable through another incident id.
	foreign, err := f.ev.AddEvidence(ctx, 10, []string{"other-key"})
	require.NoError(t, err)
	_, _, err = f.evidence.OpenEvidence(ctx, userFive, incident.ID, foreign[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.evidence.DeleteEvidence(ctx, userFive, incident.ID, foreign[0].ID), ErrNotFound)

	assert.ErrorIs(t, f.evidence.DeleteEvidence(ctx, userSeven, incident.ID, evidenceID), ErrForbidden)
	require.NoError(t, f.evidence.DeleteEvidence(ctx, userFive, incident.ID, evidenceID))
	assert.Equal(t, 0, f.store.count())

	assert.ErrorIs(t, f.evidence.DeleteEvidence(ctx, userFive, incident.ID, evidenceID), ErrNotFound)
	_, err = f.evidence.ListEvidence(ctx, userFive, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEvidenceService_MissingFile(t *testing.T) {
	f := newIncidentFixture(t)
	ctx := context.Background()

	added, err := f.ev.AddEvidence(ctx, 10, []string{"gone.png"})
	require.NoError(t, err)

	_, _, err = f.evidence.OpenEvidence(ctx, userSeven, 10, added[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The row is removed even though the file is already gone.
	require.NoError(t, f.evidence.DeleteEvidence(ctx, userSeven, 10, added[0].ID))
	_, err = f.ev.GetEvidenceByID(ctx, added[0].ID)
	assert.Error(t, err)
}

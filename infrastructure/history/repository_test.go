package history

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainCampaign "github.com/recuperafly/whatsapp-campaign-console/domains/campaign"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db)
	require.NoError(t, repo.InitializeSchema())
	// migrations are idempotent
	require.NoError(t, repo.InitializeSchema())
	return repo
}

func sampleOperation(startedAt time.Time) *domainCampaign.SendOperation {
	return &domainCampaign.SendOperation{
		ID:          uuid.New(),
		Name:        "September push",
		TemplateID:  "tpl-abcd1234",
		InstanceIDs: []string{"inst-1", "inst-2"},
		State:       domainCampaign.SendStateCompleted,
		Total:       2,
		Sent:        2,
		Failed:      0,
		Outcomes: []domainCampaign.SendOutcome{
			{Phone: "111", Status: true, Message: "queued", InstanceID: "inst-1"},
			{Phone: "222", Status: false, Message: "rejected", InstanceID: "inst-2"},
		},
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(10 * time.Second),
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	op := sampleOperation(time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))
	require.NoError(t, repo.SaveOperation(ctx, op))

	loaded, err := repo.GetOperation(ctx, op.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, op.ID, loaded.ID)
	assert.Equal(t, op.Name, loaded.Name)
	assert.Equal(t, op.InstanceIDs, loaded.InstanceIDs)
	assert.Equal(t, domainCampaign.SendStateCompleted, loaded.State)
	assert.Equal(t, 2, loaded.Sent)

	require.Len(t, loaded.Outcomes, 2)
	assert.Equal(t, "111", loaded.Outcomes[0].Phone)
	assert.True(t, loaded.Outcomes[0].Status)
	assert.Equal(t, "rejected", loaded.Outcomes[1].Message)
	assert.False(t, loaded.Outcomes[1].Status)
}

func TestRepositoryGetMissing(t *testing.T) {
	repo := newTestRepository(t)

	loaded, err := repo.GetOperation(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRepositoryListNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var names []string
	for i := 0; i < 5; i++ {
		op := sampleOperation(base.Add(time.Duration(i) * time.Hour))
		op.ID = uuid.New()
		op.Name = fmt.Sprintf("batch %d", i)
		names = append(names, op.Name)
		require.NoError(t, repo.SaveOperation(ctx, op))
	}

	ops, total, err := repo.ListOperations(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, ops, 2)
	assert.Equal(t, names[4], ops[0].Name)
	assert.Equal(t, names[3], ops[1].Name)
	// listings skip the per-recipient log
	assert.Empty(t, ops[0].Outcomes)

	ops, total, err = repo.ListOperations(ctx, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, ops, 1)
	assert.Equal(t, names[0], ops[0].Name)
}

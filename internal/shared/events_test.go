package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryLogAssignsIdentity(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	require.NoError(t, log.Record(ctx, Event{Kind: EventPRCreated, Entity: "pr", EntityID: "1"}))
	require.NoError(t, log.Record(ctx, Event{Kind: EventPRApproved, Entity: "pr", EntityID: "1"}))

	events, err := log.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NotEmpty(t, events[0].ID)
	require.False(t, events[0].OccurredAt.IsZero())
	require.Equal(t, EventPRCreated, events[0].Kind)
	require.Equal(t, EventPRApproved, events[1].Kind)
}

func TestMemoryLogListReturnsCopy(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()
	require.NoError(t, log.Record(ctx, Event{Kind: EventStockIssued}))

	events, err := log.List(ctx)
	require.NoError(t, err)
	events[0].Kind = "tampered"

	fresh, err := log.List(ctx)
	require.NoError(t, err)
	require.Equal(t, EventStockIssued, fresh[0].Kind)
}

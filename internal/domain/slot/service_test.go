package slot_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yacnet/signupd/internal/domain/slot"
	"github.com/yacnet/signupd/internal/store"
	"github.com/yacnet/signupd/internal/store/memstore"
)

func newTestService(t *testing.T) (*slot.Service, *memstore.Table, *memstore.Table) {
	t.Helper()
	slots := memstore.New()
	volunteers := memstore.New()
	return slot.NewService(slots, volunteers, nil), slots, volunteers
}

func TestSlotService_Create(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "proj1", slot.CreateRequest{
		Task: "Greet guests",
		Date: "2026-09-12",
		Time: "10:00",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, slot.StatusAvailable, created.Status)
	require.Equal(t, 1, created.Capacity, "capacity defaults to 1")
	require.Equal(t, 0, created.FilledCount)

	got, err := svc.Get(ctx, "proj1", created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Task, got.Task)
}

func TestSlotService_CreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), "proj1", slot.CreateRequest{Task: "x"})
	require.ErrorIs(t, err, slot.ErrInvalidInput)
}

func TestSlotService_Update(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "proj1", slot.CreateRequest{
		Task: "Greet guests", Date: "2026-09-12", Time: "10:00",
	})
	require.NoError(t, err)

	status := "held"
	capacity := 3
	updated, err := svc.Update(ctx, "proj1", created.ID, slot.UpdateRequest{
		Status:   &status,
		Capacity: &capacity,
	})
	require.NoError(t, err)
	require.Equal(t, slot.StatusHeld, updated.Status)
	require.Equal(t, 3, updated.Capacity)

	_, err = svc.Update(ctx, "proj1", created.ID, slot.UpdateRequest{})
	require.ErrorIs(t, err, slot.ErrNoFields)

	bad := 0
	_, err = svc.Update(ctx, "proj1", created.ID, slot.UpdateRequest{Capacity: &bad})
	require.ErrorIs(t, err, slot.ErrInvalidInput)

	_, err = svc.Update(ctx, "proj1", "nope", slot.UpdateRequest{Status: &status})
	require.ErrorIs(t, err, slot.ErrSlotNotFound)
}

func TestSlotService_UpdateClearsLegacyVolunteer(t *testing.T) {
	svc, slots, _ := newTestService(t)
	ctx := context.Background()

	_, err := slots.Insert(ctx, &store.Entity{
		PartitionKey: "proj1",
		RowKey:       "slot1",
		Props: map[string]any{
			"Task": "Old slot", "Status": "available",
			"VolunteerEmail": "old@example.org",
		},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "proj1", "slot1", slot.UpdateRequest{ClearVolunteer: true})
	require.NoError(t, err)
	require.Nil(t, updated.Volunteer)
}

func TestSlotService_ListOpen(t *testing.T) {
	svc, slots, _ := newTestService(t)
	ctx := context.Background()

	for i, status := range []string{"available", "filled", "held", "available"} {
		_, err := slots.Insert(ctx, &store.Entity{
			PartitionKey: "proj1",
			RowKey:       fmt.Sprintf("slot-%d", i),
			Props:        map[string]any{"Task": "t", "Status": status},
		})
		require.NoError(t, err)
	}
	_, err := slots.Insert(ctx, &store.Entity{
		PartitionKey: "proj2",
		RowKey:       "other",
		Props:        map[string]any{"Task": "t", "Status": "available"},
	})
	require.NoError(t, err)

	open, err := svc.ListOpen(ctx, "proj1")
	require.NoError(t, err)
	for _, sl := range open {
		require.Equal(t, slot.StatusAvailable, sl.Status)
		require.Equal(t, "proj1", sl.ProjectID)
	}
	require.Len(t, open, 2)
}

func TestSlotService_Delete(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "proj1", slot.CreateRequest{
		Task: "Greet guests", Date: "2026-09-12", Time: "10:00",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "proj1", created.ID))
	require.ErrorIs(t, svc.Delete(ctx, "proj1", created.ID), slot.ErrSlotNotFound)
}

func TestSlotService_Purge(t *testing.T) {
	svc, _, volunteers := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "proj1", slot.CreateRequest{
		Task: "Greet guests", Date: "2026-09-12", Time: "10:00",
	})
	require.NoError(t, err)

	partition := slot.VolunteerPartition("proj1", created.ID)
	for _, row := range []string{"a", "b"} {
		_, err := volunteers.Insert(ctx, &store.Entity{
			PartitionKey: partition,
			RowKey:       row,
			Props:        map[string]any{"Email": row + "@example.org"},
		})
		require.NoError(t, err)
	}

	require.NoError(t, svc.Purge(ctx, "proj1", created.ID))
	require.Equal(t, 0, volunteers.Len(partition))
	require.ErrorIs(t, svc.Delete(ctx, "proj1", created.ID), slot.ErrSlotNotFound)
}

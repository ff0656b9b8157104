package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/equinox/fleet-inspections/internal/model"
	"github.com/equinox/fleet-inspections/internal/queue"
	"github.com/equinox/fleet-inspections/internal/repository"
	"github.com/equinox/fleet-inspections/internal/testutil"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishInspectionSubmitted(ctx context.Context, ev queue.InspectionSubmittedEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func strp(s string) *string { return &s }

func TestInspections_Submit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC)

	t.Run("stores and publishes", func(t *testing.T) {
		store := testutil.NewInspections()
		pub := &mockPublisher{}
		svc := NewInspections(store, pub, testutil.MakeNoopLogger())
		svc.now = func() time.Time { return now }

		pub.On("PublishInspectionSubmitted", mock.Anything, mock.MatchedBy(func(ev queue.InspectionSubmittedEvent) bool {
			return ev.Placa == "ABC123" && ev.Cedula == "123456789" && ev.Conductor == "Ana" &&
				ev.SubmittedBy == "u-1" && ev.SubmittedAt == "2026-06-01T08:30:00Z"
		})).Return(nil).Once()

		in := &model.Inspection{PlacaVehiculo: strp("ABC123"), Cedula: strp("123456789"), NombreConductor: strp("Ana")}
		id, err := svc.Submit(ctx, in, "u-1")
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		stored, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, now, stored.CreatedAt)
		require.NotNil(t, stored.SubmittedBy)
		assert.Equal(t, "u-1", *stored.SubmittedBy)
		pub.AssertExpectations(t)
	})

	t.Run("broker failure does not fail the submission", func(t *testing.T) {
		store := testutil.NewInspections()
		pub := &mockPublisher{}
		pub.On("PublishInspectionSubmitted", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()
		svc := NewInspections(store, pub, testutil.MakeNoopLogger())

		id, err := svc.Submit(ctx, &model.Inspection{}, "")
		require.NoError(t, err)

		stored, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, stored.SubmittedBy, "anonymous submissions carry no submitter")
		pub.AssertExpectations(t)
	})

	t.Run("no publisher", func(t *testing.T) {
		svc := NewInspections(testutil.NewInspections(), nil, testutil.MakeNoopLogger())
		_, err := svc.Submit(ctx, &model.Inspection{}, "")
		assert.NoError(t, err)
	})
}

func TestInspections_ListStatsDelete(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewInspections()
	svc := NewInspections(store, nil, testutil.MakeNoopLogger())

	clock := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	stamps := []time.Time{
		time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 10, 7, 0, 0, 0, time.UTC),
	}
	var ids []string
	for _, ts := range stamps {
		clock = ts
		id, err := svc.Submit(ctx, &model.Inspection{PlacaVehiculo: strp("ABC123")}, "")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	clock = time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)

	list, err := svc.List(ctx, model.InspectionFilter{Placa: "ABC123"})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID, "newest first")

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.InspectionStats{Total: 3, ThisMonth: 2, Today: 1}, st)

	require.NoError(t, svc.Delete(ctx, ids[0]))
	assert.ErrorIs(t, svc.Delete(ctx, ids[0]), repository.ErrNotFound)
}

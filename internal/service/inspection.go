package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/equinox/fleet-inspections/internal/logger"
	"github.com/equinox/fleet-inspections/internal/model"
	"github.com/equinox/fleet-inspections/internal/queue"
)

// InspectionStore persists inspection forms.
type InspectionStore interface {
	Create(ctx context.Context, in *model.Inspection) error
	GetByID(ctx context.Context, id string) (model.Inspection, error)
	List(ctx context.Context, f model.InspectionFilter) ([]model.Inspection, error)
	Stats(ctx context.Context, now time.Time) (model.InspectionStats, error)
	Delete(ctx context.Context, id string) error
}

// EventPublisher announces stored inspections to the message broker.
type EventPublisher interface {
	PublishInspectionSubmitted(ctx context.Context, ev queue.InspectionSubmittedEvent) error
}

// Inspections stores submitted forms and serves the dashboard.
type Inspections struct {
	store     InspectionStore
	publisher EventPublisher
	log       *logger.Logger
	now       func() time.Time
}

// NewInspections wires the inspection service. publisher may be nil when
// the broker is disabled.
func NewInspections(store InspectionStore, publisher EventPublisher, log *logger.Logger) *Inspections {
	return &Inspections{store: store, publisher: publisher, log: log, now: time.Now}
}

// Submit assigns an id and timestamps to in, stores it and publishes an
// inspection.submitted event. submittedBy is the user id of an optional
// session and may be empty.
func (s *Inspections) Submit(ctx context.Context, in *model.Inspection, submittedBy string) (string, error) {
	now := s.now().UTC()
	in.ID = uuid.NewString()
	in.CreatedAt = now
	in.UpdatedAt = now
	in.SubmittedBy = nil
	if in.Categorias == nil {
		in.Categorias = model.JSONList{}
	}
	if in.Kilometraje == nil {
		in.Kilometraje = model.JSONList{}
	}
	if submittedBy != "" {
		in.SubmittedBy = &submittedBy
	}

	if err := s.store.Create(ctx, in); err != nil {
		return "", fmt.Errorf("store inspection: %w", err)
	}
	s.log.Info("inspection stored", "id", in.ID, "placa", deref(in.PlacaVehiculo))

	if s.publisher != nil {
		ev := queue.InspectionSubmittedEvent{
			InspectionID: in.ID,
			Placa:        deref(in.PlacaVehiculo),
			Cedula:       deref(in.Cedula),
			Conductor:    deref(in.NombreConductor),
			SubmittedBy:  submittedBy,
			SubmittedAt:  now.Format(time.RFC3339),
		}
		// the form is already stored; a broker outage must not fail the request
		if err := s.publisher.PublishInspectionSubmitted(ctx, ev); err != nil {
			s.log.Warn("failed to publish inspection event", "id", in.ID, "error", err)
		}
	}
	return in.ID, nil
}

// List returns inspections matching f, newest first.
func (s *Inspections) List(ctx context.Context, f model.InspectionFilter) ([]model.Inspection, error) {
	return s.store.List(ctx, f)
}

// Get returns one inspection.
func (s *Inspections) Get(ctx context.Context, id string) (model.Inspection, error) {
	return s.store.GetByID(ctx, id)
}

// Stats returns the dashboard counters.
func (s *Inspections) Stats(ctx context.Context) (model.InspectionStats, error) {
	return s.store.Stats(ctx, s.now())
}

// Delete removes one inspection.
func (s *Inspections) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("inspection deleted", "id", id)
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

package api

import (
	"context"

	"lectern/internal/lecture"
	"lectern/internal/procstate"
)

// StateReader abstracts the store interactions needed for API queries.
type StateReader interface {
	ListUnits(ctx context.Context) ([]*lecture.Unit, error)
	GetUnit(ctx context.Context, id int64) (*lecture.Unit, error)
	StateByUnit(ctx context.Context, unitID int64) (*procstate.State, error)
	StatesByPhase(ctx context.Context, phases ...procstate.Phase) ([]*procstate.State, error)
	Stats(ctx context.Context) (map[procstate.Phase]int, error)
	Health(ctx context.Context) (procstate.HealthSummary, error)
}

// ProcessingService exposes read-only unit and state queries returning API
// DTOs.
type ProcessingService struct {
	store StateReader
}

// NewProcessingService constructs a ProcessingService around the provided
// reader.
func NewProcessingService(store StateReader) *ProcessingService {
	if store == nil {
		return nil
	}
	return &ProcessingService{store: store}
}

// List returns all units with their processing summaries attached.
func (s *ProcessingService) List(ctx context.Context) ([]Unit, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	units, err := s.store.ListUnits(ctx)
	if err != nil {
		return nil, err
	}
	states, err := s.store.StatesByPhase(ctx)
	if err != nil {
		return nil, err
	}
	byUnit := make(map[int64]*procstate.State, len(states))
	for _, state := range states {
		byUnit[state.UnitID] = state
	}

	out := make([]Unit, 0, len(units))
	for _, unit := range units {
		out = append(out, FromUnit(unit, byUnit[unit.ID]))
	}
	return out, nil
}

// Describe fetches a single unit with its processing state.
func (s *ProcessingService) Describe(ctx context.Context, id int64) (*Unit, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	unit, err := s.store.GetUnit(ctx, id)
	if err != nil || unit == nil {
		return nil, err
	}
	state, err := s.store.StateByUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromUnit(unit, state)
	return &dto, nil
}

// Health returns the store's lifecycle summary and per-phase counts.
func (s *ProcessingService) Health(ctx context.Context) (HealthSummary, map[string]int, error) {
	if s == nil || s.store == nil {
		return HealthSummary{}, nil, nil
	}
	summary, err := s.store.Health(ctx)
	if err != nil {
		return HealthSummary{}, nil, err
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return HealthSummary{}, nil, err
	}
	return FromHealth(summary), MergePhaseStats(stats), nil
}

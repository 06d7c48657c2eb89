package memory

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// ============================================================================
// Fact Ledger / Supersession
// ============================================================================
//
// The ledger never deletes. A correction appends a replacement observation
// and marks the old one superseded in the same lock section, so readers
// never see a half-applied correction. Overlapping active facts about the
// same subject may coexist; resolving that is the caller's job via explicit
// corrections.

// UpdateEntityFact supersedes the target observation and appends a
// replacement with the same stage, as one atomic step
func (s *Store) UpdateEntityFact(entity, observationID, newContent string) (*Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entities[CanonicalName(entity)]
	if !ok {
		return nil, ErrEntityNotFound{Name: entity}
	}
	old := findObservationLocked(ent, observationID)
	if old == nil {
		return nil, ErrObservationNotFound{Entity: entity, ID: observationID}
	}
	if old.SupersededAt != nil {
		// Supersession is monotonic; correcting an already-superseded fact
		// must target its active replacement instead
		return nil, ErrObservationSuperseded{Entity: entity, ID: observationID}
	}

	replacement := NewObservation(newContent, old.Stage, old.Evidence...)
	now := time.Now().UTC()
	old.SupersededBy = replacement.ID
	old.SupersededAt = &now
	s.appendObservationLocked(ent, replacement)

	s.logger.Info("Fact updated",
		zap.String("entity", ent.Name),
		zap.String("superseded", observationID),
		zap.String("replacement", replacement.ID),
	)
	return &replacement, nil
}

// RemoveFact supersedes the target observation with no replacement. The fact
// becomes inactive but stays in history forever.
func (s *Store) RemoveFact(entity, observationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entities[CanonicalName(entity)]
	if !ok {
		return ErrEntityNotFound{Name: entity}
	}
	obs := findObservationLocked(ent, observationID)
	if obs == nil {
		return ErrObservationNotFound{Entity: entity, ID: observationID}
	}
	if obs.SupersededAt != nil {
		// Supersession is monotonic; a second removal is a no-op
		return nil
	}

	now := time.Now().UTC()
	obs.SupersededAt = &now
	ent.UpdatedAt = now

	s.logger.Info("Fact removed",
		zap.String("entity", ent.Name),
		zap.String("observation_id", observationID),
	)
	return nil
}

// SupersedeObservation marks the target superseded and, when replacement is
// non-empty, appends it and links the chain, atomically
func (s *Store) SupersedeObservation(entity, observationID string, replacement *Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entities[CanonicalName(entity)]
	if !ok {
		return ErrEntityNotFound{Name: entity}
	}
	obs := findObservationLocked(ent, observationID)
	if obs == nil {
		return ErrObservationNotFound{Entity: entity, ID: observationID}
	}
	if obs.SupersededAt != nil {
		return nil
	}

	now := time.Now().UTC()
	obs.SupersededAt = &now
	if replacement != nil {
		rep := *replacement
		if rep.ID == "" {
			rep = NewObservation(replacement.Content, replacement.Stage, replacement.Evidence...)
		}
		obs.SupersededBy = rep.ID
		s.appendObservationLocked(ent, rep)
	} else {
		ent.UpdatedAt = now
	}
	return nil
}

// GetFactHistory returns the full version chain for an entity in creation
// order, including superseded and archived entries, annotating which are
// currently active
func (s *Store) GetFactHistory(entity string) ([]FactRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent, ok := s.entities[CanonicalName(entity)]
	if !ok {
		return nil, ErrEntityNotFound{Name: entity}
	}

	records := make([]FactRecord, 0, len(ent.Observations)+len(ent.Archived))
	for i := range ent.Archived {
		records = append(records, FactRecord{
			Observation: ent.Archived[i],
			Active:      false,
			InColdStore: true,
		})
	}
	for i := range ent.Observations {
		records = append(records, FactRecord{
			Observation: ent.Observations[i],
			Active:      ent.Observations[i].Active(),
		})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, nil
}

// ActiveObservations returns deep copies of the entity's non-superseded
// observations, in creation order
func (s *Store) ActiveObservations(entity string) ([]Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent, ok := s.entities[CanonicalName(entity)]
	if !ok {
		return nil, ErrEntityNotFound{Name: entity}
	}
	var out []Observation
	for i := range ent.Observations {
		if ent.Observations[i].Active() {
			out = append(out, ent.Observations[i])
		}
	}
	return out, nil
}

func findObservationLocked(ent *Entity, id string) *Observation {
	for i := range ent.Observations {
		if ent.Observations[i].ID == id {
			return &ent.Observations[i]
		}
	}
	return nil
}

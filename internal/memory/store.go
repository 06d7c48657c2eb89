package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mnemo/pkg/logger"
)

// Store owns the entity and relation tables. A single logical instance is
// shared across all concurrent conversation sessions; one store-wide lock
// serializes mutations so that multi-step corrections (supersede+append,
// merge-on-create) are observed by readers as a single step. Reads return
// deep copies and never expose internal state.
type Store struct {
	mu          sync.RWMutex
	entities    map[string]*Entity // canonical name -> entity
	relations   map[string]Relation
	tasks       map[string]*Task
	selfDisplay string
	logger      *zap.Logger
}

// NewStore creates an empty store. selfDisplay is the display name given to
// the self-entity on first self-observation.
func NewStore(selfDisplay string) *Store {
	if selfDisplay == "" {
		selfDisplay = "Self"
	}
	return &Store{
		entities:    make(map[string]*Entity),
		relations:   make(map[string]Relation),
		tasks:       make(map[string]*Task),
		selfDisplay: selfDisplay,
		logger:      logger.Get(),
	}
}

// NewObservation builds an observation ready for insertion
func NewObservation(content string, stage Stage, evidence ...string) Observation {
	return Observation{
		ID:        uuid.New().String(),
		Content:   content,
		Stage:     stage,
		Evidence:  evidence,
		Timestamp: time.Now().UTC(),
	}
}

// GetEntity returns a deep copy of the entity with the given name
func (s *Store) GetEntity(name string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent, ok := s.entities[CanonicalName(name)]
	if !ok {
		return nil, ErrEntityNotFound{Name: name}
	}
	return copyEntity(ent), nil
}

// AddEntity creates an entity or, on canonical-name collision, merges the
// given observations into the existing one. The first-seen display casing of
// the name is preserved.
func (s *Store) AddEntity(name string, typ EntityType, observations []Observation) (*Entity, error) {
	if CanonicalName(name) == "" {
		return nil, ErrEntityNotFound{Name: name}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.upsertEntityLocked(name, typ)
	for _, obs := range observations {
		s.appendObservationLocked(ent, obs)
	}

	s.logger.Debug("Entity upserted",
		zap.String("entity", ent.Name),
		zap.String("type", string(ent.Type)),
		zap.Int("observations", len(observations)),
	)
	return copyEntity(ent), nil
}

// AddObservation appends an observation to an existing entity
func (s *Store) AddObservation(entity, content string, stage Stage, evidence ...string) (*Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entities[CanonicalName(entity)]
	if !ok {
		return nil, ErrEntityNotFound{Name: entity}
	}

	obs := NewObservation(content, stage, evidence...)
	s.appendObservationLocked(ent, obs)

	s.logger.Info("Observation added",
		zap.String("entity", ent.Name),
		zap.String("observation_id", obs.ID),
		zap.String("stage", string(stage)),
	)
	return &obs, nil
}

// SelfObserve records an observation on the reserved self-entity, creating
// it on first use
func (s *Store) SelfObserve(content string, stage Stage, evidence ...string) (*Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entities[SelfEntityName]
	if !ok {
		ent = s.upsertEntityLocked(s.selfDisplay, EntitySelf)
		// Reserved key, not the canonical form of the display name
		delete(s.entities, CanonicalName(s.selfDisplay))
		s.entities[SelfEntityName] = ent
	}

	obs := NewObservation(content, stage, evidence...)
	s.appendObservationLocked(ent, obs)

	s.logger.Info("Self observation recorded",
		zap.String("observation_id", obs.ID),
		zap.String("stage", string(stage)),
	)
	return &obs, nil
}

// GetSelfEntity returns a deep copy of the self-entity
func (s *Store) GetSelfEntity() (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent, ok := s.entities[SelfEntityName]
	if !ok {
		return nil, ErrEntityNotFound{Name: SelfEntityName}
	}
	return copyEntity(ent), nil
}

// GetAllEntities returns deep copies of every entity, ordered by name
func (s *Store) GetAllEntities() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entity, 0, len(s.entities))
	for _, ent := range s.entities {
		out = append(out, *copyEntity(ent))
	}
	sort.Slice(out, func(i, j int) bool { return CanonicalName(out[i].Name) < CanonicalName(out[j].Name) })
	return out
}

// ReplaceSessionContext overwrites the rolling session-context field of an
// entity. Unlike observations this field is mutable and lossy by design.
func (s *Store) ReplaceSessionContext(entity, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entities[CanonicalName(entity)]
	if !ok {
		return ErrEntityNotFound{Name: entity}
	}
	ent.SessionContext = text
	ent.UpdatedAt = time.Now().UTC()
	return nil
}

// StaleEntities returns entities whose updatedAt predates now - horizon,
// flagged so volatile facts can be re-verified at their source of truth
func (s *Store) StaleEntities(horizon time.Duration) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-horizon)
	var out []Entity
	for _, ent := range s.entities {
		if ent.UpdatedAt.Before(cutoff) {
			out = append(out, *copyEntity(ent))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out
}

// Stats returns counts over the store contents
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Entities:  len(s.entities),
		Relations: len(s.relations),
		Tasks:     len(s.tasks),
	}
	for _, ent := range s.entities {
		st.Observations += len(ent.Observations) + len(ent.Archived)
		st.Archived += len(ent.Archived)
		for i := range ent.Observations {
			if !ent.Observations[i].Active() {
				st.Superseded++
			}
		}
		st.Superseded += len(ent.Archived)
	}
	return st
}

// Snapshot returns a deep copy of the whole logical graph
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Entities:  make([]Entity, 0, len(s.entities)),
		Relations: make([]Relation, 0, len(s.relations)),
		Tasks:     make([]Task, 0, len(s.tasks)),
	}
	for _, ent := range s.entities {
		snap.Entities = append(snap.Entities, *copyEntity(ent))
	}
	for _, rel := range s.relations {
		snap.Relations = append(snap.Relations, rel)
	}
	for _, task := range s.tasks {
		snap.Tasks = append(snap.Tasks, *copyTask(task))
	}
	sort.Slice(snap.Entities, func(i, j int) bool {
		return CanonicalName(snap.Entities[i].Name) < CanonicalName(snap.Entities[j].Name)
	})
	sort.Slice(snap.Relations, func(i, j int) bool {
		return relationKey(snap.Relations[i].From, snap.Relations[i].To, snap.Relations[i].Type) <
			relationKey(snap.Relations[j].From, snap.Relations[j].To, snap.Relations[j].Type)
	})
	sort.Slice(snap.Tasks, func(i, j int) bool { return snap.Tasks[i].StartedAt.Before(snap.Tasks[j].StartedAt) })
	return snap
}

// Restore replaces the store contents with a snapshot loaded from a
// persistence engine. Entities whose names collide after canonicalization
// are merged rather than duplicated, and relations with out-of-vocabulary
// types are discarded.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities = make(map[string]*Entity, len(snap.Entities))
	s.relations = make(map[string]Relation, len(snap.Relations))
	s.tasks = make(map[string]*Task, len(snap.Tasks))

	for i := range snap.Entities {
		incoming := &snap.Entities[i]
		key := CanonicalName(incoming.Name)
		if incoming.Type == EntitySelf {
			key = SelfEntityName
		}
		if key == "" {
			continue
		}
		if existing, ok := s.entities[key]; ok {
			mergeEntityLocked(existing, incoming)
			continue
		}
		cp := copyEntity(incoming)
		s.entities[key] = cp
	}

	dropped := 0
	for _, rel := range snap.Relations {
		if !ValidRelationType(rel.Type) {
			dropped++
			continue
		}
		s.relations[relationKey(rel.From, rel.To, rel.Type)] = rel
	}
	for i := range snap.Tasks {
		task := snap.Tasks[i]
		s.tasks[task.ID] = &task
	}

	s.logger.Info("Store restored from snapshot",
		zap.Int("entities", len(s.entities)),
		zap.Int("relations", len(s.relations)),
		zap.Int("relations_dropped", dropped),
	)
}

// ============================================================================
// Internal helpers (call with s.mu held)
// ============================================================================

func (s *Store) upsertEntityLocked(name string, typ EntityType) *Entity {
	key := CanonicalName(name)
	now := time.Now().UTC()

	if existing, ok := s.entities[key]; ok {
		// Merge-on-collision keeps the first-seen display name. A concrete
		// type may refine an earlier "other" placeholder but never the
		// reverse.
		if existing.Type == EntityOther && typ != EntityOther {
			existing.Type = typ
		}
		existing.UpdatedAt = now
		return existing
	}

	ent := &Entity{
		Name:      name,
		Type:      typ,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.entities[key] = ent
	return ent
}

func (s *Store) appendObservationLocked(ent *Entity, obs Observation) {
	if obs.ID == "" {
		obs.ID = uuid.New().String()
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now().UTC()
	}
	ent.Observations = append(ent.Observations, obs)
	ent.UpdatedAt = time.Now().UTC()
}

// mergeEntityLocked folds src into dst: observations concatenate in creation
// order, the earliest createdAt wins, session context keeps the newer value.
func mergeEntityLocked(dst *Entity, src *Entity) {
	dst.Observations = append(dst.Observations, src.Observations...)
	dst.Archived = append(dst.Archived, src.Archived...)
	sort.SliceStable(dst.Observations, func(i, j int) bool {
		return dst.Observations[i].Timestamp.Before(dst.Observations[j].Timestamp)
	})
	sort.SliceStable(dst.Archived, func(i, j int) bool {
		return dst.Archived[i].Timestamp.Before(dst.Archived[j].Timestamp)
	})
	if src.CreatedAt.Before(dst.CreatedAt) {
		dst.CreatedAt = src.CreatedAt
	}
	if src.UpdatedAt.After(dst.UpdatedAt) {
		dst.UpdatedAt = src.UpdatedAt
		if src.SessionContext != "" {
			dst.SessionContext = src.SessionContext
		}
	}
	if dst.Type == EntityOther && src.Type != EntityOther {
		dst.Type = src.Type
	}
}

func copyEntity(ent *Entity) *Entity {
	cp := *ent
	cp.Observations = make([]Observation, len(ent.Observations))
	copy(cp.Observations, ent.Observations)
	cp.Archived = make([]Observation, len(ent.Archived))
	copy(cp.Archived, ent.Archived)
	for i := range cp.Observations {
		cp.Observations[i].Evidence = append([]string(nil), ent.Observations[i].Evidence...)
		if ent.Observations[i].SupersededAt != nil {
			t := *ent.Observations[i].SupersededAt
			cp.Observations[i].SupersededAt = &t
		}
	}
	for i := range cp.Archived {
		cp.Archived[i].Evidence = append([]string(nil), ent.Archived[i].Evidence...)
		if ent.Archived[i].SupersededAt != nil {
			t := *ent.Archived[i].SupersededAt
			cp.Archived[i].SupersededAt = &t
		}
	}
	return &cp
}

package memory

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ============================================================================
// Relation Operations
// ============================================================================

// AddRelation creates a directed edge between two entity names. The type
// must belong to the canonical vocabulary; unknown types are rejected and
// never stored. A duplicate triple is a no-op. Returns true when a new edge
// was created.
func (s *Store) AddRelation(from, to, relType string) (bool, error) {
	relType = strings.ToLower(strings.TrimSpace(relType))
	if !ValidRelationType(relType) {
		return false, ErrInvalidRelationType{Type: relType}
	}
	if CanonicalName(from) == "" || CanonicalName(to) == "" {
		return false, ErrEntityNotFound{Name: from + "/" + to}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := relationKey(from, to, relType)
	if _, exists := s.relations[key]; exists {
		return false, nil
	}
	s.relations[key] = Relation{
		From:      from,
		To:        to,
		Type:      relType,
		CreatedAt: time.Now().UTC(),
	}

	s.logger.Info("Relation added",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("type", relType),
	)
	return true, nil
}

// GetAllRelations returns every relation, optionally filtered to edges
// touching the named entity. Results are ordered deterministically.
func (s *Store) GetAllRelations(entityFilter string) []Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter := CanonicalName(entityFilter)
	var out []Relation
	for _, rel := range s.relations {
		if filter != "" && CanonicalName(rel.From) != filter && CanonicalName(rel.To) != filter {
			continue
		}
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool {
		return relationKey(out[i].From, out[i].To, out[i].Type) < relationKey(out[j].From, out[j].To, out[j].Type)
	})
	return out
}

// RelationsTouchingSelf returns relations where the self-entity is either
// endpoint, resolving the reserved key and the display name
func (s *Store) RelationsTouchingSelf() []Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.relationsTouchingSelfLocked()
}

func (s *Store) relationsTouchingSelfLocked() []Relation {
	selfNames := map[string]bool{SelfEntityName: true}
	if ent, ok := s.entities[SelfEntityName]; ok {
		selfNames[CanonicalName(ent.Name)] = true
	}

	var out []Relation
	for _, rel := range s.relations {
		if selfNames[CanonicalName(rel.From)] || selfNames[CanonicalName(rel.To)] {
			out = append(out, rel)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return relationKey(out[i].From, out[i].To, out[i].Type) < relationKey(out[j].From, out[j].To, out[j].Type)
	})
	return out
}

// IsSelfName reports whether the given entity name resolves to the
// self-entity
func (s *Store) IsSelfName(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := CanonicalName(name)
	if key == SelfEntityName {
		return true
	}
	if ent, ok := s.entities[SelfEntityName]; ok {
		return key == CanonicalName(ent.Name)
	}
	return false
}

package memory

import (
	"sort"
	"strings"
)

// ============================================================================
// Search Operations
// ============================================================================
//
// Text-based substring search over a consistent snapshot. No query language
// and no fuzzy matching; this mirrors the simple CONTAINS retrieval the rest
// of the system is built around.

// KnowledgeHit is one matching observation with its owning entity
type KnowledgeHit struct {
	Entity      string      `json:"entity"`
	EntityType  EntityType  `json:"entity_type"`
	Observation Observation `json:"observation"`
}

// SearchEntities returns entities whose display name contains the query,
// case-insensitively
func (s *Store) SearchEntities(query string, limit int) []Entity {
	if limit <= 0 {
		limit = 10
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entity
	for _, ent := range s.entities {
		if strings.Contains(strings.ToLower(ent.Name), q) {
			out = append(out, *copyEntity(ent))
		}
	}
	sort.Slice(out, func(i, j int) bool { return CanonicalName(out[i].Name) < CanonicalName(out[j].Name) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SearchKnowledge returns active observations whose content contains the
// query, case-insensitively, newest first
func (s *Store) SearchKnowledge(query string, limit int) []KnowledgeHit {
	if limit <= 0 {
		limit = 10
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []KnowledgeHit
	for _, ent := range s.entities {
		for i := range ent.Observations {
			obs := &ent.Observations[i]
			if !obs.Active() {
				continue
			}
			if strings.Contains(strings.ToLower(obs.Content), q) {
				out = append(out, KnowledgeHit{
					Entity:      ent.Name,
					EntityType:  ent.Type,
					Observation: *obs,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Observation.Timestamp.After(out[j].Observation.Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ExchangeHit is a session-context window matching a search query
type ExchangeHit struct {
	Entity         string `json:"entity"`
	SessionContext string `json:"session_context"`
}

// SearchExchanges scans session-context windows for the query. Session
// context is lossy, so this only ever sees the most recent window per
// entity.
func (s *Store) SearchExchanges(query string, limit int) []ExchangeHit {
	if limit <= 0 {
		limit = 10
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ExchangeHit
	for _, ent := range s.entities {
		if ent.SessionContext == "" {
			continue
		}
		if strings.Contains(strings.ToLower(ent.SessionContext), q) {
			out = append(out, ExchangeHit{Entity: ent.Name, SessionContext: ent.SessionContext})
		}
	}
	sort.Slice(out, func(i, j int) bool { return CanonicalName(out[i].Entity) < CanonicalName(out[j].Entity) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

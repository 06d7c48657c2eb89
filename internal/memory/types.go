package memory

import (
	"strings"
	"time"
	"unicode/utf8"
)

// ============================================================================
// Memory Graph Types
// ============================================================================

// EntityType classifies an entity in the knowledge graph
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityProject      EntityType = "project"
	EntityTechnology   EntityType = "technology"
	EntityPreference   EntityType = "preference"
	EntityConcept      EntityType = "concept"
	EntityFile         EntityType = "file"
	EntityService      EntityType = "service"
	EntityOrganization EntityType = "organization"
	EntitySelf         EntityType = "self"
	EntityOther        EntityType = "other"
)

var entityTypes = map[EntityType]bool{
	EntityPerson:       true,
	EntityProject:      true,
	EntityTechnology:   true,
	EntityPreference:   true,
	EntityConcept:      true,
	EntityFile:         true,
	EntityService:      true,
	EntityOrganization: true,
	EntitySelf:         true,
	EntityOther:        true,
}

// CoerceEntityType maps an untrusted type string onto the known set.
// Unknown values become EntityOther rather than failing.
func CoerceEntityType(s string) EntityType {
	t := EntityType(strings.ToLower(strings.TrimSpace(s)))
	if entityTypes[t] {
		return t
	}
	return EntityOther
}

// Stage is the lifecycle stage of an observation
type Stage string

const (
	StageRaw       Stage = "raw"
	StageExtracted Stage = "extracted"
	StageTrait     Stage = "trait"
	StageBelief    Stage = "belief"
	StageFact      Stage = "fact"
)

var stages = map[Stage]bool{
	StageRaw:       true,
	StageExtracted: true,
	StageTrait:     true,
	StageBelief:    true,
	StageFact:      true,
}

// CoerceStage maps an untrusted stage string onto the known set, defaulting to raw
func CoerceStage(s string) Stage {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	if stages[st] {
		return st
	}
	return StageRaw
}

// Observation is a timestamped fact-statement attached to an entity.
// Observations are append-only: content is never mutated in place; a
// correction is a new observation plus a supersession marker on the old one.
type Observation struct {
	ID           string     `json:"id"`
	Content      string     `json:"content"`
	Stage        Stage      `json:"stage"`
	Evidence     []string   `json:"evidence,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	SupersededBy string     `json:"superseded_by,omitempty"`
	SupersededAt *time.Time `json:"superseded_at,omitempty"`
}

// Active reports whether the observation is part of the current belief set
func (o *Observation) Active() bool {
	return o.SupersededAt == nil
}

// HasEvidence reports whether the observation carries the given source tag
func (o *Observation) HasEvidence(tag string) bool {
	for _, e := range o.Evidence {
		if e == tag {
			return true
		}
	}
	return false
}

// Entity is a named subject with a log of observations. The display form of
// the name preserves first-seen casing; uniqueness is enforced on the
// canonical form.
type Entity struct {
	Name           string        `json:"name"`
	Type           EntityType    `json:"type"`
	Observations   []Observation `json:"observations"`
	Archived       []Observation `json:"archived,omitempty"`
	SessionContext string        `json:"session_context,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Relation is a directed, typed edge between two entities. Endpoints are
// stored as name strings rather than entity pointers, so entities can be
// archived independently; dangling references are a read-time concern.
type Relation struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// FactRecord is one entry of an entity's fact history
type FactRecord struct {
	Observation
	Active      bool `json:"active"`
	InColdStore bool `json:"in_cold_store,omitempty"`
}

// Stats summarizes the store contents
type Stats struct {
	Entities     int `json:"entities"`
	Observations int `json:"observations"`
	Superseded   int `json:"superseded"`
	Archived     int `json:"archived"`
	Relations    int `json:"relations"`
	Tasks        int `json:"tasks"`
}

// Snapshot is a full copy of the logical graph, used to round-trip the
// schema through a persistence engine
type Snapshot struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
	Tasks     []Task     `json:"tasks"`
}

// SelfEntityName is the reserved canonical name of the agent's own entity
const SelfEntityName = "self"

// RelationTypes is the closed vocabulary of relation types. Relations with
// any other type are rejected at creation time, never stored.
var RelationTypes = map[string]bool{
	"knows":        true,
	"works_on":     true,
	"uses":         true,
	"prefers":      true,
	"created":      true,
	"depends_on":   true,
	"part_of":      true,
	"manages":      true,
	"related_to":   true,
	"learned_from": true,
}

// ValidRelationType reports whether t belongs to the canonical vocabulary
func ValidRelationType(t string) bool {
	return RelationTypes[strings.ToLower(strings.TrimSpace(t))]
}

// CanonicalName normalizes an entity name for uniqueness checks: lower-cased,
// trimmed, inner whitespace collapsed. The display form is preserved on the
// entity itself.
func CanonicalName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// TruncateString cuts s to at most max bytes without splitting a multi-byte
// rune, backing up to the previous rune boundary when the cut lands inside
// one. The result is always valid UTF-8 when the input is.
func TruncateString(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func relationKey(from, to, relType string) string {
	return CanonicalName(from) + "|" + strings.ToLower(strings.TrimSpace(relType)) + "|" + CanonicalName(to)
}

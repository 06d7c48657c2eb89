package memory

import (
	"strings"
)

// ============================================================================
// Self Context Compiler
// ============================================================================
//
// Pure transform from the self-entity's observation list and the relations
// touching it to a bounded text block for prompt injection. No storage or
// network side effects; identical input graph yields identical output.

// TruncationMarker is appended when the compiled context is cut at the cap
const TruncationMarker = "\n…[context truncated]"

const (
	tagRule        = "[user-preference-about-me]"
	tagMistake     = "[mistake]"
	tagImprovement = "[improvement]"
)

// minExtractedLen guards against raw extraction leakage: short extracted
// fragments are noise, not identity
const minExtractedLen = 60

// CompileSelfContext renders the self-entity into the categorized summary
// injected into the agent's prompt. Returns "" when self has no
// observations. Output length never exceeds maxLen + len(TruncationMarker).
func CompileSelfContext(self *Entity, relations []Relation, maxLen int) string {
	if self == nil || len(self.Observations) == 0 {
		return ""
	}

	var rules, mistakes, improvements, identity []string
	for i := range self.Observations {
		obs := &self.Observations[i]
		if !obs.Active() {
			continue
		}
		content := strings.TrimSpace(obs.Content)
		if isExtractionNoise(obs, content) {
			continue
		}

		switch {
		case strings.HasPrefix(content, tagRule):
			rules = append(rules, bullet(content, tagRule))
		case strings.HasPrefix(content, tagMistake):
			mistakes = append(mistakes, bullet(content, tagMistake))
		case strings.HasPrefix(content, tagImprovement):
			improvements = append(improvements, bullet(content, tagImprovement))
		case obs.Stage == StageTrait || obs.Stage == StageBelief || obs.Stage == StageFact:
			identity = append(identity, bullet(content, ""))
		}
	}

	var sections []string
	appendSection := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		sections = append(sections, title+":\n"+strings.Join(lines, "\n"))
	}
	appendSection("RULES", rules)
	appendSection("MISTAKES", mistakes)
	appendSection("IMPROVEMENTS", improvements)
	appendSection("IDENTITY", identity)
	appendSection("RELATIONS", renderSelfRelations(self, relations))

	out := strings.Join(sections, "\n\n")
	if len(out) > maxLen {
		// Position-based cut, not sentence-aware, for a deterministic bound
		out = TruncateString(out, maxLen) + TruncationMarker
	}
	return out
}

// SelfContext compiles the current self context. The self-entity and the
// relations touching it are copied in one lock section, so the rendered
// output never pairs an entity state with relations mutated in between.
func (s *Store) SelfContext(maxLen int) string {
	s.mu.RLock()
	ent, ok := s.entities[SelfEntityName]
	if !ok {
		s.mu.RUnlock()
		return ""
	}
	self := copyEntity(ent)
	relations := s.relationsTouchingSelfLocked()
	s.mu.RUnlock()

	return CompileSelfContext(self, relations, maxLen)
}

func isExtractionNoise(obs *Observation, content string) bool {
	if obs.HasEvidence("extracted") && len(content) < minExtractedLen {
		return true
	}
	// Markup-like content means a raw extraction fragment leaked through
	return strings.Contains(content, "</")
}

func bullet(content, tag string) string {
	if tag != "" {
		content = strings.TrimSpace(strings.TrimPrefix(content, tag))
	}
	return "- " + content
}

// renderSelfRelations renders edges touching self as first-person sentences
func renderSelfRelations(self *Entity, relations []Relation) []string {
	selfKeys := map[string]bool{
		SelfEntityName:           true,
		CanonicalName(self.Name): true,
	}

	var lines []string
	for _, rel := range relations {
		verb := strings.ReplaceAll(rel.Type, "_", " ")
		switch {
		case selfKeys[CanonicalName(rel.From)]:
			lines = append(lines, "- I "+verb+" "+rel.To)
		case selfKeys[CanonicalName(rel.To)]:
			lines = append(lines, "- "+rel.From+" "+verb+" me")
		}
	}
	return lines
}

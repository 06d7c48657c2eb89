package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"mnemo/internal/memory"
	apperrors "mnemo/pkg/errors"
	"mnemo/pkg/logger"
)

// LLM is the slice of the adapter the extraction coordinator needs
type LLM interface {
	Generate(ctx context.Context, systemPrompt, userMsg string) (*ExtractorResponse, error)
}

// ExtractorResponse is the raw text the model returned
type ExtractorResponse struct {
	Content string
}

// maxAssistantPromptLen clamps the assistant message embedded in the
// extraction prompt. Assistant turns can be very long; the tail carries
// little extra signal for entity extraction.
const maxAssistantPromptLen = 2000

// maxExtractedEntities bounds how many entities a single extraction may
// apply. The prompt asks for 2-5; a model that ignores the instruction must
// not flood the graph.
const maxExtractedEntities = 20

// extractionPayload is the shape the model is asked to emit. Everything in
// it is untrusted until validated field by field.
type extractionPayload struct {
	Entities []struct {
		Name         string   `json:"name"`
		Type         string   `json:"type"`
		Observations []string `json:"observations"`
	} `json:"entities"`
	Relations []struct {
		From string `json:"from"`
		To   string `json:"to"`
		Type string `json:"type"`
	} `json:"relations"`
}

// ApplyReport summarizes what one extraction pass changed
type ApplyReport struct {
	EntitiesUpserted  int `json:"entities_upserted"`
	ObservationsAdded int `json:"observations_added"`
	RelationsAdded    int `json:"relations_added"`
	RelationsSkipped  int `json:"relations_skipped"`
}

// Coordinator runs knowledge extraction over conversation exchanges and
// applies the validated results to the store
type Coordinator struct {
	store  *memory.Store
	llm    LLM
	logger *zap.Logger
}

// NewCoordinator creates an extraction coordinator
func NewCoordinator(store *memory.Store, llm LLM) *Coordinator {
	return &Coordinator{
		store:  store,
		llm:    llm,
		logger: logger.Named("extractor"),
	}
}

// BuildExtractionPrompt renders the system prompt for one exchange. Pure
// function of its inputs so callers can build it outside any lock.
func BuildExtractionPrompt(userMessage, assistantMessage string) string {
	assistant := memory.TruncateString(assistantMessage, maxAssistantPromptLen)

	relTypes := make([]string, 0, len(memory.RelationTypes))
	for rt := range memory.RelationTypes {
		relTypes = append(relTypes, rt)
	}

	return fmt.Sprintf(`You are a knowledge extraction system. Analyze this conversation exchange and extract entities, observations, and relations worth remembering.

User message: "%s"

Assistant message: "%s"

Respond with ONLY valid JSON (no markdown, no explanation):
{
  "entities": [
    {"name": "entity name", "type": "person|project|technology|organization|concept|other", "observations": ["standalone fact about this entity"]}
  ],
  "relations": [
    {"from": "entity name", "to": "entity name", "type": "one of: %s"}
  ]
}

Guidelines:
- Extract 2-5 entities per exchange; prefer fewer, well-observed entities over many thin ones
- Rewrite observations to be clear and standalone (e.g., "I use Vim" -> "Uses Vim as primary editor")
- DON'T extract: greetings, meta-chatter about the conversation itself, temporary states
- Relation types outside the listed set will be discarded
- Return {"entities": [], "relations": []} if nothing is worth remembering`, userMessage, assistant, strings.Join(sortedStrings(relTypes), ", "))
}

// Extract calls the model for one exchange and applies the result.
// The LLM call happens with no store lock held.
func (c *Coordinator) Extract(ctx context.Context, userMessage, assistantMessage string) (*ApplyReport, error) {
	prompt := BuildExtractionPrompt(userMessage, assistantMessage)

	resp, err := c.llm.Generate(ctx, prompt, "Analyze and respond with JSON only. No markdown, no explanation, just the JSON object.")
	if err != nil {
		return nil, fmt.Errorf("extraction LLM call failed: %w", err)
	}

	return c.Apply(ctx, resp.Content)
}

// Apply validates raw model output and merges it into the store. Malformed
// JSON leaves the graph unchanged and is not an error; per-item validation
// failures skip that item while its siblings still apply.
func (c *Coordinator) Apply(ctx context.Context, raw string) (*ApplyReport, error) {
	// At-most-once: if the caller's context died during the LLM call,
	// nothing may be applied.
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewContextCancelled("apply extraction", err)
	}

	report := &ApplyReport{}

	payload := &extractionPayload{}
	jsonStr := extractJSONObject(raw)
	if err := json.Unmarshal([]byte(jsonStr), payload); err != nil {
		c.logger.Warn("Extraction payload discarded",
			zap.String("response", clampForLog(raw)),
			zap.Error(apperrors.NewExtractionInvalidShape("top-level object", err)),
		)
		return report, nil
	}

	entities := payload.Entities
	if len(entities) > maxExtractedEntities {
		c.logger.Warn("Extraction entity list clamped",
			zap.Int("returned", len(entities)),
			zap.Int("applied", maxExtractedEntities),
		)
		entities = entities[:maxExtractedEntities]
	}

	for _, ent := range entities {
		name := strings.TrimSpace(ent.Name)
		if memory.CanonicalName(name) == "" {
			continue
		}
		entType := memory.CoerceEntityType(ent.Type)

		obs := make([]memory.Observation, 0, len(ent.Observations))
		for _, content := range ent.Observations {
			content = strings.TrimSpace(content)
			if content == "" {
				continue
			}
			obs = append(obs, memory.NewObservation(content, memory.StageExtracted, "extracted"))
		}

		if _, err := c.store.AddEntity(name, entType, obs); err != nil {
			c.logger.Warn("Failed to upsert extracted entity",
				zap.String("entity", name),
				zap.Error(err),
			)
			continue
		}
		report.EntitiesUpserted++
		report.ObservationsAdded += len(obs)
	}

	for _, rel := range payload.Relations {
		created, err := c.store.AddRelation(rel.From, rel.To, rel.Type)
		if err != nil {
			c.logger.Warn("Skipping extracted relation",
				zap.String("from", rel.From),
				zap.String("to", rel.To),
				zap.String("type", rel.Type),
				zap.Error(err),
			)
			report.RelationsSkipped++
			continue
		}
		if created {
			report.RelationsAdded++
		}
	}

	c.logger.Debug("Extraction applied",
		zap.Int("entities", report.EntitiesUpserted),
		zap.Int("observations", report.ObservationsAdded),
		zap.Int("relations_added", report.RelationsAdded),
		zap.Int("relations_skipped", report.RelationsSkipped),
	)
	return report, nil
}

// extractJSONObject pulls a JSON object out of raw model output, handling
// markdown code fences and surrounding prose
func extractJSONObject(raw string) string {
	jsonStr := strings.TrimSpace(raw)

	if strings.HasPrefix(jsonStr, "```") {
		lines := strings.Split(jsonStr, "\n")
		var jsonLines []string
		inCodeBlock := false
		for _, line := range lines {
			if strings.HasPrefix(line, "```") {
				inCodeBlock = !inCodeBlock
				continue
			}
			if inCodeBlock {
				jsonLines = append(jsonLines, line)
			}
		}
		jsonStr = strings.Join(jsonLines, "\n")
	}

	if start := strings.Index(jsonStr, "{"); start != -1 {
		if end := strings.LastIndex(jsonStr, "}"); end != -1 && end > start {
			jsonStr = jsonStr[start : end+1]
		}
	}
	return jsonStr
}

func clampForLog(s string) string {
	if len(s) > 500 {
		return memory.TruncateString(s, 500) + "…"
	}
	return s
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

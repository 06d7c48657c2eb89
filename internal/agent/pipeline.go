package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"mnemo/internal/memory"
	"mnemo/pkg/logger"
)

// Pipeline ties one conversation exchange to everything memory does with
// it: the rolling session window and knowledge extraction
type Pipeline struct {
	store       *memory.Store
	session     *memory.SessionUpdater
	coordinator *Coordinator
	disabled    bool
	logger      *zap.Logger

	mu      sync.Mutex
	recent  map[string][]memory.Exchange
	history int
}

// NewPipeline creates an exchange pipeline. When extractionDisabled is set
// the session window still updates but no LLM calls are made.
func NewPipeline(store *memory.Store, session *memory.SessionUpdater, coordinator *Coordinator, extractionDisabled bool) *Pipeline {
	return &Pipeline{
		store:       store,
		session:     session,
		coordinator: coordinator,
		disabled:    extractionDisabled,
		logger:      logger.Get(),
		recent:      make(map[string][]memory.Exchange),
		history:     20,
	}
}

// ProcessExchange records one user/assistant exchange for an entity: it
// appends to the rolling per-entity buffer, replaces the session context
// window, and runs extraction. Extraction failure never fails the exchange.
func (p *Pipeline) ProcessExchange(ctx context.Context, entity, channel, userMsg, assistantMsg string) (*ApplyReport, error) {
	now := time.Now().UTC()
	var turn []memory.Exchange
	if userMsg != "" {
		turn = append(turn, memory.Exchange{Role: "user", Content: userMsg, Timestamp: now})
	}
	if assistantMsg != "" {
		turn = append(turn, memory.Exchange{Role: "assistant", Content: assistantMsg, Timestamp: now})
	}
	exchanges := p.appendRecent(entity, channel, turn...)

	if err := p.session.UpdateEntitySession(entity, exchanges, channel); err != nil {
		return nil, err
	}

	if p.disabled || p.coordinator == nil {
		return &ApplyReport{}, nil
	}

	// The LLM call runs with no store lock held; the store only locks
	// again when the validated result is applied.
	report, err := p.coordinator.Extract(ctx, userMsg, assistantMsg)
	if err != nil {
		p.logger.Warn("Knowledge extraction failed, exchange still recorded",
			zap.String("entity", entity),
			zap.Error(err),
		)
		return &ApplyReport{}, nil
	}
	return report, nil
}

// appendRecent grows the per-entity exchange buffer, trimming to the last
// `history` entries
func (p *Pipeline) appendRecent(entity, channel string, exchanges ...memory.Exchange) []memory.Exchange {
	key := memory.CanonicalName(entity) + "|" + channel

	p.mu.Lock()
	defer p.mu.Unlock()

	buf := append(p.recent[key], exchanges...)
	if len(buf) > p.history {
		buf = buf[len(buf)-p.history:]
	}
	p.recent[key] = buf

	out := make([]memory.Exchange, len(buf))
	copy(out, buf)
	return out
}

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"mnemo/internal/agent"
	"mnemo/internal/memory"
	"mnemo/pkg/logger"
)

func newTestBridge() *bridge {
	store := memory.NewStore("Mnemo")
	session := memory.NewSessionUpdater(store, 10)
	pipeline := agent.NewPipeline(store, session, nil, true)
	return &bridge{
		store:    store,
		pipeline: pipeline,
		maxLen:   3000,
		logger:   logger.Get(),
	}
}

func TestHandleCommandRecall(t *testing.T) {
	b := newTestBridge()
	_, err := b.store.AddEntity("Postgres", memory.EntityTechnology, []memory.Observation{
		memory.NewObservation("Primary database for the billing service", memory.StageFact, "user"),
	})
	assert.NoError(t, err)

	reply, handled := b.handleCommand("!recall billing")
	assert.True(t, handled)
	assert.Contains(t, reply, "Postgres")
	assert.Contains(t, reply, "billing service")

	reply, handled = b.handleCommand("!recall nothing-matches-this")
	assert.True(t, handled)
	assert.Contains(t, reply, "Nothing stored")
}

func TestHandleCommandSelf(t *testing.T) {
	b := newTestBridge()

	reply, handled := b.handleCommand("!self")
	assert.True(t, handled)
	assert.Equal(t, "No self-observations yet.", reply)

	_, err := b.store.SelfObserve("[user-preference-about-me] Keep replies under three sentences", memory.StageTrait)
	assert.NoError(t, err)

	reply, handled = b.handleCommand("!self")
	assert.True(t, handled)
	assert.True(t, strings.HasPrefix(reply, "RULES:"))
}

func TestHandleCommandStats(t *testing.T) {
	b := newTestBridge()

	reply, handled := b.handleCommand("!stats")
	assert.True(t, handled)
	assert.Contains(t, reply, "Entities: 0")
}

func TestNonCommandIsNotHandled(t *testing.T) {
	b := newTestBridge()

	_, handled := b.handleCommand("I moved to Berlin last month")
	assert.False(t, handled)
}

func TestFormatHitsOrdering(t *testing.T) {
	hits := []memory.KnowledgeHit{
		{Entity: "Alice", Observation: memory.NewObservation("Prefers dark mode", memory.StageFact)},
		{Entity: "Bob", Observation: memory.NewObservation("Prefers light mode", memory.StageFact)},
	}
	out := formatHits("mode", hits)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Alice")
	assert.Contains(t, lines[1], "Bob")
}

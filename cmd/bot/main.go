package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"mnemo/internal/adapter"
	"mnemo/internal/agent"
	"mnemo/internal/memory"
	"mnemo/internal/persist"
	"mnemo/pkg/config"
	"mnemo/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting Discord memory bridge...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	if cfg.DiscordBotToken == "" {
		log.Fatal("DISCORD_BOT_TOKEN is required")
	}

	ctx := context.Background()

	// Initialize the store with optional snapshot persistence
	store := memory.NewStore(cfg.AgentName)

	var repo *persist.Repository
	if cfg.Neo4jURI != "" {
		driver, err := persist.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			log.Warn("Neo4j unavailable, running in-memory only", zap.Error(err))
		} else {
			repo = persist.NewRepository(driver)
			defer repo.Close()

			snap, err := repo.LoadSnapshot(ctx)
			if err != nil {
				log.Warn("Failed to load snapshot, starting empty", zap.Error(err))
			} else {
				store.Restore(snap)
			}
		}
	}

	llmAdapter := adapter.NewLLMAdapter(cfg.LiteLLMURL, cfg.OpenRouterAPIKey, cfg.ModelID)
	coordinator := agent.NewCoordinator(store, adapterLLM{llmAdapter})
	session := memory.NewSessionUpdater(store, cfg.SessionWindowSize)
	pipeline := agent.NewPipeline(store, session, coordinator, cfg.ExtractionDisabled)

	bridge := &bridge{
		store:    store,
		pipeline: pipeline,
		maxLen:   cfg.SelfContextMaxLen,
		logger:   log,
	}

	// Create Discord session
	dg, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		log.Fatal("Failed to create Discord session", zap.Error(err))
	}

	dg.AddHandler(bridge.handleMessage)
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages

	// Open connection
	if err := dg.Open(); err != nil {
		log.Fatal("Failed to open Discord connection", zap.Error(err))
	}
	defer dg.Close()

	log.Info("Discord memory bridge is running. Press CTRL-C to exit.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Discord memory bridge...")

	if repo != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.SaveSnapshot(saveCtx, store.Snapshot()); err != nil {
			log.Error("Failed to save final snapshot", zap.Error(err))
		}
	}
}

// bridge feeds Discord messages into the memory pipeline and answers a few
// recall commands
type bridge struct {
	store    *memory.Store
	pipeline *agent.Pipeline
	maxLen   int
	logger   *zap.Logger
}

func (b *bridge) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	content := strings.TrimSpace(m.Content)
	if content == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if reply, handled := b.handleCommand(content); handled {
		if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
			b.logger.Error("Failed to send reply", zap.Error(err))
		}
		return
	}

	// Everything else is capture: the message becomes session context and
	// extraction input for its author.
	if _, err := b.pipeline.ProcessExchange(ctx, m.Author.Username, m.ChannelID, content, ""); err != nil {
		b.logger.Error("Failed to record exchange",
			zap.String("author", m.Author.Username),
			zap.Error(err),
		)
	}
}

// handleCommand answers the recall commands; the bool reports whether the
// message was a command at all
func (b *bridge) handleCommand(content string) (string, bool) {
	switch {
	case strings.HasPrefix(content, "!recall "):
		query := strings.TrimSpace(strings.TrimPrefix(content, "!recall "))
		hits := b.store.SearchKnowledge(query, 5)
		return formatHits(query, hits), true

	case content == "!self":
		selfCtx := b.store.SelfContext(b.maxLen)
		if selfCtx == "" {
			return "No self-observations yet.", true
		}
		return selfCtx, true

	case content == "!stats":
		stats := b.store.Stats()
		return fmt.Sprintf("Entities: %d, observations: %d (%d superseded, %d archived), relations: %d, tasks: %d",
			stats.Entities, stats.Observations, stats.Superseded, stats.Archived, stats.Relations, stats.Tasks), true
	}
	return "", false
}

func formatHits(query string, hits []memory.KnowledgeHit) string {
	if len(hits) == 0 {
		return fmt.Sprintf("Nothing stored about %q.", query)
	}
	lines := make([]string, 0, len(hits))
	for _, hit := range hits {
		lines = append(lines, fmt.Sprintf("- %s: %s", hit.Entity, hit.Observation.Content))
	}
	return strings.Join(lines, "\n")
}

// adapterLLM bridges the adapter's response type onto the agent interface
type adapterLLM struct {
	inner *adapter.LLMAdapter
}

func (a adapterLLM) Generate(ctx context.Context, systemPrompt, userMsg string) (*agent.ExtractorResponse, error) {
	resp, err := a.inner.Generate(ctx, systemPrompt, userMsg)
	if err != nil {
		return nil, err
	}
	return &agent.ExtractorResponse{Content: resp.Content}, nil
}

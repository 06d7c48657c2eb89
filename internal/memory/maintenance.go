package memory

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mnemo/pkg/logger"
)

// ============================================================================
// Maintenance: Staleness Scanner / Consolidator
// ============================================================================

// ConsolidateReport summarizes what a consolidation pass changed
type ConsolidateReport struct {
	EntitiesMerged int `json:"entities_merged"`
	Archived       int `json:"archived"`
}

// ConsolidateMemory compacts the store conservatively. Entities whose
// canonical names are exact duplicates are merged (never fuzzy matches —
// false merges lose data); superseded observations older than the retention
// horizon move from the hot list into the entity's cold archive. Observation
// content is never discarded, only its presence in the hot view.
func (s *Store) ConsolidateMemory(retention time.Duration) ConsolidateReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report ConsolidateReport

	// Re-key every entity canonically; duplicates that slipped in through a
	// foreign snapshot collapse into one.
	rekeyed := make(map[string]*Entity, len(s.entities))
	for key, ent := range s.entities {
		canonical := key
		if key != SelfEntityName {
			canonical = CanonicalName(ent.Name)
		}
		if existing, ok := rekeyed[canonical]; ok {
			mergeEntityLocked(existing, ent)
			report.EntitiesMerged++
			continue
		}
		rekeyed[canonical] = ent
	}
	s.entities = rekeyed

	cutoff := time.Now().UTC().Add(-retention)
	for _, ent := range s.entities {
		hot := ent.Observations[:0]
		for i := range ent.Observations {
			obs := ent.Observations[i]
			if !obs.Active() && obs.SupersededAt.Before(cutoff) {
				ent.Archived = append(ent.Archived, obs)
				report.Archived++
				continue
			}
			hot = append(hot, obs)
		}
		ent.Observations = hot
	}

	s.logger.Info("Memory consolidated",
		zap.Int("entities_merged", report.EntitiesMerged),
		zap.Int("archived", report.Archived),
	)
	return report
}

// Scanner runs periodic maintenance over a store: staleness flagging and
// conservative consolidation
type Scanner struct {
	store     *Store
	horizon   time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewScanner creates a maintenance scanner
func NewScanner(store *Store, horizon, retention time.Duration) *Scanner {
	return &Scanner{
		store:     store,
		horizon:   horizon,
		retention: retention,
		logger:    logger.Get(),
	}
}

// RunOnce performs a single maintenance sweep
func (sc *Scanner) RunOnce() ([]Entity, ConsolidateReport) {
	stale := sc.store.StaleEntities(sc.horizon)
	report := sc.store.ConsolidateMemory(sc.retention)

	if len(stale) > 0 {
		names := make([]string, 0, len(stale))
		for _, ent := range stale {
			names = append(names, ent.Name)
		}
		sc.logger.Info("Stale entities flagged for re-verification",
			zap.Strings("entities", names),
			zap.Duration("horizon", sc.horizon),
		)
	}
	return stale, report
}

// Run sweeps on the given interval until the context is cancelled
func (sc *Scanner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sc.RunOnce()
		}
	}
}

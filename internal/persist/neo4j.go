package persist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"mnemo/internal/memory"
	apperrors "mnemo/pkg/errors"
	"mnemo/pkg/logger"
)

// Repository round-trips the in-memory graph through Neo4j. The store stays
// the source of truth while running; Neo4j holds snapshots across restarts.
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewRepository creates a snapshot repository over an open driver
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Named("persist"),
	}
}

// Connect opens a Neo4j driver and verifies connectivity
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, apperrors.NewPersistenceConnectionFailed(uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, apperrors.NewPersistenceConnectionFailed(uri, err)
	}
	return driver, nil
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

// SaveSnapshot replaces the persisted graph with the given snapshot. The
// write is wipe-and-rewrite: snapshots are small and the store is the
// authority, so there is nothing to merge against.
func (r *Repository) SaveSnapshot(ctx context.Context, snap memory.Snapshot) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		wipe := `
			MATCH (n)
			WHERE n:Entity OR n:Observation OR n:Task
			DETACH DELETE n
		`
		if _, err := tx.Run(ctx, wipe, nil); err != nil {
			return nil, fmt.Errorf("failed to wipe previous snapshot: %w", err)
		}

		for _, ent := range snap.Entities {
			if err := writeEntity(ctx, tx, ent); err != nil {
				return nil, err
			}
		}

		for _, rel := range snap.Relations {
			if err := writeRelation(ctx, tx, rel); err != nil {
				return nil, err
			}
		}

		for _, task := range snap.Tasks {
			if err := writeTask(ctx, tx, task); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return apperrors.NewPersistenceQueryFailed("save snapshot", err)
	}

	r.logger.Info("Snapshot saved",
		zap.Int("entities", len(snap.Entities)),
		zap.Int("relations", len(snap.Relations)),
		zap.Int("tasks", len(snap.Tasks)),
	)
	return nil
}

func writeEntity(ctx context.Context, tx neo4j.ManagedTransaction, ent memory.Entity) error {
	query := `
		MERGE (e:Entity {canonical: $canonical})
		SET e.name = $name,
		    e.type = $type,
		    e.session_context = $sessionContext,
		    e.created_at = datetime($createdAt),
		    e.updated_at = datetime($updatedAt)
	`
	_, err := tx.Run(ctx, query, map[string]interface{}{
		"canonical":      memory.CanonicalName(ent.Name),
		"name":           ent.Name,
		"type":           string(ent.Type),
		"sessionContext": ent.SessionContext,
		"createdAt":      ent.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":      ent.UpdatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to write entity %q: %w", ent.Name, err)
	}

	if err := writeObservations(ctx, tx, ent.Name, ent.Observations, false); err != nil {
		return err
	}
	return writeObservations(ctx, tx, ent.Name, ent.Archived, true)
}

func writeObservations(ctx context.Context, tx neo4j.ManagedTransaction, entity string, observations []memory.Observation, archived bool) error {
	if len(observations) == 0 {
		return nil
	}

	rows := make([]map[string]interface{}, 0, len(observations))
	for _, obs := range observations {
		row := map[string]interface{}{
			"id":           obs.ID,
			"content":      obs.Content,
			"stage":        string(obs.Stage),
			"evidence":     obs.Evidence,
			"timestamp":    obs.Timestamp.UTC().Format(time.RFC3339),
			"supersededBy": obs.SupersededBy,
			"archived":     archived,
		}
		if obs.SupersededAt != nil {
			row["supersededAt"] = obs.SupersededAt.UTC().Format(time.RFC3339)
		} else {
			row["supersededAt"] = nil
		}
		rows = append(rows, row)
	}

	query := `
		MATCH (e:Entity {canonical: $canonical})
		UNWIND $rows AS row
		CREATE (o:Observation {
			id: row.id,
			content: row.content,
			stage: row.stage,
			evidence: row.evidence,
			timestamp: datetime(row.timestamp),
			superseded_by: row.supersededBy,
			superseded_at: CASE WHEN row.supersededAt IS NULL THEN null ELSE datetime(row.supersededAt) END,
			archived: row.archived
		})
		CREATE (e)-[:HAS_OBSERVATION]->(o)
	`
	_, err := tx.Run(ctx, query, map[string]interface{}{
		"canonical": memory.CanonicalName(entity),
		"rows":      rows,
	})
	if err != nil {
		return fmt.Errorf("failed to write observations for %q: %w", entity, err)
	}
	return nil
}

func writeRelation(ctx context.Context, tx neo4j.ManagedTransaction, rel memory.Relation) error {
	// Relation types come from a closed vocabulary validated at creation
	// time, so interpolating the edge label is safe.
	if !memory.ValidRelationType(rel.Type) {
		return fmt.Errorf("refusing to persist relation with invalid type %q", rel.Type)
	}

	query := fmt.Sprintf(`
		MERGE (from:Entity {canonical: $from})
		ON CREATE SET from.name = $fromName, from.type = $otherType,
		              from.created_at = datetime($createdAt), from.updated_at = datetime($createdAt)
		MERGE (to:Entity {canonical: $to})
		ON CREATE SET to.name = $toName, to.type = $otherType,
		              to.created_at = datetime($createdAt), to.updated_at = datetime($createdAt)
		MERGE (from)-[r:%s]->(to)
		SET r.created_at = datetime($createdAt)
	`, strings.ToUpper(rel.Type))

	_, err := tx.Run(ctx, query, map[string]interface{}{
		"from":      memory.CanonicalName(rel.From),
		"fromName":  rel.From,
		"to":        memory.CanonicalName(rel.To),
		"toName":    rel.To,
		"otherType": string(memory.EntityOther),
		"createdAt": rel.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to write relation %s-[%s]->%s: %w", rel.From, rel.Type, rel.To, err)
	}
	return nil
}

func writeTask(ctx context.Context, tx neo4j.ManagedTransaction, task memory.Task) error {
	params := map[string]interface{}{
		"id":          task.ID,
		"description": task.Description,
		"status":      string(task.Status),
		"startedAt":   task.StartedAt.UTC().Format(time.RFC3339),
	}
	if task.FinishedAt != nil {
		params["finishedAt"] = task.FinishedAt.UTC().Format(time.RFC3339)
	} else {
		params["finishedAt"] = nil
	}

	query := `
		CREATE (t:Task {
			id: $id,
			description: $description,
			status: $status,
			started_at: datetime($startedAt),
			finished_at: CASE WHEN $finishedAt IS NULL THEN null ELSE datetime($finishedAt) END
		})
	`
	if _, err := tx.Run(ctx, query, params); err != nil {
		return fmt.Errorf("failed to write task %s: %w", task.ID, err)
	}
	return nil
}

// LoadSnapshot reads the persisted graph back into snapshot form
func (r *Repository) LoadSnapshot(ctx context.Context) (memory.Snapshot, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	var snap memory.Snapshot

	entityQuery := `
		MATCH (e:Entity)
		OPTIONAL MATCH (e)-[:HAS_OBSERVATION]->(o:Observation)
		RETURN e.name as name,
		       e.type as type,
		       e.session_context as session_context,
		       e.created_at as created_at,
		       e.updated_at as updated_at,
		       collect(o) as observations
		ORDER BY e.canonical
	`
	result, err := session.Run(ctx, entityQuery, nil)
	if err != nil {
		return snap, fmt.Errorf("failed to load entities: %w", err)
	}
	for result.Next(ctx) {
		record := result.Record()
		ent := memory.Entity{
			Name:           getString(record, "name", ""),
			Type:           memory.CoerceEntityType(getString(record, "type", "")),
			SessionContext: getString(record, "session_context", ""),
			CreatedAt:      getTime(record, "created_at", time.Now().UTC()),
			UpdatedAt:      getTime(record, "updated_at", time.Now().UTC()),
		}
		if ent.Name == "" {
			continue
		}

		obsVal, _ := record.Get("observations")
		if obsList, ok := obsVal.([]interface{}); ok {
			for _, item := range obsList {
				node, ok := item.(neo4j.Node)
				if !ok {
					continue
				}
				obs, archived := observationFromNode(node)
				if obs.ID == "" {
					continue
				}
				if archived {
					ent.Archived = append(ent.Archived, obs)
				} else {
					ent.Observations = append(ent.Observations, obs)
				}
			}
		}
		snap.Entities = append(snap.Entities, ent)
	}
	if err := result.Err(); err != nil {
		return snap, fmt.Errorf("failed to iterate entities: %w", err)
	}

	relationQuery := `
		MATCH (from:Entity)-[r]->(to:Entity)
		RETURN from.name as from, to.name as to, type(r) as rel_type, r.created_at as created_at
	`
	result, err = session.Run(ctx, relationQuery, nil)
	if err != nil {
		return snap, fmt.Errorf("failed to load relations: %w", err)
	}
	for result.Next(ctx) {
		record := result.Record()
		relType := strings.ToLower(getString(record, "rel_type", ""))
		if !memory.ValidRelationType(relType) {
			continue
		}
		snap.Relations = append(snap.Relations, memory.Relation{
			From:      getString(record, "from", ""),
			To:        getString(record, "to", ""),
			Type:      relType,
			CreatedAt: getTime(record, "created_at", time.Now().UTC()),
		})
	}
	if err := result.Err(); err != nil {
		return snap, fmt.Errorf("failed to iterate relations: %w", err)
	}

	taskQuery := `
		MATCH (t:Task)
		RETURN t.id as id, t.description as description, t.status as status,
		       t.started_at as started_at, t.finished_at as finished_at
		ORDER BY t.started_at
	`
	result, err = session.Run(ctx, taskQuery, nil)
	if err != nil {
		return snap, fmt.Errorf("failed to load tasks: %w", err)
	}
	for result.Next(ctx) {
		record := result.Record()
		task := memory.Task{
			ID:          getString(record, "id", ""),
			Description: getString(record, "description", ""),
			Status:      memory.TaskStatus(getString(record, "status", string(memory.TaskRunning))),
			StartedAt:   getTime(record, "started_at", time.Now().UTC()),
		}
		if task.ID == "" {
			continue
		}
		if finished, ok := record.Get("finished_at"); ok && finished != nil {
			if t, ok := finished.(time.Time); ok {
				utc := t.UTC()
				task.FinishedAt = &utc
			}
		}
		snap.Tasks = append(snap.Tasks, task)
	}
	if err := result.Err(); err != nil {
		return snap, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	r.logger.Info("Snapshot loaded",
		zap.Int("entities", len(snap.Entities)),
		zap.Int("relations", len(snap.Relations)),
		zap.Int("tasks", len(snap.Tasks)),
	)
	return snap, nil
}

func observationFromNode(node neo4j.Node) (memory.Observation, bool) {
	props := node.Props
	obs := memory.Observation{
		ID:           getStringFromMap(props, "id", ""),
		Content:      getStringFromMap(props, "content", ""),
		Stage:        memory.CoerceStage(getStringFromMap(props, "stage", "")),
		SupersededBy: getStringFromMap(props, "superseded_by", ""),
	}

	if val, ok := props["evidence"].([]interface{}); ok {
		for _, item := range val {
			if s, ok := item.(string); ok {
				obs.Evidence = append(obs.Evidence, s)
			}
		}
	}
	if t, ok := props["timestamp"].(time.Time); ok {
		obs.Timestamp = t.UTC()
	}
	if t, ok := props["superseded_at"].(time.Time); ok {
		utc := t.UTC()
		obs.SupersededAt = &utc
	}

	archived, _ := props["archived"].(bool)
	return obs, archived
}

// Helper functions

func getString(record *neo4j.Record, key string, defaultValue string) string {
	val, ok := record.Get(key)
	if !ok {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

func getTime(record *neo4j.Record, key string, defaultValue time.Time) time.Time {
	val, ok := record.Get(key)
	if !ok {
		return defaultValue
	}
	if t, ok := val.(time.Time); ok {
		return t.UTC()
	}
	return defaultValue
}

func getStringFromMap(m map[string]interface{}, key string, defaultValue string) string {
	val, ok := m[key]
	if !ok {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

package tools

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mnemo/internal/agent"
	"mnemo/internal/memory"
	"mnemo/pkg/logger"
)

// ExecutionContext holds context for tool execution
type ExecutionContext struct {
	UserID    string
	ChannelID string
	Platform  string // "discord", "web"
}

// ToolResult represents the result of a tool execution
type ToolResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Executor handles tool execution against the memory core
type Executor struct {
	store    *memory.Store
	pipeline *agent.Pipeline
	horizon  time.Duration
	retained time.Duration
	logger   *zap.Logger
}

// NewExecutor creates a new tool executor. The pipeline may be nil, in which
// case add_exchange only updates the session window.
func NewExecutor(store *memory.Store, pipeline *agent.Pipeline, horizon, retention time.Duration) *Executor {
	return &Executor{
		store:    store,
		pipeline: pipeline,
		horizon:  horizon,
		retained: retention,
		logger:   logger.Named("tools"),
	}
}

// Execute runs a tool call and returns the result
func (e *Executor) Execute(ctx context.Context, execCtx *ExecutionContext, name string, args map[string]interface{}) *ToolResult {
	e.logger.Debug("Executing tool",
		zap.String("tool", name),
		zap.String("user_id", execCtx.UserID),
	)

	switch name {
	// Knowledge Tools
	case ToolSaveKnowledge:
		return e.executeSaveKnowledge(args)
	case ToolSearchKnowledge:
		return e.executeSearchKnowledge(args)
	case ToolUpdateEntity:
		return e.executeUpdateEntity(args)
	case ToolRemoveFact:
		return e.executeRemoveFact(args)
	case ToolGetFactHistory:
		return e.executeGetFactHistory(args)

	// Entity Tools
	case ToolAddEntity:
		return e.executeAddEntity(args)
	case ToolGetEntity:
		return e.executeGetEntity(args)
	case ToolSearchEntities:
		return e.executeSearchEntities(args)
	case ToolGetAllEntities:
		return &ToolResult{Success: true, Data: e.store.GetAllEntities()}
	case ToolAddRelation:
		return e.executeAddRelation(args)
	case ToolGetAllRelations:
		entity, _ := args["entity"].(string)
		return &ToolResult{Success: true, Data: e.store.GetAllRelations(entity)}

	// Session Tools
	case ToolAddExchange:
		return e.executeAddExchange(ctx, execCtx, args)
	case ToolSearchExchanges:
		return e.executeSearchExchanges(args)

	// Task Tools
	case ToolStartTask:
		return e.executeStartTask(args)
	case ToolCompleteTask:
		return e.executeFinishTask(args, true)
	case ToolAbortTask:
		return e.executeFinishTask(args, false)
	case ToolCheckTasks:
		return &ToolResult{Success: true, Data: e.store.CheckTasks()}

	// Self & Maintenance Tools
	case ToolGetSelfEntity:
		return e.executeGetSelfEntity()
	case ToolSelfObserve:
		return e.executeSelfObserve(args)
	case ToolConsolidateMemory:
		report := e.store.ConsolidateMemory(e.retained)
		return &ToolResult{
			Success: true,
			Data:    report,
			Message: fmt.Sprintf("Merged %d entities, archived %d observations", report.EntitiesMerged, report.Archived),
		}
	case ToolGetStaleEntities:
		return e.executeGetStaleEntities(args)
	case ToolMemoryStats:
		return &ToolResult{Success: true, Data: e.store.Stats()}

	default:
		e.logger.Warn("Unknown tool", zap.String("tool", name))
		return &ToolResult{
			Success: false,
			Error:   fmt.Sprintf("Unknown tool: %s", name),
		}
	}
}

// ============================================================================
// Knowledge Tool Implementations
// ============================================================================

func (e *Executor) executeSaveKnowledge(args map[string]interface{}) *ToolResult {
	entity, _ := args["entity"].(string)
	content, _ := args["content"].(string)
	if entity == "" || content == "" {
		return &ToolResult{Success: false, Error: "entity and content are required"}
	}

	stageArg, _ := args["stage"].(string)
	stage := memory.CoerceStage(stageArg)

	typeArg, _ := args["entity_type"].(string)
	if _, err := e.store.AddEntity(entity, memory.CoerceEntityType(typeArg), nil); err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}

	obs, err := e.store.AddObservation(entity, content, stage, "tool")
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	return &ToolResult{
		Success: true,
		Data:    obs,
		Message: fmt.Sprintf("Saved to %s: %s", entity, content),
	}
}

func (e *Executor) executeSearchKnowledge(args map[string]interface{}) *ToolResult {
	query, _ := args["query"].(string)
	if query == "" {
		return &ToolResult{Success: false, Error: "query is required"}
	}
	hits := e.store.SearchKnowledge(query, intArg(args, "limit"))
	return &ToolResult{
		Success: true,
		Data:    hits,
		Message: fmt.Sprintf("Found %d observations matching '%s'", len(hits), query),
	}
}

func (e *Executor) executeUpdateEntity(args map[string]interface{}) *ToolResult {
	entity, _ := args["entity"].(string)
	obsID, _ := args["observation_id"].(string)
	newContent, _ := args["new_content"].(string)
	if entity == "" || obsID == "" || newContent == "" {
		return &ToolResult{Success: false, Error: "entity, observation_id and new_content are required"}
	}

	obs, err := e.store.UpdateEntityFact(entity, obsID, newContent)
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	return &ToolResult{
		Success: true,
		Data:    obs,
		Message: fmt.Sprintf("Superseded %s on %s", obsID, entity),
	}
}

func (e *Executor) executeRemoveFact(args map[string]interface{}) *ToolResult {
	entity, _ := args["entity"].(string)
	obsID, _ := args["observation_id"].(string)
	if entity == "" || obsID == "" {
		return &ToolResult{Success: false, Error: "entity and observation_id are required"}
	}

	if err := e.store.RemoveFact(entity, obsID); err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	return &ToolResult{Success: true, Message: fmt.Sprintf("Retracted %s on %s", obsID, entity)}
}

func (e *Executor) executeGetFactHistory(args map[string]interface{}) *ToolResult {
	entity, _ := args["entity"].(string)
	if entity == "" {
		return &ToolResult{Success: false, Error: "entity is required"}
	}

	history, err := e.store.GetFactHistory(entity)
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	return &ToolResult{Success: true, Data: history}
}

// ============================================================================
// Entity Tool Implementations
// ============================================================================

func (e *Executor) executeAddEntity(args map[string]interface{}) *ToolResult {
	name, _ := args["name"].(string)
	if name == "" {
		return &ToolResult{Success: false, Error: "name is required"}
	}

	typeArg, _ := args["entity_type"].(string)
	var obs []memory.Observation
	if obsArg, ok := args["observations"].([]interface{}); ok {
		for _, o := range obsArg {
			if content, ok := o.(string); ok && content != "" {
				obs = append(obs, memory.NewObservation(content, memory.StageRaw, "tool"))
			}
		}
	}

	ent, err := e.store.AddEntity(name, memory.CoerceEntityType(typeArg), obs)
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	return &ToolResult{Success: true, Data: ent}
}

func (e *Executor) executeGetEntity(args map[string]interface{}) *ToolResult {
	name, _ := args["name"].(string)
	if name == "" {
		return &ToolResult{Success: false, Error: "name is required"}
	}

	ent, err := e.store.GetEntity(name)
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	return &ToolResult{Success: true, Data: ent}
}

func (e *Executor) executeSearchEntities(args map[string]interface{}) *ToolResult {
	query, _ := args["query"].(string)
	if query == "" {
		return &ToolResult{Success: false, Error: "query is required"}
	}
	hits := e.store.SearchEntities(query, intArg(args, "limit"))
	return &ToolResult{
		Success: true,
		Data:    hits,
		Message: fmt.Sprintf("Found %d entities matching '%s'", len(hits), query),
	}
}

func (e *Executor) executeAddRelation(args map[string]interface{}) *ToolResult {
	from, _ := args["from"].(string)
	to, _ := args["to"].(string)
	relType, _ := args["relation_type"].(string)
	if from == "" || to == "" || relType == "" {
		return &ToolResult{Success: false, Error: "from, to and relation_type are required"}
	}

	created, err := e.store.AddRelation(from, to, relType)
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	msg := fmt.Sprintf("Linked %s -[%s]-> %s", from, relType, to)
	if !created {
		msg = "Relation already exists"
	}
	return &ToolResult{Success: true, Data: created, Message: msg}
}

// ============================================================================
// Session Tool Implementations
// ============================================================================

func (e *Executor) executeAddExchange(ctx context.Context, execCtx *ExecutionContext, args map[string]interface{}) *ToolResult {
	entity, _ := args["entity"].(string)
	userMsg, _ := args["user_message"].(string)
	assistantMsg, _ := args["assistant_message"].(string)
	if entity == "" || userMsg == "" || assistantMsg == "" {
		return &ToolResult{Success: false, Error: "entity, user_message and assistant_message are required"}
	}

	channel, _ := args["channel"].(string)
	if channel == "" {
		channel = execCtx.ChannelID
	}

	if e.pipeline == nil {
		return &ToolResult{Success: false, Error: "exchange pipeline not initialized"}
	}

	report, err := e.pipeline.ProcessExchange(ctx, entity, channel, userMsg, assistantMsg)
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	return &ToolResult{
		Success: true,
		Data:    report,
		Message: fmt.Sprintf("Exchange recorded for %s", entity),
	}
}

func (e *Executor) executeSearchExchanges(args map[string]interface{}) *ToolResult {
	query, _ := args["query"].(string)
	if query == "" {
		return &ToolResult{Success: false, Error: "query is required"}
	}
	hits := e.store.SearchExchanges(query, intArg(args, "limit"))
	return &ToolResult{Success: true, Data: hits}
}

// ============================================================================
// Task Tool Implementations
// ============================================================================

func (e *Executor) executeStartTask(args map[string]interface{}) *ToolResult {
	description, _ := args["description"].(string)
	if description == "" {
		return &ToolResult{Success: false, Error: "description is required"}
	}
	task := e.store.StartTask(description)
	return &ToolResult{Success: true, Data: task, Message: fmt.Sprintf("Task started: %s", task.ID)}
}

func (e *Executor) executeFinishTask(args map[string]interface{}, done bool) *ToolResult {
	id, _ := args["task_id"].(string)
	if id == "" {
		return &ToolResult{Success: false, Error: "task_id is required"}
	}

	var err error
	if done {
		err = e.store.CompleteTask(id)
	} else {
		err = e.store.AbortTask(id)
	}
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	return &ToolResult{Success: true, Message: fmt.Sprintf("Task %s updated", id)}
}

// ============================================================================
// Self & Maintenance Tool Implementations
// ============================================================================

func (e *Executor) executeGetSelfEntity() *ToolResult {
	ent, err := e.store.GetSelfEntity()
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	return &ToolResult{Success: true, Data: ent}
}

func (e *Executor) executeSelfObserve(args map[string]interface{}) *ToolResult {
	content, _ := args["content"].(string)
	if content == "" {
		return &ToolResult{Success: false, Error: "content is required"}
	}

	stage := memory.StageTrait
	if stageArg, ok := args["stage"].(string); ok && stageArg != "" {
		stage = memory.CoerceStage(stageArg)
	}

	obs, err := e.store.SelfObserve(content, stage, "self-reflection")
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	return &ToolResult{Success: true, Data: obs, Message: "Self-observation recorded"}
}

func (e *Executor) executeGetStaleEntities(args map[string]interface{}) *ToolResult {
	horizon := e.horizon
	if hours := intArg(args, "horizon_hours"); hours > 0 {
		horizon = time.Duration(hours) * time.Hour
	}

	stale := e.store.StaleEntities(horizon)
	return &ToolResult{
		Success: true,
		Data:    stale,
		Message: fmt.Sprintf("%d entities older than %s", len(stale), horizon),
	}
}

// intArg reads a numeric argument; JSON numbers arrive as float64
func intArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

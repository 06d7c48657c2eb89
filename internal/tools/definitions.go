package tools

// Tool is a function the model can call, in OpenAI function-calling shape
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes a callable tool function
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Tool names - Knowledge Tools
const (
	ToolSaveKnowledge   = "save_knowledge"
	ToolSearchKnowledge = "search_knowledge"
	ToolGetFactHistory  = "get_fact_history"
	ToolUpdateEntity    = "update_entity"
	ToolRemoveFact      = "remove_fact"
)

// Tool names - Entity Tools
const (
	ToolAddEntity       = "add_entity"
	ToolGetEntity       = "get_entity"
	ToolSearchEntities  = "search_entities"
	ToolGetAllEntities  = "get_all_entities"
	ToolAddRelation     = "add_relation"
	ToolGetAllRelations = "get_all_relations"
)

// Tool names - Session Tools
const (
	ToolAddExchange     = "add_exchange"
	ToolSearchExchanges = "search_exchanges"
)

// Tool names - Task Tools
const (
	ToolStartTask    = "start_task"
	ToolCompleteTask = "complete_task"
	ToolAbortTask    = "abort_task"
	ToolCheckTasks   = "check_tasks"
)

// Tool names - Self & Maintenance Tools
const (
	ToolGetSelfEntity     = "get_self_entity"
	ToolSelfObserve       = "self_observe"
	ToolConsolidateMemory = "consolidate_memory"
	ToolGetStaleEntities  = "get_stale_entities"
	ToolMemoryStats       = "memory_stats"
)

// GetKnowledgeTools returns fact/knowledge management tools
func GetKnowledgeTools() []Tool {
	return []Tool{
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolSaveKnowledge,
				Description: "Store an observation about an entity. Creates the entity if it doesn't exist. Use this when someone shares information worth remembering.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"entity": map[string]interface{}{
							"type":        "string",
							"description": "The entity the observation is about",
						},
						"content": map[string]interface{}{
							"type":        "string",
							"description": "The observation, rewritten clearly and standalone",
						},
						"stage": map[string]interface{}{
							"type":        "string",
							"description": "Lifecycle stage: raw, extracted, trait, belief, or fact (defaults to raw)",
						},
						"entity_type": map[string]interface{}{
							"type":        "string",
							"description": "Entity type when creating: person, project, technology, organization, concept, other",
						},
					},
					"required": []string{"entity", "content"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolSearchKnowledge,
				Description: "Search stored observations by content. Use this when asked what you know about a subject.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "Text to search observation content for",
						},
						"limit": map[string]interface{}{
							"type":        "integer",
							"description": "Maximum number of results (default 10)",
						},
					},
					"required": []string{"query"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolUpdateEntity,
				Description: "Correct a stored fact. The old observation is superseded (kept in history) and the new content becomes the active version.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"entity": map[string]interface{}{
							"type":        "string",
							"description": "The entity holding the observation",
						},
						"observation_id": map[string]interface{}{
							"type":        "string",
							"description": "ID of the observation to supersede",
						},
						"new_content": map[string]interface{}{
							"type":        "string",
							"description": "The corrected fact",
						},
					},
					"required": []string{"entity", "observation_id", "new_content"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolRemoveFact,
				Description: "Retract a stored fact without replacement. The observation becomes inactive but stays in history.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"entity": map[string]interface{}{
							"type":        "string",
							"description": "The entity holding the observation",
						},
						"observation_id": map[string]interface{}{
							"type":        "string",
							"description": "ID of the observation to retract",
						},
					},
					"required": []string{"entity", "observation_id"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolGetFactHistory,
				Description: "Get the full version chain of an entity's observations in creation order, including superseded and archived entries.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"entity": map[string]interface{}{
							"type":        "string",
							"description": "The entity to get history for",
						},
					},
					"required": []string{"entity"},
				},
			},
		},
	}
}

// GetEntityTools returns entity and relation management tools
func GetEntityTools() []Tool {
	return []Tool{
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolAddEntity,
				Description: "Create an entity in the knowledge graph, or merge observations into it if it already exists (names are case-insensitive).",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"name": map[string]interface{}{
							"type":        "string",
							"description": "Entity name as first seen",
						},
						"entity_type": map[string]interface{}{
							"type":        "string",
							"description": "person, project, technology, organization, concept, or other",
						},
						"observations": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "string"},
							"description": "Initial observations about this entity",
						},
					},
					"required": []string{"name"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolGetEntity,
				Description: "Get one entity with all its observations and session context.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"name": map[string]interface{}{
							"type":        "string",
							"description": "Entity name (case-insensitive)",
						},
					},
					"required": []string{"name"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolSearchEntities,
				Description: "Find entities whose name contains the query.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "Text to match against entity names",
						},
						"limit": map[string]interface{}{
							"type":        "integer",
							"description": "Maximum number of results (default 10)",
						},
					},
					"required": []string{"query"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolGetAllEntities,
				Description: "List every entity in the graph.",
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
					"required":   []string{},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolAddRelation,
				Description: "Link two entities with a typed relation. Valid types: knows, works_on, uses, prefers, created, depends_on, part_of, manages, related_to, learned_from.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"from": map[string]interface{}{
							"type":        "string",
							"description": "Source entity name",
						},
						"to": map[string]interface{}{
							"type":        "string",
							"description": "Target entity name",
						},
						"relation_type": map[string]interface{}{
							"type":        "string",
							"description": "One of the valid relation types",
						},
					},
					"required": []string{"from", "to", "relation_type"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolGetAllRelations,
				Description: "List relations, optionally filtered to those touching one entity.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"entity": map[string]interface{}{
							"type":        "string",
							"description": "Only relations touching this entity (optional)",
						},
					},
					"required": []string{},
				},
			},
		},
	}
}

// GetSessionTools returns conversation session tools
func GetSessionTools() []Tool {
	return []Tool{
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolAddExchange,
				Description: "Record one user/assistant exchange for an entity. Updates the rolling session window and runs knowledge extraction.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"entity": map[string]interface{}{
							"type":        "string",
							"description": "The person the exchange was with",
						},
						"user_message": map[string]interface{}{
							"type":        "string",
							"description": "What the user said",
						},
						"assistant_message": map[string]interface{}{
							"type":        "string",
							"description": "What the assistant replied",
						},
						"channel": map[string]interface{}{
							"type":        "string",
							"description": "Where the exchange happened (optional)",
						},
					},
					"required": []string{"entity", "user_message", "assistant_message"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolSearchExchanges,
				Description: "Search recent session windows for text. Session context is lossy; only the most recent window per entity is visible.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "Text to search session windows for",
						},
						"limit": map[string]interface{}{
							"type":        "integer",
							"description": "Maximum number of results (default 10)",
						},
					},
					"required": []string{"query"},
				},
			},
		},
	}
}

// GetTaskTools returns task tracking tools
func GetTaskTools() []Tool {
	return []Tool{
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolStartTask,
				Description: "Register a unit of work you are starting so it survives across turns.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"description": map[string]interface{}{
							"type":        "string",
							"description": "What the task is",
						},
					},
					"required": []string{"description"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolCompleteTask,
				Description: "Mark a running task done.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"task_id": map[string]interface{}{
							"type":        "string",
							"description": "ID returned by start_task",
						},
					},
					"required": []string{"task_id"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolAbortTask,
				Description: "Mark a running task aborted.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"task_id": map[string]interface{}{
							"type":        "string",
							"description": "ID returned by start_task",
						},
					},
					"required": []string{"task_id"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolCheckTasks,
				Description: "List tracked tasks, running first.",
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
					"required":   []string{},
				},
			},
		},
	}
}

// GetSelfTools returns self-model and maintenance tools
func GetSelfTools() []Tool {
	return []Tool{
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolGetSelfEntity,
				Description: "Get the agent's own entity: accumulated rules, mistakes, improvements, and identity observations.",
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
					"required":   []string{},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolSelfObserve,
				Description: "Record an observation about yourself: a rule the user gave you ([user-preference-about-me] ...), a mistake ([mistake] ...), or an improvement ([improvement] ...).",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"content": map[string]interface{}{
							"type":        "string",
							"description": "The self-observation, prefixed with its tag when applicable",
						},
						"stage": map[string]interface{}{
							"type":        "string",
							"description": "Lifecycle stage (defaults to trait)",
						},
					},
					"required": []string{"content"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolConsolidateMemory,
				Description: "Run conservative consolidation: merge exact-duplicate entities and archive old superseded observations. Never discards content.",
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
					"required":   []string{},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolGetStaleEntities,
				Description: "List entities not updated within the staleness horizon, so volatile facts can be re-verified at their source.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"horizon_hours": map[string]interface{}{
							"type":        "integer",
							"description": "Staleness horizon in hours (defaults to the configured horizon)",
						},
					},
					"required": []string{},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        ToolMemoryStats,
				Description: "Counts of entities, observations, superseded facts, archived facts, relations, and tasks.",
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
					"required":   []string{},
				},
			},
		},
	}
}

// GetAllTools returns every tool the memory core exposes
func GetAllTools() []Tool {
	var tools []Tool
	tools = append(tools, GetKnowledgeTools()...)
	tools = append(tools, GetEntityTools()...)
	tools = append(tools, GetSessionTools()...)
	tools = append(tools, GetTaskTools()...)
	tools = append(tools, GetSelfTools()...)
	return tools
}

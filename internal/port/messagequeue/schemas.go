package messagequeue

import (
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain/usage"
)

// TaskDispatchedPayload is the schema for tasks.dispatched messages.
type TaskDispatchedPayload struct {
	TaskID      string   `json:"task_id"`
	TenantID    string   `json:"tenant_id"`
	AgentID     string   `json:"agent_id"`
	AgentName   string   `json:"agent_name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// UsageUpdatedPayload is the schema for usage.updated messages.
type UsageUpdatedPayload struct {
	Granularity usage.Granularity `json:"granularity"`
	Buckets     int               `json:"buckets"`
	CostOK      bool              `json:"cost_ok"`
	UsageOK     bool              `json:"usage_ok"`
	At          time.Time         `json:"at"`
}

// runEventSchema mirrors runevent.Event. The HTTP ingestion endpoint and the
// runs.events subscriber share it.
const runEventSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["runId", "action"],
  "properties": {
    "runId":      {"type": "string", "minLength": 1},
    "action":     {"enum": ["start", "progress", "end", "error", "document"]},
    "sessionKey": {"type": "string"},
    "agentId":    {"type": "string"},
    "timestamp":  {"type": "string"},
    "error":      {"type": "string"},
    "prompt":     {"type": "string"},
    "source":     {"type": "string"},
    "message":    {"type": "string"},
    "response":   {"type": "string"},
    "eventType":  {"type": "string"},
    "document": {
      "type": "object",
      "required": ["title", "content"],
      "properties": {
        "title":   {"type": "string", "minLength": 1},
        "content": {"type": "string"},
        "type":    {"type": "string"},
        "path":    {"type": "string"}
      }
    }
  }
}`

const dispatchRequestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "title":       {"type": "string"},
    "description": {"type": "string"},
    "agent":       {"type": "string"},
    "tags":        {"type": "array", "items": {"type": "string"}},
    "tenantId":    {"type": "string"}
  }
}`

const taskDispatchedSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["task_id", "tenant_id", "agent_id"],
  "properties": {
    "task_id":   {"type": "string", "minLength": 1},
    "tenant_id": {"type": "string", "minLength": 1},
    "agent_id":  {"type": "string", "minLength": 1},
    "tags":      {"type": "array", "items": {"type": "string"}}
  }
}`

// SchemaDispatchRequest names the body schema of the dispatch endpoint.
const SchemaDispatchRequest = "http.dispatch"

var schemaSources = map[string]string{
	SubjectRunEvent:       runEventSchema,
	SubjectTaskDispatched: taskDispatchedSchema,
	SchemaDispatchRequest: dispatchRequestSchema,
}

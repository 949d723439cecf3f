package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/missioncontrol/internal/domain/message"
	"github.com/Strob0t/missioncontrol/internal/domain/task"
	"github.com/Strob0t/missioncontrol/internal/service"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.listTasksTool(),
		s.getTaskTool(),
		s.updateTaskStatusTool(),
		s.postMessageTool(),
		s.listAgentsTool(),
		s.dispatchTaskTool(),
		s.usageTodayTool(),
	)
}

func (s *Server) listTasksTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_tasks",
		mcplib.WithDescription("List the tasks on the board, optionally filtered by status"),
		mcplib.WithString("status",
			mcplib.Description("Only return tasks in this status"),
			mcplib.Enum(statusNames()...),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListTasks}
}

func (s *Server) getTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_task",
		mcplib.WithDescription("Get a task by ID"),
		mcplib.WithString("task_id", mcplib.Required(), mcplib.Description("The task ID")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetTask}
}

func (s *Server) updateTaskStatusTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("update_task_status",
		mcplib.WithDescription("Move a task to a new status on behalf of an agent"),
		mcplib.WithString("task_id", mcplib.Required(), mcplib.Description("The task ID")),
		mcplib.WithString("status", mcplib.Required(), mcplib.Enum(statusNames()...)),
		mcplib.WithString("agent_id", mcplib.Required(), mcplib.Description("ID of the acting agent")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleUpdateTaskStatus}
}

func (s *Server) postMessageTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("post_message",
		mcplib.WithDescription("Comment on a task"),
		mcplib.WithString("task_id", mcplib.Required(), mcplib.Description("The task ID")),
		mcplib.WithString("agent_id", mcplib.Required(), mcplib.Description("ID of the posting agent")),
		mcplib.WithString("content", mcplib.Required(), mcplib.Description("Markdown message body")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handlePostMessage}
}

func (s *Server) listAgentsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_agents",
		mcplib.WithDescription("List the agents of the squad"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListAgents}
}

func (s *Server) dispatchTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("dispatch_task",
		mcplib.WithDescription("Create a task assigned to the named agent and hand it to the runner"),
		mcplib.WithString("description", mcplib.Required(), mcplib.Description("What the agent should do")),
		mcplib.WithString("agent", mcplib.Required(), mcplib.Description("Name of the agent")),
		mcplib.WithString("title", mcplib.Description("Task title; derived from the description when empty")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleDispatchTask}
}

func (s *Server) usageTodayTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_usage_today",
		mcplib.WithDescription("Get today's API spend and token usage against the daily budget"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleUsageToday}
}

func (s *Server) handleListTasks(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Tasks == nil {
		return mcplib.NewToolResultError("task board not configured"), nil
	}
	tasks, err := s.deps.Tasks.List(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list tasks", err), nil
	}
	if status := stringArg(req, "status"); status != "" {
		filtered := make([]task.Task, 0, len(tasks))
		for i := range tasks {
			if string(tasks[i].Status) == status {
				filtered = append(filtered, tasks[i])
			}
		}
		tasks = filtered
	}
	return jsonResult(tasks, "tasks")
}

func (s *Server) handleGetTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Tasks == nil {
		return mcplib.NewToolResultError("task board not configured"), nil
	}
	id := stringArg(req, "task_id")
	if id == "" {
		return mcplib.NewToolResultError("task_id is required"), nil
	}
	t, err := s.deps.Tasks.Get(ctx, id)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to get task %s", id), err), nil
	}
	return jsonResult(t, "task")
}

func (s *Server) handleUpdateTaskStatus(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Tasks == nil {
		return mcplib.NewToolResultError("task board not configured"), nil
	}
	id, status, actor := stringArg(req, "task_id"), stringArg(req, "status"), stringArg(req, "agent_id")
	if id == "" || status == "" || actor == "" {
		return mcplib.NewToolResultError("task_id, status and agent_id are required"), nil
	}
	t, err := s.deps.Tasks.UpdateStatus(ctx, id, task.Status(status), actor)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to update task %s", id), err), nil
	}
	return jsonResult(t, "task")
}

func (s *Server) handlePostMessage(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Messages == nil {
		return mcplib.NewToolResultError("messages not configured"), nil
	}
	m, err := s.deps.Messages.Send(ctx, message.CreateRequest{
		TaskID:      stringArg(req, "task_id"),
		FromAgentID: stringArg(req, "agent_id"),
		Content:     stringArg(req, "content"),
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to post message", err), nil
	}
	return jsonResult(m, "message")
}

func (s *Server) handleListAgents(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil {
		return mcplib.NewToolResultError("agents not configured"), nil
	}
	agents, err := s.deps.Agents.List(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list agents", err), nil
	}
	return jsonResult(agents, "agents")
}

func (s *Server) handleDispatchTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Dispatch == nil {
		return mcplib.NewToolResultError("dispatcher not configured"), nil
	}
	t, err := s.deps.Dispatch.Dispatch(ctx, service.DispatchRequest{
		Title:       stringArg(req, "title"),
		Description: stringArg(req, "description"),
		Agent:       stringArg(req, "agent"),
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to dispatch task", err), nil
	}
	return jsonResult(t, "task")
}

func (s *Server) handleUsageToday(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Usage == nil {
		return mcplib.NewToolResultError("usage not configured"), nil
	}
	today, err := s.deps.Usage.Today(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to get usage", err), nil
	}
	return jsonResult(today, "usage")
}

func stringArg(req mcplib.CallToolRequest, name string) string { //nolint:gocritic // hugeParam: mcp-go request type
	v, _ := req.GetArguments()[name].(string)
	return v
}

func statusNames() []string {
	out := make([]string, len(task.Statuses))
	for i, st := range task.Statuses {
		out[i] = string(st)
	}
	return out
}

func jsonResult(v any, what string) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal "+what, err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}

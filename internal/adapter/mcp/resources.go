package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"missioncontrol://tasks",
			"Task Board",
			mcplib.WithResourceDescription("All tasks of the tenant"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleTasksResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"missioncontrol://usage/today",
			"Usage Today",
			mcplib.WithResourceDescription("Today's spend against the daily budget"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleUsageResource,
	)
}

func (s *Server) handleTasksResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Tasks == nil {
		return jsonResource(req.Params.URI, `{"error":"task board not configured"}`), nil
	}
	tasks, err := s.deps.Tasks.List(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, string(data)), nil
}

func (s *Server) handleUsageResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Usage == nil {
		return jsonResource(req.Params.URI, `{"error":"usage not configured"}`), nil
	}
	today, err := s.deps.Usage.Today(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(today)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, string(data)), nil
}

func jsonResource(uri, text string) []mcplib.ResourceContents {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		},
	}
}

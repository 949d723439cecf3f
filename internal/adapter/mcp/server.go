// Package mcp exposes the task board to agents over the Model Context
// Protocol (streamable HTTP transport).
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/missioncontrol/internal/domain/agent"
	"github.com/Strob0t/missioncontrol/internal/domain/message"
	"github.com/Strob0t/missioncontrol/internal/domain/task"
	"github.com/Strob0t/missioncontrol/internal/domain/usage"
	"github.com/Strob0t/missioncontrol/internal/middleware"
	"github.com/Strob0t/missioncontrol/internal/service"
)

// TaskBoard reads and moves tasks.
type TaskBoard interface {
	List(ctx context.Context) ([]task.Task, error)
	Get(ctx context.Context, id string) (*task.Task, error)
	UpdateStatus(ctx context.Context, id string, status task.Status, actorID string) (*task.Task, error)
}

// AgentLister lists the tenant's agents.
type AgentLister interface {
	List(ctx context.Context) ([]agent.Agent, error)
}

// MessagePoster posts comments on tasks.
type MessagePoster interface {
	Send(ctx context.Context, req message.CreateRequest) (*message.Message, error)
}

// Dispatcher creates agent-assigned tasks.
type Dispatcher interface {
	Dispatch(ctx context.Context, req service.DispatchRequest) (*task.Task, error)
}

// UsageReader reports today's spend.
type UsageReader interface {
	Today(ctx context.Context) (*usage.Today, error)
}

// ServerConfig holds the MCP server settings.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
}

// ServerDeps are the services behind the tools. Nil deps make the matching
// tools report an error.
type ServerDeps struct {
	Tasks    TaskBoard
	Agents   AgentLister
	Messages MessagePoster
	Dispatch Dispatcher
	Usage    UsageReader
	Tokens   middleware.TokenValidator
}

// Server serves the task-board tools to MCP clients.
type Server struct {
	cfg        ServerConfig
	deps       ServerDeps
	mcpServer  *mcpserver.MCPServer
	httpServer *http.Server
}

// NewServer creates a Server with all tools and resources registered.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcpServer }

// Handler returns the authenticated streamable HTTP handler.
func (s *Server) Handler() http.Handler {
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithHTTPContextFunc(tenantFromRequest),
	)
	return authenticate(s.deps.Tokens, streamable)
}

// Start listens on the configured address in the background.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("mcp server listening", "addr", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/stencil/internal/engine"
	"github.com/rendis/stencil/internal/validation"
)

// StencilServerDeps holds the dependencies for creating a StencilServer.
type StencilServerDeps struct {
	Engine    *engine.Engine
	Documents *validation.DocumentValidator
	Version   string
	Logger    *slog.Logger
}

// StencilServer wraps an MCP server with stencil-specific tool handlers.
type StencilServer struct {
	engine    *engine.Engine
	documents *validation.DocumentValidator
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewStencilServer creates a new StencilServer with all 4 tools registered.
func NewStencilServer(deps StencilServerDeps) *StencilServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &StencilServer{
		engine:    deps.Engine,
		documents: deps.Documents,
		logger:    logger,
	}

	mcpSrv := server.NewMCPServer(
		"stencil",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Stencil renders templates made of text and expression segments against JSON data. Use stencil.render to render a document, stencil.validate to check one without rendering, stencil.diagram to draw its expression trees, and stencil.extensions to list the available filters, functions and tests."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *StencilServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *StencilServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *StencilServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: renderTool(), Handler: s.handleRender},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: extensionsTool(), Handler: s.handleExtensions},
		{Tool: diagramTool(), Handler: s.handleDiagram},
	}
}

// --- Tool definitions ---

func renderTool() mcp.Tool {
	return mcp.NewTool("stencil.render",
		mcp.WithDescription("Render a template document"),
		mcp.WithObject("document", mcp.Description("Render document: {name, template: [{text} | {print: node}], data, locale, timezone, strict}")),
		mcp.WithString("source", mcp.Description("The same document as JSON or YAML text; used when document is absent")),
		mcp.WithObject("data", mcp.Description("Data merged over the document's own data, top-level keys win")),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("stencil.validate",
		mcp.WithDescription("Validate a template document without rendering it"),
		mcp.WithObject("document", mcp.Description("Render document to validate")),
		mcp.WithString("source", mcp.Description("The same document as JSON or YAML text; used when document is absent")),
	)
}

func extensionsTool() mcp.Tool {
	return mcp.NewTool("stencil.extensions",
		mcp.WithDescription("List registered filters, functions and tests"),
		mcp.WithString("kind",
			mcp.Enum("filter", "function", "test"),
			mcp.Description("Restrict the listing to one kind (default: all)"),
		),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("stencil.diagram",
		mcp.WithDescription("Draw the segments and expression trees of a template document"),
		mcp.WithObject("document", mcp.Description("Render document to draw")),
		mcp.WithString("source", mcp.Description("The same document as JSON or YAML text; used when document is absent")),
		mcp.WithString("format",
			mcp.Enum("mermaid", "ascii"),
			mcp.Description("Output format (default: mermaid)"),
		),
	)
}

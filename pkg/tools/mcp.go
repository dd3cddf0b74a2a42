package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/theapemachine/agentdeck/pkg/errors"
)

/*
ConnectionParams describes how to reach an MCP server.
*/
type ConnectionParams interface {
	connect(ctx context.Context) (*client.Client, error)
	String() string
}

type StreamableHTTP struct {
	URL     string
	Headers map[string]string
}

func (params StreamableHTTP) connect(ctx context.Context) (*client.Client, error) {
	conn, err := client.NewStreamableHttpClient(
		params.URL, transport.WithHTTPHeaders(params.Headers),
	)

	if err != nil {
		return nil, err
	}

	if err = conn.Start(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

func (params StreamableHTTP) String() string {
	return "streamable-http " + redact(params.URL)
}

type SSE struct {
	URL     string
	Headers map[string]string
}

func (params SSE) connect(ctx context.Context) (*client.Client, error) {
	conn, err := client.NewSSEMCPClient(params.URL, transport.WithHeaders(params.Headers))

	if err != nil {
		return nil, err
	}

	if err = conn.Start(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

func (params SSE) String() string {
	return "sse " + redact(params.URL)
}

type Stdio struct {
	Command string
	Args    []string
	Env     []string
}

func (params Stdio) connect(ctx context.Context) (*client.Client, error) {
	return client.NewStdioMCPClient(params.Command, params.Env, params.Args...)
}

func (params Stdio) String() string {
	return "stdio " + strings.Join(append([]string{params.Command}, params.Args...), " ")
}

/*
InProcess talks to an MCP server living in the same process.
*/
type InProcess struct {
	Server *server.MCPServer
}

func (params InProcess) connect(ctx context.Context) (*client.Client, error) {
	conn, err := client.NewInProcessClient(params.Server)

	if err != nil {
		return nil, err
	}

	if err = conn.Start(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

func (params InProcess) String() string {
	return "in-process"
}

// redact hides query string credentials such as ?exaApiKey=.
func redact(raw string) string {
	base, _, found := strings.Cut(raw, "?")

	if found {
		return base + "?…"
	}

	return base
}

/*
MCPToolset exposes the tools of one MCP server. The connection is made lazily
on first use, with retries, and kept until a call fails.
*/
type MCPToolset struct {
	name   string
	params ConnectionParams
	filter map[string]struct{}
	retry  *errors.RetryConfig

	mu   sync.Mutex
	conn *client.Client
}

type MCPToolsetOption func(*MCPToolset)

// WithToolFilter restricts the toolset to the named tools.
func WithToolFilter(names ...string) MCPToolsetOption {
	return func(toolset *MCPToolset) {
		toolset.filter = make(map[string]struct{}, len(names))

		for _, name := range names {
			toolset.filter[name] = struct{}{}
		}
	}
}

func WithRetry(config *errors.RetryConfig) MCPToolsetOption {
	return func(toolset *MCPToolset) {
		toolset.retry = config
	}
}

func NewMCPToolset(name string, params ConnectionParams, options ...MCPToolsetOption) *MCPToolset {
	toolset := &MCPToolset{
		name:   name,
		params: params,
		retry:  errors.DefaultRetryConfig(),
	}

	for _, option := range options {
		option(toolset)
	}

	return toolset
}

func (toolset *MCPToolset) Name() string {
	return toolset.name
}

func (toolset *MCPToolset) Description() string {
	return fmt.Sprintf("Tools served by the %s MCP server (%s).", toolset.name, toolset.params)
}

/*
client returns the cached session, performing the initialize handshake when
there is none.
*/
func (toolset *MCPToolset) client(ctx context.Context) (*client.Client, error) {
	toolset.mu.Lock()
	defer toolset.mu.Unlock()

	if toolset.conn != nil {
		return toolset.conn, nil
	}

	var conn *client.Client

	err := errors.RetryWithBackoff(ctx, toolset.retry, func() error {
		var err error

		if conn, err = toolset.params.connect(ctx); err != nil {
			log.Warn("mcp connect failed", "toolset", toolset.name, "error", err)
			return err
		}

		initRequest := mcp.InitializeRequest{}
		initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		initRequest.Params.ClientInfo = mcp.Implementation{
			Name:    "agentdeck",
			Version: "1.0.0",
		}
		initRequest.Params.Capabilities = mcp.ClientCapabilities{}

		serverInfo, err := conn.Initialize(ctx, initRequest)

		if err != nil {
			log.Warn("mcp initialize failed", "toolset", toolset.name, "error", err)
			conn.Close()
			return err
		}

		log.Info(
			"connected to mcp server",
			"toolset", toolset.name,
			"serverName", serverInfo.ServerInfo.Name,
			"serverVersion", serverInfo.ServerInfo.Version,
		)

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", toolset.name, err)
	}

	toolset.conn = conn
	return conn, nil
}

// reset drops a broken session so the next call reconnects.
func (toolset *MCPToolset) reset(conn *client.Client) {
	toolset.mu.Lock()
	defer toolset.mu.Unlock()

	if toolset.conn == conn && conn != nil {
		conn.Close()
		toolset.conn = nil
	}
}

/*
Tools lists the server's tools. Every call goes to the server, so newly added
tools show up without restarting.
*/
func (toolset *MCPToolset) Tools(ctx context.Context) ([]Tool, error) {
	conn, err := toolset.client(ctx)

	if err != nil {
		return nil, err
	}

	result, err := conn.ListTools(ctx, mcp.ListToolsRequest{})

	if err != nil {
		toolset.reset(conn)
		return nil, fmt.Errorf("failed to list tools of %s: %w", toolset.name, err)
	}

	out := make([]Tool, 0, len(result.Tools))

	for _, decl := range result.Tools {
		if toolset.filter != nil {
			if _, ok := toolset.filter[decl.Name]; !ok {
				continue
			}
		}

		out = append(out, &MCPTool{decl: decl, toolset: toolset})
	}

	log.Debug("listed mcp tools", "toolset", toolset.name, "count", len(out))
	return out, nil
}

func (toolset *MCPToolset) Close() error {
	toolset.mu.Lock()
	defer toolset.mu.Unlock()

	if toolset.conn == nil {
		return nil
	}

	err := toolset.conn.Close()
	toolset.conn = nil
	return err
}

/*
MCPTool is one remote tool. Running it issues tools/call on the toolset's
session.
*/
type MCPTool struct {
	decl    mcp.Tool
	toolset *MCPToolset
}

func (tool *MCPTool) Name() string {
	return tool.decl.Name
}

func (tool *MCPTool) Description() string {
	return tool.decl.Description
}

func (tool *MCPTool) Declaration() mcp.Tool {
	return tool.decl
}

/*
OpenAPISchema describes the tool as a function declaration: name,
description and the parameters object taken from the MCP input schema.
*/
func (tool *MCPTool) OpenAPISchema() (map[string]any, error) {
	return map[string]any{
		"name":        tool.decl.Name,
		"description": tool.decl.Description,
		"parameters":  ParametersOf(tool.decl),
	}, nil
}

func (tool *MCPTool) Run(
	ctx context.Context, toolCtx *Context, args map[string]any,
) (any, error) {
	conn, err := tool.toolset.client(ctx)

	if err != nil {
		return nil, err
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = tool.decl.Name
	request.Params.Arguments = args

	log.Info("calling mcp tool", "toolset", tool.toolset.name, "tool", tool.decl.Name)

	result, err := conn.CallTool(ctx, request)

	if err != nil {
		tool.toolset.reset(conn)
		return nil, fmt.Errorf("failed to call tool %s: %w", tool.decl.Name, err)
	}

	text := ResultText(result)

	if result.IsError {
		return nil, fmt.Errorf("tool %s failed: %s", tool.decl.Name, text)
	}

	return text, nil
}

/*
ResultText joins the text contents of a tool result. Non-text contents are
included as JSON.
*/
func ResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	parts := make([]string, 0, len(result.Content))

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			parts = append(parts, textContent.Text)
			continue
		}

		buf, err := json.Marshal(content)

		if err != nil {
			log.Warn("failed to marshal tool result content", "error", err)
			continue
		}

		parts = append(parts, string(buf))
	}

	return strings.Join(parts, "\n")
}

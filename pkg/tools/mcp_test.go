package tools

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/agentdeck/pkg/errors"
)

func newTestServer() *server.MCPServer {
	srv := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(
		mcp.NewTool(
			"greet",
			mcp.WithDescription("Greets someone."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Who to greet")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			name, _ := req.GetArguments()["name"].(string)
			return mcp.NewToolResultText("hello " + name), nil
		},
	)

	srv.AddTool(
		mcp.NewTool("fail", mcp.WithDescription("Always fails.")),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("boom"), nil
		},
	)

	return srv
}

func TestMCPToolset(t *testing.T) {
	Convey("Given a toolset backed by an in-process MCP server", t, func() {
		ctx := context.Background()
		toolset := NewMCPToolset("test", InProcess{Server: newTestServer()})
		defer toolset.Close()

		Convey("Tools lists the remote tools", func() {
			tools, err := toolset.Tools(ctx)
			So(err, ShouldBeNil)
			So(tools, ShouldHaveLength, 2)

			names := []string{tools[0].Name(), tools[1].Name()}
			So(names, ShouldContain, "greet")
			So(names, ShouldContain, "fail")
		})

		Convey("The remote schema is exposed as a function declaration", func() {
			tools, _ := toolset.Tools(ctx)
			greet, ok := Find(tools, "greet")
			So(ok, ShouldBeTrue)

			schema, err := greet.(OpenAPISchemer).OpenAPISchema()
			So(err, ShouldBeNil)
			So(schema["description"], ShouldEqual, "Greets someone.")

			params := schema["parameters"].(map[string]any)
			So(params["properties"], ShouldContainKey, "name")
		})

		Convey("Running a tool calls it remotely", func() {
			tools, _ := toolset.Tools(ctx)
			greet, _ := Find(tools, "greet")

			out, err := greet.Run(ctx, nil, map[string]any{"name": "ada"})
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "hello ada")
		})

		Convey("Error results become errors", func() {
			tools, _ := toolset.Tools(ctx)
			fail, _ := Find(tools, "fail")

			_, err := fail.Run(ctx, nil, nil)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "boom")
		})

		Convey("The session is reused between calls", func() {
			_, err := toolset.Tools(ctx)
			So(err, ShouldBeNil)
			first := toolset.conn

			_, err = toolset.Tools(ctx)
			So(err, ShouldBeNil)
			So(toolset.conn, ShouldEqual, first)
		})
	})

	Convey("Given a tool filter", t, func() {
		toolset := NewMCPToolset("test", InProcess{Server: newTestServer()}, WithToolFilter("greet"))
		defer toolset.Close()

		tools, err := toolset.Tools(context.Background())
		So(err, ShouldBeNil)
		So(tools, ShouldHaveLength, 1)
		So(tools[0].Name(), ShouldEqual, "greet")
	})

	Convey("Given an unreachable server", t, func() {
		toolset := NewMCPToolset(
			"down",
			StreamableHTTP{URL: "http://127.0.0.1:1/mcp"},
			WithRetry(&errors.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}),
		)

		_, err := toolset.Tools(context.Background())
		So(err, ShouldNotBeNil)
		So(toolset.conn, ShouldBeNil)
	})
}

func TestRedact(t *testing.T) {
	Convey("Credentials in the query string are hidden", t, func() {
		So(redact("https://mcp.exa.ai/mcp?exaApiKey=secret"), ShouldEqual, "https://mcp.exa.ai/mcp?…")
		So(redact("https://mcp.mermaidchart.com/mcp"), ShouldEqual, "https://mcp.mermaidchart.com/mcp")
	})
}

package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/catalog"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/introspect"
	"github.com/theapemachine/agentdeck/pkg/provider"
	"github.com/theapemachine/agentdeck/pkg/registry"
	"github.com/theapemachine/agentdeck/pkg/stores"
	"github.com/theapemachine/agentdeck/pkg/tools"
	"google.golang.org/genai"
)

/*
scriptedModels hands out one scripted model per model name, so a test can
queue the answers each agent in a pipeline will give.
*/
type scriptedModels map[string]*provider.Scripted

func (models scriptedModels) factory(name string) (provider.Model, error) {
	if model, ok := models[name]; ok {
		return model, nil
	}

	return provider.NewScripted(name), nil
}

func testDeps(models scriptedModels, settings registry.Settings) registry.Deps {
	return registry.Deps{
		Models:    models.factory,
		Artifacts: stores.NewInMemoryArtifactStore(),
		Settings:  settings,
		Now: func() time.Time {
			return time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
		},
	}
}

func text(value string) *provider.Response {
	return &provider.Response{Content: &genai.Content{
		Role:  string(genai.RoleModel),
		Parts: []*genai.Part{genai.NewPartFromText(value)},
	}}
}

func TestCatalogue(t *testing.T) {
	Convey("Given the registered catalogue", t, func() {
		names := []string{}

		for _, def := range registry.Definitions() {
			names = append(names, def.Name)
		}

		Convey("Then every app is registered", func() {
			So(names, ShouldContain, "web_search_agent")
			So(names, ShouldContain, "google_maps_search_agent")
			So(names, ShouldContain, "exa_mcp_agent")
			So(names, ShouldContain, "tavily_mcp_agent")
			So(names, ShouldContain, "mermaid_mcp_agent")
			So(names, ShouldContain, "image_generation_agent")
			So(names, ShouldContain, "resume_screener_agent")
			So(names, ShouldContain, "adk_agent_builder")
		})

		Convey("When it is built without API keys", func() {
			deps := testDeps(scriptedModels{}, registry.Settings{})
			built := catalog.Build(context.Background(), deps,
				"web_search_agent", "google_maps_search_agent", "exa_mcp_agent",
				"tavily_mcp_agent", "image_generation_agent", "resume_screener_agent",
			)
			defer built.Close()

			Convey("Then keyless agents are enabled", func() {
				So(built.Names(), ShouldResemble, []string{
					"google_maps_search_agent", "resume_screener_agent", "web_search_agent",
				})
			})

			Convey("Then agents that need a key are disabled with the reason", func() {
				disabled := built.Disabled()
				So(disabled["exa_mcp_agent"], ShouldContainSubstring, "EXA_API_KEY")
				So(disabled["tavily_mcp_agent"], ShouldContainSubstring, "TAVILY_API_KEY")
				So(disabled["image_generation_agent"], ShouldContainSubstring, "OPENROUTER_API_KEY")
			})
		})
	})
}

func TestPrompts(t *testing.T) {
	Convey("Given deps with a fixed clock", t, func() {
		deps := testDeps(scriptedModels{}, registry.Settings{})

		Convey("Then every registered prompt renders with today's date", func() {
			for _, name := range []string{
				webSearchPrompt, mapsPrompt, exaPrompt, tavilyPrompt,
				mermaidPrompt, builderPrompt, imagePrompt, screeningPrompt,
			} {
				instruction, err := deps.Instruction(name)
				So(err, ShouldBeNil)
				So(instruction, ShouldContainSubstring, "January 15, 2025")
			}
		})

		Convey("Then tavily keeps both prompt versions", func() {
			v0, err := deps.InstructionAt(tavilyPrompt, "v0")
			So(err, ShouldBeNil)
			v1, err := deps.Instruction(tavilyPrompt)
			So(err, ShouldBeNil)
			So(v0, ShouldNotEqual, v1)
			So(v1, ShouldContainSubstring, "Tavily Research Agent")
		})
	})
}

func TestWebSearchAgent(t *testing.T) {
	Convey("Given a gemini fast model", t, func() {
		built, err := newWebSearchAgent(context.Background(), testDeps(scriptedModels{}, registry.Settings{}))
		So(err, ShouldBeNil)

		Convey("Then it grounds with google search", func() {
			attached := built.(*agent.LLMAgent).Tools()
			So(len(attached), ShouldEqual, 1)
			So(attached[0].Name(), ShouldEqual, "google_search")
		})
	})

	Convey("Given an openrouter fast model", t, func() {
		settings := registry.Settings{FastModel: "openrouter/google/gemini-3-flash-preview"}

		Convey("When no exa key is configured", func() {
			_, err := newWebSearchAgent(context.Background(), testDeps(scriptedModels{}, settings))

			Convey("Then the agent is disabled", func() {
				So(errors.Is(err, errors.ErrMissingAPIKey), ShouldBeTrue)
			})
		})

		Convey("When an exa key is configured", func() {
			settings.ExaAPIKey = "exa"
			built, err := newWebSearchAgent(context.Background(), testDeps(scriptedModels{}, settings))
			So(err, ShouldBeNil)

			Convey("Then it uses the web_search function tool", func() {
				attached := built.(*agent.LLMAgent).Tools()
				So(attached[0].Name(), ShouldEqual, "web_search")
			})
		})
	})
}

func TestMCPAgent(t *testing.T) {
	Convey("Given a mermaid server that is down", t, func() {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		previous := introspect.ToolsetTimeout
		introspect.ToolsetTimeout = 5 * time.Second
		defer func() { introspect.ToolsetTimeout = previous }()

		settings := registry.Settings{
			MCPEndpoints: map[string]string{"mermaid_mcp_agent": server.URL + "/mcp"},
		}

		built, err := newMermaidAgent(context.Background(), testDeps(scriptedModels{}, settings))
		So(err, ShouldBeNil)
		defer built.(*agent.LLMAgent).Close()

		Convey("Then the agent still builds with a placeholder tool section", func() {
			instruction := built.(*agent.LLMAgent).Instruction()
			So(instruction, ShouldContainSubstring, introspect.Marker)
			So(instruction, ShouldContainSubstring, "- **mermaid**: No description available.")
		})
	})

	Convey("Given an exa key", t, func() {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		settings := registry.Settings{
			ExaAPIKey:    "secret",
			MCPEndpoints: map[string]string{"exa_mcp_agent": server.URL + "/mcp?debug=1"},
		}

		built, err := newExaAgent(context.Background(), testDeps(scriptedModels{}, settings))
		So(err, ShouldBeNil)
		defer built.(*agent.LLMAgent).Close()

		Convey("Then the key is redacted from the toolset description", func() {
			toolset := built.(*agent.LLMAgent).Tools()[0].(*tools.MCPToolset)
			So(toolset.Description(), ShouldNotContainSubstring, "secret")
		})
	})
}

func TestMCPAgentAgainstLiveServer(t *testing.T) {
	Convey("Given an mcp agent whose server answers", t, func() {
		ctx := context.Background()

		srv := mcpserver.NewMCPServer("docs", "1.0.0", mcpserver.WithToolCapabilities(true))
		srv.AddTool(
			mcp.NewTool(
				"fetch_docs",
				mcp.WithDescription("Fetches a documentation page."),
				mcp.WithString("url", mcp.Required()),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				url, _ := req.GetArguments()["url"].(string)
				return mcp.NewToolResultText("docs for " + url), nil
			},
		)

		model := provider.NewScripted(DefaultFastModel,
			&provider.Response{Content: &genai.Content{
				Role: string(genai.RoleModel),
				Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{
					ID:   "call_docs",
					Name: "fetch_docs",
					Args: map[string]any{"url": "https://go.dev/doc"},
				}}},
			}},
			text("The docs say hello."),
			text("Still hello."),
		)

		deps := testDeps(scriptedModels{DefaultFastModel: model}, registry.Settings{})
		base, err := deps.InstructionAt(mermaidPrompt, "v0")
		So(err, ShouldBeNil)

		built, err := newMCPAgent(ctx, deps,
			"docs_agent", "Reads documentation.",
			mermaidPrompt, "v0",
			tools.NewMCPToolset("docs", tools.InProcess{Server: srv}),
		)
		So(err, ShouldBeNil)

		llm := built.(*agent.LLMAgent)
		defer llm.Close()

		runner := &agent.Runner{
			AppName:    "docs_agent",
			Agent:      llm,
			Sessions:   stores.NewInMemorySessionStore(),
			Artifacts:  deps.Artifacts,
			AutoCreate: true,
		}
		defer runner.Sessions.Close()

		first, err := runner.Collect(ctx, "u1", "s1", &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText("What do the Go docs say?")},
		})
		So(err, ShouldBeNil)

		second, err := runner.Collect(ctx, "u1", "s1", &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText("And now?")},
		})
		So(err, ShouldBeNil)

		Convey("Then the model sees the live tool list in its instruction", func() {
			So(model.Requests, ShouldHaveLength, 3)
			So(
				model.Requests[0].SystemInstruction,
				ShouldEqual,
				base+introspect.Section("- **fetch_docs**: Fetches a documentation page. Arguments: url."),
			)
		})

		Convey("Then the tool section appears once across runs", func() {
			So(strings.Count(llm.Instruction(), introspect.Marker), ShouldEqual, 1)

			for _, request := range model.Requests {
				So(strings.Count(request.SystemInstruction, introspect.Marker), ShouldEqual, 1)
			}
		})

		Convey("Then the mcp result reaches the function response", func() {
			So(first, ShouldHaveLength, 3)
			So(first[0].FunctionCalls(), ShouldHaveLength, 1)

			response := first[1].Content.Parts[0].FunctionResponse
			So(response, ShouldNotBeNil)
			So(response.ID, ShouldEqual, "call_docs")
			So(response.Response["result"], ShouldEqual, "docs for https://go.dev/doc")

			So(first[2].Text(), ShouldEqual, "The docs say hello.")
			So(second, ShouldHaveLength, 1)
			So(second[0].Text(), ShouldEqual, "Still hello.")
		})

		Convey("Then the follow-up turn carries the function response", func() {
			contents := model.Requests[1].Contents
			last := contents[len(contents)-1]
			So(last.Parts[0].FunctionResponse, ShouldNotBeNil)
			So(last.Parts[0].FunctionResponse.Response["result"], ShouldEqual, "docs for https://go.dev/doc")
		})
	})
}

func TestCommandLine(t *testing.T) {
	Convey("Given the docs command", t, func() {
		command, args := commandLine(DocsCommand)

		Convey("Then it splits into program and arguments", func() {
			So(command, ShouldEqual, "uvx")
			So(args[0], ShouldEqual, "--from")
			So(args[len(args)-1], ShouldEqual, "stdio")
		})
	})

	Convey("Given an empty command", t, func() {
		command, args := commandLine("  ")
		So(command, ShouldBeEmpty)
		So(args, ShouldBeNil)
	})
}

func TestResumeScreener(t *testing.T) {
	Convey("Given a resume screener with scripted models", t, func() {
		ctx := context.Background()
		fast := provider.NewScripted(DefaultFastModel,
			text(`{"personal_information": {"name": "Ada Lovelace"}, "skills": {"technical": "Go, SQL", "soft": ["mentoring"]}, "location": {"city": "London", "country": "UK"}, "work_experience": [{"title": "Engineer", "description": ["Built", "engines"]}]}`),
			text("```json\n{\"job_title\": \"Backend Engineer\", \"required_skills\": \"Go, Postgres\", \"remote_option\": \"yes\"}\n```"),
		)
		reasoning := provider.NewScripted(DefaultReasoningModel, text("**Overall Match**: 80%"))

		deps := testDeps(scriptedModels{
			DefaultFastModel:      fast,
			DefaultReasoningModel: reasoning,
		}, registry.Settings{})

		screener, err := newResumeScreener(ctx, deps)
		So(err, ShouldBeNil)

		runner := &agent.Runner{
			AppName:    resumeScreenerName,
			Agent:      screener,
			Sessions:   stores.NewInMemorySessionStore(),
			Artifacts:  deps.Artifacts,
			AutoCreate: true,
		}
		defer runner.Sessions.Close()

		events, err := runner.Collect(ctx, "recruiter", "s1", &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText("Screen Ada for the backend role.")},
		})
		So(err, ShouldBeNil)

		Convey("Then the three stages answer in order", func() {
			So(len(events), ShouldEqual, 3)
			So(events[0].Author, ShouldEqual, "cv_parser_agent")
			So(events[1].Author, ShouldEqual, "job_requirements_parser")
			So(events[2].Author, ShouldEqual, "screening_report_agent")
		})

		Convey("Then the parsers asked for structured output", func() {
			So(fast.Requests[0].OutputSchema, ShouldNotBeNil)
			So(fast.Requests[0].OutputSchema["properties"], ShouldContainKey, "work_experience")
			So(reasoning.Requests[0].OutputSchema, ShouldBeNil)
		})

		Convey("Then the decoded records are normalised in session state", func() {
			session, err := runner.Sessions.Get(ctx, resumeScreenerName, "recruiter", "s1")
			So(err, ShouldBeNil)

			buf, err := json.Marshal(session.State[CandidateStateKey])
			So(err, ShouldBeNil)

			candidate := CandidateInfo{}
			So(json.Unmarshal(buf, &candidate), ShouldBeNil)
			So(candidate.Name, ShouldEqual, "Ada Lovelace")
			So([]string(candidate.Skills), ShouldResemble, []string{"Go", "SQL", "mentoring"})
			So(string(candidate.Location), ShouldEqual, "London, UK")
			So(candidate.WorkExperience[0].JobTitle, ShouldEqual, "Engineer")
			So(string(candidate.WorkExperience[0].Description), ShouldEqual, "Built engines")

			job := session.State[JobStateKey].(map[string]any)
			So(job["required_skills"], ShouldResemble, []any{"Go", "Postgres"})
			So(job["remote_option"], ShouldEqual, true)

			So(session.State[ScreeningStateKey], ShouldEqual, "**Overall Match**: 80%")
		})

		Convey("Then the report sees both parsed records as context", func() {
			contents := reasoning.Requests[0].Contents
			So(len(contents), ShouldEqual, 3)
			So(strings.HasPrefix(contents[1].Parts[0].Text, "For context: [cv_parser_agent] said:"), ShouldBeTrue)
		})
	})
}

func TestStringList(t *testing.T) {
	Convey("Given the shapes models produce for lists", t, func() {
		cases := map[string][]string{
			`"a, b ,, c"`:                          {"a", "b", "c"},
			`["a", "b"]`:                           {"a", "b"},
			`{"technical": ["go"], "soft": "tea"}`: {"go", "tea"},
			`null`:                                 {},
		}

		for input, expected := range cases {
			list := StringList{}
			So(json.Unmarshal([]byte(input), &list), ShouldBeNil)
			So([]string(list), ShouldResemble, expected)
		}
	})
}

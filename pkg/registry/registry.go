package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stoewer/go-strcase"
	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/prompts"
	"github.com/theapemachine/agentdeck/pkg/provider"
	"github.com/theapemachine/agentdeck/pkg/stores"
)

// Settings are the knobs agent factories read, filled from configuration.
type Settings struct {
	FastModel         string
	ReasoningModel    string
	ImageModel        string
	ExaAPIKey         string
	ExaBaseURL        string
	TavilyAPIKey      string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	SearchTimeout     time.Duration
	// MCPEndpoints overrides the server URL (or stdio command line) of an
	// MCP backed agent, keyed by agent name.
	MCPEndpoints map[string]string
}

// Endpoint returns the configured MCP endpoint for agent, or fallback.
func (settings Settings) Endpoint(agent, fallback string) string {
	if endpoint, ok := settings.MCPEndpoints[agent]; ok && endpoint != "" {
		return endpoint
	}

	return fallback
}

// Deps is everything an agent factory may need to build its agent.
type Deps struct {
	Models    provider.Factory
	Prompts   *prompts.Registry
	Artifacts stores.ArtifactStore
	Settings  Settings
	Now       func() time.Time
}

// Instruction renders the latest version of a registered prompt.
func (deps Deps) Instruction(name string) (string, error) {
	return deps.InstructionAt(name, "")
}

// InstructionAt renders one version of a prompt; "" means the latest.
func (deps Deps) InstructionAt(name, version string) (string, error) {
	var (
		prompt prompts.Prompt
		err    error
	)

	registry := deps.Prompts

	if registry == nil {
		registry = prompts.Default()
	}

	if version == "" {
		prompt, err = registry.Latest(name)
	} else {
		prompt, err = registry.Get(name, version)
	}

	if err != nil {
		return "", err
	}

	now := time.Now

	if deps.Now != nil {
		now = deps.Now
	}

	return prompt.Render(now())
}

// FactoryFunc builds an agent. Returning errors.ErrMissingAPIKey disables it.
type FactoryFunc func(ctx context.Context, deps Deps) (agent.Agent, error)

// Definition links an app name to the factory that builds its agent.
type Definition struct {
	Name        string
	Description string
	Factory     FactoryFunc
}

var (
	definitions = make(map[string]Definition)
	registryMu  sync.RWMutex
)

// Normalize turns "Web Search Agent" or "webSearchAgent" into "web_search_agent".
func Normalize(name string) string {
	return strcase.SnakeCase(name)
}

// Register adds or replaces an agent definition. Call it from init().
func Register(def Definition) {
	def.Name = Normalize(def.Name)

	registryMu.Lock()
	definitions[def.Name] = def
	registryMu.Unlock()
}

// Lookup retrieves a definition by app name.
func Lookup(name string) (Definition, bool) {
	registryMu.RLock()
	def, found := definitions[Normalize(name)]
	registryMu.RUnlock()
	return def, found
}

// Definitions returns every registered definition sorted by name.
func Definitions() []Definition {
	registryMu.RLock()
	out := make([]Definition, 0, len(definitions))

	for _, def := range definitions {
		out = append(out, def)
	}
	registryMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out
}

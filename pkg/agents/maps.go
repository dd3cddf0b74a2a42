package agents

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/prompts"
	"github.com/theapemachine/agentdeck/pkg/provider"
	"github.com/theapemachine/agentdeck/pkg/registry"
	"github.com/theapemachine/agentdeck/pkg/tools"
)

const mapsPrompt = "google_maps_search_agent"

func init() {
	register(registry.Definition{
		Name:        "google_maps_search_agent",
		Description: "AI assistant that grounds answers using google maps search and always cites sources",
		Factory:     newMapsAgent,
	}, prompts.Prompt{
		Name:    mapsPrompt,
		Version: "v0",
		Template: `
You are a helpful assistant that gives accurate, location based answers grounded in Google Maps.

Today's date is {{.CurrentDate}}.

**Always ground location answers:**
- For places, businesses, directions or anything geographic, call **google_maps_grounding** before answering.
- Never answer a location question from general knowledge alone.

**Answer format:**
- Start with a direct answer, never with a header.
- For every place give the name, 📍 address, ⭐ rating and 🕐 opening hours when known.
- Compare several places in a table.
- For "near me" questions, say that you do not know the user's exact location.

**Sources:**
End every answer with a numbered list of Google Maps links:

---

## 🔗 Sources

1. [Place Name](https://www.google.com/maps/search/Place+Name+Address)

Use the URL the tool returned when there is one. Otherwise build
https://www.google.com/maps/search/<name>+<address> with spaces replaced by "+".
Never write a placeholder URL.
`,
	})
}

func newMapsAgent(ctx context.Context, deps registry.Deps) (agent.Agent, error) {
	model, err := fastModel(deps)

	if err != nil {
		return nil, err
	}

	instruction, err := deps.Instruction(mapsPrompt)

	if err != nil {
		return nil, err
	}

	if provider.BackendOf(fastModelName(deps)) != provider.BackendGoogle {
		log.Warn("maps grounding needs a gemini model", "agent", "google_maps_search_agent", "model", fastModelName(deps))
	}

	return agent.NewLLMAgent("google_maps_search_agent", model,
		agent.WithDescription("AI assistant that grounds answers using google maps search and always cites sources"),
		agent.WithInstruction(instruction),
		agent.WithTools(tools.GoogleMaps()),
	), nil
}

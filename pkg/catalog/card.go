package catalog

import (
	"context"

	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/introspect"
	"gopkg.in/yaml.v3"
)

/*
Card describes an agent for humans: what it is, which model it uses and the
tools it can call.
*/
type Card struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        string   `json:"kind" yaml:"kind"`
	Model       string   `json:"model,omitempty" yaml:"model,omitempty"`
	Tools       []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	SubAgents   []Card   `json:"subAgents,omitempty" yaml:"sub_agents,omitempty"`
}

func NewCard(ctx context.Context, built agent.Agent) Card {
	card := Card{
		Name:        built.Name(),
		Description: built.Description(),
		Kind:        "agent",
	}

	switch typed := built.(type) {
	case *agent.LLMAgent:
		card.Kind = "llm"
		card.Model = typed.Model().Name()

		for _, line := range introspect.Render(ctx, typed.Tools(), introspect.Static).Lines {
			card.Tools = append(card.Tools, line.String())
		}
	case *agent.SequentialAgent:
		card.Kind = "sequential"

		for _, sub := range typed.SubAgents() {
			card.SubAgents = append(card.SubAgents, NewCard(ctx, sub))
		}
	}

	return card
}

func (card Card) YAML() (string, error) {
	buf, err := yaml.Marshal(card)

	if err != nil {
		return "", err
	}

	return string(buf), nil
}

func (catalog *Catalog) Card(ctx context.Context, name string) (Card, error) {
	built, err := catalog.GetAgent(name)

	if err != nil {
		return Card{}, err
	}

	return NewCard(ctx, built), nil
}

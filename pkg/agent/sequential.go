package agent

import (
	"context"
	"iter"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/agentdeck/pkg/stores"
)

/*
SequentialAgent runs its sub-agents one after the other on the same session,
so each one reads what the previous ones wrote. An error event stops the chain.
*/
type SequentialAgent struct {
	name        string
	description string
	subAgents   []Agent
}

func NewSequentialAgent(name, description string, subAgents ...Agent) *SequentialAgent {
	return &SequentialAgent{
		name:        name,
		description: description,
		subAgents:   subAgents,
	}
}

func (agent *SequentialAgent) Name() string {
	return agent.name
}

func (agent *SequentialAgent) Description() string {
	return agent.description
}

func (agent *SequentialAgent) SubAgents() []Agent {
	return agent.subAgents
}

func (agent *SequentialAgent) Run(
	ctx context.Context, invocation *Invocation,
) iter.Seq[*stores.Event] {
	return func(yield func(*stores.Event) bool) {
		for _, sub := range agent.subAgents {
			log.Debug("running sub-agent", "agent", agent.name, "sub_agent", sub.Name())

			failed := false

			for event := range sub.Run(ctx, invocation) {
				if !yield(event) {
					return
				}

				failed = failed || event.ErrorMessage != ""
			}

			if failed {
				return
			}
		}
	}
}

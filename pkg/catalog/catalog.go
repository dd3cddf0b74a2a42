package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/registry"
	"golang.org/x/sync/errgroup"
)

/*
Catalog holds the agents that were built for this process, keyed by app name.
Agents whose factory failed are remembered with the reason so they can be
reported instead of silently missing.
*/
type Catalog struct {
	agents   *sync.Map
	disabled *sync.Map
}

func NewCatalog() *Catalog {
	return &Catalog{
		agents:   new(sync.Map),
		disabled: new(sync.Map),
	}
}

/*
Build runs the factory of every registered definition, or only of the named
ones, concurrently. A factory error disables that agent and is logged; it
never fails the whole catalog.
*/
func Build(ctx context.Context, deps registry.Deps, names ...string) *Catalog {
	catalog := NewCatalog()
	wanted := map[string]bool{}

	for _, name := range names {
		wanted[registry.Normalize(name)] = true
	}

	group := errgroup.Group{}

	for _, def := range registry.Definitions() {
		if len(wanted) > 0 && !wanted[def.Name] {
			continue
		}

		if def.Factory == nil {
			catalog.Disable(def.Name, "no factory")
			continue
		}

		group.Go(func() error {
			built, err := def.Factory(ctx, deps)

			if err != nil {
				if errors.Is(err, errors.ErrMissingAPIKey) {
					log.Warn("agent disabled", "name", def.Name, "reason", err)
				} else {
					log.Error("failed to build agent", "name", def.Name, "error", err)
				}

				catalog.Disable(def.Name, err.Error())
				return nil
			}

			catalog.AddAgent(def.Name, built)
			return nil
		})
	}

	_ = group.Wait()

	return catalog
}

func (catalog *Catalog) AddAgent(name string, built agent.Agent) {
	log.Info("adding agent to catalog", "name", name)
	catalog.agents.Store(name, built)
	catalog.disabled.Delete(name)
}

func (catalog *Catalog) Disable(name, reason string) {
	catalog.disabled.Store(name, reason)
}

func (catalog *Catalog) GetAgent(name string) (agent.Agent, error) {
	built, ok := catalog.agents.Load(registry.Normalize(name))

	if !ok {
		if reason, disabled := catalog.disabled.Load(registry.Normalize(name)); disabled {
			return nil, errors.ErrAgentNotFound.WithMessagef("agent %s is disabled: %s", name, reason)
		}

		return nil, errors.ErrAgentNotFound.WithMessagef("agent %s not found", name)
	}

	return built.(agent.Agent), nil
}

// Names lists the enabled agents in order.
func (catalog *Catalog) Names() []string {
	out := []string{}

	catalog.agents.Range(func(key, value any) bool {
		out = append(out, key.(string))
		return true
	})

	sort.Strings(out)
	return out
}

// Disabled maps each disabled agent to the reason it could not be built.
func (catalog *Catalog) Disabled() map[string]string {
	out := map[string]string{}

	catalog.disabled.Range(func(key, value any) bool {
		out[key.(string)] = value.(string)
		return true
	})

	return out
}

// Close releases the toolset connections of every agent that holds any.
func (catalog *Catalog) Close() error {
	var first error

	catalog.agents.Range(func(key, value any) bool {
		if closer, ok := value.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				log.Warn("failed to close agent", "name", key, "error", err)

				if first == nil {
					first = err
				}
			}
		}

		return true
	})

	return first
}

package prompts

import (
	"sort"
	"sync"

	"github.com/theapemachine/agentdeck/pkg/errors"
)

/*
Registry keeps every version of every prompt. It is safe for concurrent use;
agents register their prompts from init() and the service reads them while
handling requests.
*/
type Registry struct {
	mu      sync.RWMutex
	prompts map[string]map[string]Prompt
}

func NewRegistry() *Registry {
	return &Registry{
		prompts: make(map[string]map[string]Prompt),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process wide registry used by the agent catalogue.
func Default() *Registry {
	return defaultRegistry
}

// Register adds or replaces a prompt version and returns the prompt for chaining.
func (registry *Registry) Register(prompt Prompt) Prompt {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, ok := registry.prompts[prompt.Name]; !ok {
		registry.prompts[prompt.Name] = make(map[string]Prompt)
	}

	registry.prompts[prompt.Name][prompt.Version] = prompt
	return prompt
}

func (registry *Registry) Get(name, version string) (Prompt, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	versions, ok := registry.prompts[name]

	if !ok {
		return Prompt{}, errors.ErrPromptNotFound.WithMessagef("prompt not found: %s", name)
	}

	prompt, ok := versions[version]

	if !ok {
		return Prompt{}, errors.ErrPromptNotFound.WithMessagef("prompt %s has no version %s", name, version)
	}

	return prompt, nil
}

// Latest returns the highest numbered version of a prompt.
func (registry *Registry) Latest(name string) (Prompt, error) {
	versions := registry.Versions(name)

	if len(versions) == 0 {
		return Prompt{}, errors.ErrPromptNotFound.WithMessagef("prompt not found: %s", name)
	}

	return registry.Get(name, versions[len(versions)-1])
}

// Versions lists the versions of a prompt, oldest first.
func (registry *Registry) Versions(name string) []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	out := make([]string, 0, len(registry.prompts[name]))

	for version := range registry.prompts[name] {
		out = append(out, version)
	}

	sort.Slice(out, func(i, j int) bool {
		return versionNumber(out[i]) < versionNumber(out[j])
	})

	return out
}

func (registry *Registry) Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	out := make([]string, 0, len(registry.prompts))

	for name := range registry.prompts {
		out = append(out, name)
	}

	sort.Strings(out)
	return out
}

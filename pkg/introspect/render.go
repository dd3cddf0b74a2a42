package introspect

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/agentdeck/pkg/tools"
	"golang.org/x/sync/errgroup"
)

type Mode int

const (
	// Static is used when an agent is built. A toolset that cannot be listed
	// is shown as a single placeholder line.
	Static Mode = iota
	// Runtime is used before each agent turn. Toolsets that cannot be listed,
	// or list nothing, are left out.
	Runtime
)

func (mode Mode) String() string {
	if mode == Runtime {
		return "runtime"
	}

	return "static"
}

// ToolsetTimeout bounds the handshake and listing of one toolset.
var ToolsetTimeout = 20 * time.Second

type Rendered struct {
	Lines []Line
}

func (rendered Rendered) Markdown() string {
	out := make([]string, len(rendered.Lines))

	for i, line := range rendered.Lines {
		out[i] = line.String()
	}

	return strings.Join(out, "\n")
}

/*
Complete is true when at least one line rendered and none is a placeholder.
Runtime renders skip unavailable toolsets instead of adding placeholders, so
there it only means something could be described.
*/
func (rendered Rendered) Complete() bool {
	if len(rendered.Lines) == 0 {
		return false
	}

	for _, line := range rendered.Lines {
		if line.Placeholder {
			return false
		}
	}

	return true
}

/*
Render describes the attached tools in attachment order. Toolsets are listed
concurrently, each under ToolsetTimeout.
*/
func Render(ctx context.Context, attached []tools.Tool, mode Mode) Rendered {
	groups := make([][]Line, len(attached))
	group, groupCtx := errgroup.WithContext(ctx)

	for i, tool := range attached {
		toolset, ok := tool.(tools.Toolset)

		if !ok {
			line, meta := Describe(tool)

			log.Debug(
				"described tool",
				"name", meta.Name,
				"kind", meta.Kind,
				"schema", meta.SchemaSource,
				"parameters", len(meta.Parameters),
			)

			groups[i] = []Line{line}
			continue
		}

		group.Go(func() error {
			groups[i] = expand(groupCtx, toolset, mode)
			return nil
		})
	}

	_ = group.Wait()

	rendered := Rendered{}

	for _, lines := range groups {
		rendered.Lines = append(rendered.Lines, lines...)
	}

	log.Debug("rendered tools", "mode", mode, "lines", len(rendered.Lines), "complete", rendered.Complete())
	return rendered
}

func expand(ctx context.Context, toolset tools.Toolset, mode Mode) []Line {
	ctx, cancel := context.WithTimeout(ctx, ToolsetTimeout)
	defer cancel()

	log.Info("listing toolset", "toolset", toolset.Name(), "mode", mode)

	members, err := toolset.Tools(ctx)

	if err != nil || len(members) == 0 {
		if err != nil {
			log.Warn("toolset unavailable", "toolset", toolset.Name(), "mode", mode, "error", err)
		} else {
			log.Warn("toolset has no tools", "toolset", toolset.Name(), "mode", mode)
		}

		if mode == Runtime {
			return nil
		}

		return []Line{{
			Name:        toolName(toolset),
			Description: placeholderDescription,
			Placeholder: true,
		}}
	}

	lines := make([]Line, 0, len(members))

	for _, member := range members {
		line, meta := Describe(member)

		log.Debug(
			"described toolset member",
			"toolset", toolset.Name(),
			"name", meta.Name,
			"schema", meta.SchemaSource,
		)

		lines = append(lines, line)
	}

	return lines
}

package introspect

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/agentdeck/pkg/tools"
)

const (
	Marker        = "You have access to the following tools"
	sectionHeader = "\n\n" + Marker + ". Use them when they are helpful for the user:\n"
)

/*
Target is an agent whose instruction carries a tool section.
*/
type Target interface {
	Name() string
	Instruction() string
	SetInstruction(string)
	Tools() []tools.Tool
}

func Section(markdown string) string {
	return sectionHeader + markdown
}

/*
Strip removes the tool section, and anything after it, from an instruction.
*/
func Strip(instruction string) string {
	idx := strings.Index(instruction, Marker)

	if idx < 0 {
		return instruction
	}

	return strings.TrimRight(instruction[:idx], " \t\r\n")
}

/*
Splice replaces the tool section of an instruction. Splicing the same
markdown twice gives the same result as splicing it once.
*/
func Splice(instruction, markdown string) string {
	return strings.TrimRight(Strip(instruction), " \t\r\n") + Section(markdown)
}

/*
MakeInstructionWithTools returns the target's instruction with a tool
section built from a Static render. The target itself is not changed.
*/
func MakeInstructionWithTools(ctx context.Context, target Target) string {
	instruction := target.Instruction()
	rendered := Render(ctx, target.Tools(), Static)

	if len(rendered.Lines) == 0 {
		log.Debug("no tools to describe", "agent", target.Name())
		return instruction
	}

	return Splice(instruction, rendered.Markdown())
}

/*
Refresh rewrites the target's tool section from the live tool list. A toolset
that fails to list is left out, so the section may shrink to the tools that
did render. The previous instruction stays only when nothing rendered, and no
placeholder is ever written. Tool failures are logged, not returned.
*/
func Refresh(ctx context.Context, target Target) error {
	rendered := Render(ctx, target.Tools(), Runtime)

	if !rendered.Complete() {
		log.Warn("keeping previous tool section", "agent", target.Name(), "lines", len(rendered.Lines))
		return nil
	}

	current := target.Instruction()
	next := Splice(current, rendered.Markdown())

	if next == current {
		return nil
	}

	target.SetInstruction(next)
	log.Info("refreshed tool section", "agent", target.Name(), "tools", len(rendered.Lines))

	return nil
}

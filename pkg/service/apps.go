package service

import (
	"github.com/gofiber/fiber/v3"
	"github.com/theapemachine/agentdeck/pkg/agent"
)

type instructor interface {
	Instruction() string
}

type subAgents interface {
	SubAgents() []agent.Agent
}

// InstructionResponse is the current instruction of an app and of its sub-agents.
type InstructionResponse struct {
	AppName     string            `json:"appName"`
	Instruction string            `json:"instruction,omitempty"`
	SubAgents   map[string]string `json:"subAgents,omitempty"`
}

func (srv *Server) handleListApps(ctx fiber.Ctx) error {
	return ctx.JSON(srv.catalog.Names())
}

func (srv *Server) handleInstruction(ctx fiber.Ctx) error {
	app, err := srv.catalog.GetAgent(ctx.Params("app"))

	if err != nil {
		return err
	}

	response := InstructionResponse{AppName: app.Name()}

	if llm, ok := app.(instructor); ok {
		response.Instruction = llm.Instruction()
	}

	if parent, ok := app.(subAgents); ok {
		response.SubAgents = map[string]string{}
		collectInstructions(parent, response.SubAgents)
	}

	return ctx.JSON(response)
}

func collectInstructions(parent subAgents, out map[string]string) {
	for _, child := range parent.SubAgents() {
		if llm, ok := child.(instructor); ok {
			out[child.Name()] = llm.Instruction()
		}

		if nested, ok := child.(subAgents); ok {
			collectInstructions(nested, out)
		}
	}
}

func (srv *Server) handleCard(ctx fiber.Ctx) error {
	card, err := srv.catalog.Card(ctx, ctx.Params("app"))

	if err != nil {
		return err
	}

	return ctx.JSON(card)
}

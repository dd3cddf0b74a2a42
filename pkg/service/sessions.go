package service

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/stores"
)

type CreateSessionRequest struct {
	State map[string]any `json:"state"`
}

func (srv *Server) handleListSessions(ctx fiber.Ctx) error {
	sessions, err := srv.sessions.List(ctx, ctx.Params("app"), ctx.Params("user"))

	if err != nil {
		return err
	}

	return ctx.JSON(sessions)
}

/*
handleCreateSession creates a session, with the id from the path when one is
given and a generated one otherwise. The body, when present, seeds the state.
*/
func (srv *Server) handleCreateSession(ctx fiber.Ctx) error {
	request := CreateSessionRequest{}

	if len(ctx.Body()) > 0 {
		if err := ctx.Bind().JSON(&request); err != nil {
			return errors.ErrInvalidRequest.WithMessagef("invalid session body: %v", err)
		}
	}

	session, err := srv.sessions.Create(
		ctx, ctx.Params("app"), ctx.Params("user"), ctx.Params("session"), request.State,
	)

	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(session)
}

func (srv *Server) handleGetSession(ctx fiber.Ctx) error {
	session, err := srv.sessions.Get(ctx, ctx.Params("app"), ctx.Params("user"), ctx.Params("session"))

	if err != nil {
		return err
	}

	return ctx.JSON(session)
}

func (srv *Server) handleDeleteSession(ctx fiber.Ctx) error {
	if err := srv.sessions.Delete(
		ctx, ctx.Params("app"), ctx.Params("user"), ctx.Params("session"),
	); err != nil {
		return err
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func artifactKey(ctx fiber.Ctx) stores.ArtifactKey {
	return stores.ArtifactKey{
		AppName:   ctx.Params("app"),
		UserID:    ctx.Params("user"),
		SessionID: ctx.Params("session"),
		Name:      ctx.Params("name"),
	}
}

func (srv *Server) handleListArtifacts(ctx fiber.Ctx) error {
	names, err := srv.artifacts.List(ctx, ctx.Params("app"), ctx.Params("user"), ctx.Params("session"))

	if err != nil {
		return err
	}

	return ctx.JSON(names)
}

// handleLoadArtifact answers with the stored part; ?version=n pins a version.
func (srv *Server) handleLoadArtifact(ctx fiber.Ctx) error {
	version := -1

	if raw := ctx.Query("version"); raw != "" {
		parsed, err := strconv.Atoi(raw)

		if err != nil || parsed < 0 {
			return errors.ErrInvalidRequest.WithMessagef("invalid artifact version: %q", raw)
		}

		version = parsed
	}

	part, err := srv.artifacts.Load(ctx, artifactKey(ctx), version)

	if err != nil {
		return err
	}

	return ctx.JSON(part)
}

func (srv *Server) handleArtifactVersions(ctx fiber.Ctx) error {
	versions, err := srv.artifacts.Versions(ctx, artifactKey(ctx))

	if err != nil {
		return err
	}

	return ctx.JSON(versions)
}

func (srv *Server) handleDeleteArtifact(ctx fiber.Ctx) error {
	if err := srv.artifacts.Delete(ctx, artifactKey(ctx)); err != nil {
		return err
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

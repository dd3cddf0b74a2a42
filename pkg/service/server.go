package service

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/theapemachine/agentdeck/pkg/auth"
	"github.com/theapemachine/agentdeck/pkg/catalog"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/metrics"
	"github.com/theapemachine/agentdeck/pkg/stores"
)

const subjectKey = "subject"

/*
Server exposes the catalogue over HTTP: app listing, session and artifact
management, and runs that answer with a JSON array or an SSE stream.
*/
type Server struct {
	app       *fiber.App
	catalog   *catalog.Catalog
	sessions  stores.SessionStore
	artifacts stores.ArtifactStore
	metrics   *metrics.RunMetrics
	auth      *auth.Service
}

type ServerOption func(*Server)

// WithAuth requires a bearer token on every route except /health.
func WithAuth(service *auth.Service) ServerOption {
	return func(srv *Server) {
		srv.auth = service
	}
}

func WithMetrics(runMetrics *metrics.RunMetrics) ServerOption {
	return func(srv *Server) {
		srv.metrics = runMetrics
	}
}

/*
NewServer constructs a server and mounts its routes. The caller starts it with
Start or drives it directly through App in tests.
*/
func NewServer(
	apps *catalog.Catalog,
	sessions stores.SessionStore,
	artifacts stores.ArtifactStore,
	options ...ServerOption,
) *Server {
	srv := &Server{
		catalog:   apps,
		sessions:  sessions,
		artifacts: artifacts,
		metrics:   metrics.NewRunMetrics(),
	}

	for _, option := range options {
		option(srv)
	}

	srv.app = fiber.New(fiber.Config{
		AppName:           "agentdeck",
		ServerHeader:      "agentdeck",
		StreamRequestBody: true,
		// Params and bodies end up as store keys that outlive the request.
		Immutable:    true,
		ErrorHandler: handleError,
	})

	srv.routes()
	return srv
}

func (srv *Server) App() *fiber.App {
	return srv.app
}

func (srv *Server) Metrics() *metrics.RunMetrics {
	return srv.metrics
}

func (srv *Server) Start(addr string) error {
	log.Info("serving agents", "addr", addr, "apps", srv.catalog.Names())
	return srv.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (srv *Server) Shutdown(ctx context.Context) error {
	return srv.app.ShutdownWithContext(ctx)
}

func (srv *Server) routes() {
	srv.app.Use(recover.New(), logger.New(logger.Config{
		// Streams log once they finish, which is noise for long runs.
		Next: func(ctx fiber.Ctx) bool {
			return ctx.Path() == "/run_sse" || ctx.Path() == "/health"
		},
	}))

	srv.app.Get("/health", srv.handleHealth)

	if srv.auth != nil {
		srv.app.Use(srv.authenticate)
		srv.app.Delete("/auth/token", srv.handleRevokeToken)
	}

	srv.app.Get("/list-apps", srv.handleListApps)
	srv.app.Get("/metrics", srv.handleMetrics)
	srv.app.Get("/apps/:app/instruction", srv.handleInstruction)
	srv.app.Get("/apps/:app/card", srv.handleCard)

	sessions := srv.app.Group("/apps/:app/users/:user/sessions")
	sessions.Get("/", srv.handleListSessions)
	sessions.Post("/", srv.handleCreateSession)
	sessions.Get("/:session", srv.handleGetSession)
	sessions.Post("/:session", srv.handleCreateSession)
	sessions.Delete("/:session", srv.handleDeleteSession)

	sessions.Get("/:session/artifacts", srv.handleListArtifacts)
	sessions.Get("/:session/artifacts/:name", srv.handleLoadArtifact)
	sessions.Get("/:session/artifacts/:name/versions", srv.handleArtifactVersions)
	sessions.Delete("/:session/artifacts/:name", srv.handleDeleteArtifact)

	srv.app.Post("/run", srv.handleRun)
	srv.app.Post("/run_sse", srv.handleRunSSE)
}

func (srv *Server) authenticate(ctx fiber.Ctx) error {
	subject, err := srv.auth.Authenticate(ctx.Get(fiber.HeaderAuthorization))

	if err != nil {
		return err
	}

	ctx.Locals(subjectKey, subject)
	return ctx.Next()
}

// handleRevokeToken signs the caller out by revoking the token it sent.
func (srv *Server) handleRevokeToken(ctx fiber.Ctx) error {
	raw, _ := strings.CutPrefix(ctx.Get(fiber.HeaderAuthorization), "Bearer ")
	srv.auth.RevokeToken(raw)

	log.Info("revoked token", "subject", ctx.Locals(subjectKey))
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (srv *Server) handleHealth(ctx fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

func (srv *Server) handleMetrics(ctx fiber.Ctx) error {
	return ctx.JSON(srv.metrics.GetMetrics())
}

/*
handleError renders API errors with their own status and code. Fiber errors
(unknown routes, bad methods) keep their status. Everything else is a 500.
*/
func handleError(ctx fiber.Ctx, err error) error {
	var apiErr *errors.APIError

	if errors.As(err, &apiErr) {
		if apiErr.Status >= fiber.StatusInternalServerError {
			log.Error("request failed", "path", ctx.Path(), "error", err)
		}

		return ctx.Status(apiErr.Status).JSON(apiErr)
	}

	var fiberErr *fiber.Error

	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(fiber.Map{
			"code":    "http_error",
			"message": fiberErr.Message,
		})
	}

	log.Error("request failed", "path", ctx.Path(), "error", err)

	return ctx.Status(fiber.StatusInternalServerError).JSON(errors.ErrInternal.WithMessagef("%v", err))
}

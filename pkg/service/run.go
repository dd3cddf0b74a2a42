package service

import (
	"bufio"
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/stores"
	"google.golang.org/genai"
)

// RunRequest is the body of /run and /run_sse.
type RunRequest struct {
	AppName    string         `json:"appName"`
	UserID     string         `json:"userId"`
	SessionID  string         `json:"sessionId"`
	NewMessage *genai.Content `json:"newMessage"`
}

func (request RunRequest) validate() error {
	switch {
	case request.AppName == "":
		return errors.ErrInvalidRequest.WithMessagef("appName is required")
	case request.UserID == "":
		return errors.ErrInvalidRequest.WithMessagef("userId is required")
	case request.SessionID == "":
		return errors.ErrInvalidRequest.WithMessagef("sessionId is required")
	case request.NewMessage == nil || len(request.NewMessage.Parts) == 0:
		return errors.ErrInvalidRequest.WithMessagef("newMessage must have at least one part")
	}

	return nil
}

/*
runner binds the request to its app. Sessions must exist before a run, as
they do for every other client of the API.
*/
func (srv *Server) runner(ctx fiber.Ctx) (*agent.Runner, RunRequest, error) {
	request := RunRequest{}

	if err := ctx.Bind().JSON(&request); err != nil {
		return nil, request, errors.ErrInvalidRequest.WithMessagef("invalid run body: %v", err)
	}

	if err := request.validate(); err != nil {
		return nil, request, err
	}

	app, err := srv.catalog.GetAgent(request.AppName)

	if err != nil {
		return nil, request, err
	}

	return &agent.Runner{
		AppName:   request.AppName,
		Agent:     app,
		Sessions:  srv.sessions,
		Artifacts: srv.artifacts,
		Metrics:   srv.metrics,
	}, request, nil
}

func (srv *Server) handleRun(ctx fiber.Ctx) error {
	runner, request, err := srv.runner(ctx)

	if err != nil {
		return err
	}

	events, err := runner.Collect(ctx, request.UserID, request.SessionID, request.NewMessage)

	if err != nil {
		return err
	}

	return ctx.JSON(events)
}

/*
handleRunSSE streams every event as one "data:" line. The run outlives the
handler, so it gets its own context which is cancelled when the client goes
away.
*/
func (srv *Server) handleRunSSE(ctx fiber.Ctx) error {
	runner, request, err := srv.runner(ctx)

	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	events, err := runner.Run(runCtx, request.UserID, request.SessionID, request.NewMessage)

	if err != nil {
		cancel()
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	srv.metrics.RecordStream(false, 0)
	start := time.Now()

	return ctx.SendStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cancel()

			// Let the runner observe the cancellation and finish.
			for range events {
			}

			srv.metrics.RecordStream(true, time.Since(start))
		}()

		for event := range events {
			if err := writeEvent(w, event); err != nil {
				log.Warn("sse client went away", "app", request.AppName, "session", request.SessionID, "error", err)
				return
			}
		}
	})
}

func writeEvent(w *bufio.Writer, event *stores.Event) error {
	buf, err := json.Marshal(event)

	if err != nil {
		return err
	}

	if _, err := w.WriteString("data: "); err != nil {
		return err
	}

	if _, err := w.Write(buf); err != nil {
		return err
	}

	if _, err := w.WriteString("\n\n"); err != nil {
		return err
	}

	return w.Flush()
}

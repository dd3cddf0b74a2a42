package agent

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/metrics"
	"github.com/theapemachine/agentdeck/pkg/stores"
	"google.golang.org/genai"
)

/*
Runner binds an agent to its app name and stores. Run appends the user message
to the session, drives the agent and persists every event before the agent
continues.
*/
type Runner struct {
	AppName    string
	Agent      Agent
	Sessions   stores.SessionStore
	Artifacts  stores.ArtifactStore
	Metrics    *metrics.RunMetrics
	AutoCreate bool
}

/*
Run starts the invocation and returns a channel of the events it produces. The
channel is closed when the agent is done or ctx is cancelled.
*/
func (runner *Runner) Run(
	ctx context.Context, userID, sessionID string, message *genai.Content,
) (<-chan *stores.Event, error) {
	session, err := runner.session(ctx, userID, sessionID)

	if err != nil {
		return nil, err
	}

	invocation := NewInvocation(session, runner.Artifacts, message)

	if message != nil && len(message.Parts) > 0 {
		if message.Role == "" {
			message.Role = string(genai.RoleUser)
		}

		if err := runner.Sessions.AppendEvent(
			ctx, session, stores.NewEvent(invocation.ID, UserAuthor, message),
		); err != nil {
			return nil, err
		}
	}

	ch := make(chan *stores.Event, 4)

	go func() {
		defer close(ch)

		start := time.Now()
		success := true

		log.Info("run started", "app", runner.AppName, "session", session.ID, "invocation", invocation.ID)

		for event := range runner.Agent.Run(ctx, invocation) {
			if event.ErrorMessage != "" {
				success = false
			}

			if err := runner.Sessions.AppendEvent(ctx, session, event); err != nil {
				log.Error("failed to persist event", "app", runner.AppName, "session", session.ID, "error", err)
				event = ErrorEvent(invocation, event.Author, err)
				success = false
			}

			runner.record(event)

			select {
			case ch <- event:
			case <-ctx.Done():
				log.Warn("run cancelled", "app", runner.AppName, "session", session.ID)
				runner.finish(false, start)
				return
			}
		}

		runner.finish(success, start)
		log.Info("run finished", "app", runner.AppName, "session", session.ID, "success", success)
	}()

	return ch, nil
}

// Collect drains a run and returns every event it produced.
func (runner *Runner) Collect(
	ctx context.Context, userID, sessionID string, message *genai.Content,
) ([]*stores.Event, error) {
	ch, err := runner.Run(ctx, userID, sessionID, message)

	if err != nil {
		return nil, err
	}

	out := []*stores.Event{}

	for event := range ch {
		out = append(out, event)
	}

	return out, nil
}

func (runner *Runner) session(
	ctx context.Context, userID, sessionID string,
) (*stores.Session, error) {
	session, err := runner.Sessions.Get(ctx, runner.AppName, userID, sessionID)

	if err == nil {
		return session, nil
	}

	if !runner.AutoCreate || !errors.Is(err, errors.ErrSessionNotFound) {
		return nil, err
	}

	return runner.Sessions.Create(ctx, runner.AppName, userID, sessionID, nil)
}

func (runner *Runner) record(event *stores.Event) {
	if runner.Metrics == nil {
		return
	}

	runner.Metrics.RecordEvent(runner.AppName, event.ErrorMessage != "", len(event.FunctionCalls()))

	if event.UsageMetadata != nil {
		runner.Metrics.RecordTokens(
			int64(event.UsageMetadata.PromptTokenCount),
			int64(event.UsageMetadata.CandidatesTokenCount),
		)
	}
}

func (runner *Runner) finish(success bool, start time.Time) {
	if runner.Metrics != nil {
		runner.Metrics.RecordRun(success, time.Since(start))
	}
}

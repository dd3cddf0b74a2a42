package agent

// An agent turns the session so far into new events. Agents do not persist
// anything themselves: they yield events and the Runner appends each one to
// the session before the agent resumes, so the next model turn always sees
// the state the previous events produced.

import (
	"context"
	"iter"

	"github.com/google/uuid"
	"github.com/theapemachine/agentdeck/pkg/stores"
	"google.golang.org/genai"
)

type Agent interface {
	Name() string
	Description() string
	Run(ctx context.Context, invocation *Invocation) iter.Seq[*stores.Event]
}

/*
Invocation is one user message being answered. Session is the live session
the Runner keeps in sync with the store.
*/
type Invocation struct {
	ID          string
	Session     *stores.Session
	Artifacts   stores.ArtifactStore
	UserContent *genai.Content
}

func NewInvocation(
	session *stores.Session, artifacts stores.ArtifactStore, userContent *genai.Content,
) *Invocation {
	return &Invocation{
		ID:          "e-" + uuid.NewString(),
		Session:     session,
		Artifacts:   artifacts,
		UserContent: userContent,
	}
}

// ErrorEvent reports a failure as an event so the stream stays well formed.
func ErrorEvent(invocation *Invocation, author string, err error) *stores.Event {
	event := stores.NewEvent(invocation.ID, author, nil)
	event.ErrorMessage = err.Error()

	return event
}

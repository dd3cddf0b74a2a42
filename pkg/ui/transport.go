package ui

import (
	"context"

	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/client"
	"github.com/theapemachine/agentdeck/pkg/service"
	"github.com/theapemachine/agentdeck/pkg/stores"
	"google.golang.org/genai"
)

// Transport delivers one user message to an app and returns the run's events.
type Transport interface {
	Send(ctx context.Context, text string) ([]*stores.Event, error)
}

func userMessage(text string) *genai.Content {
	return &genai.Content{
		Role:  string(genai.RoleUser),
		Parts: []*genai.Part{genai.NewPartFromText(text)},
	}
}

// LocalTransport runs the app in process.
type LocalTransport struct {
	Runner    *agent.Runner
	UserID    string
	SessionID string
}

func (transport *LocalTransport) Send(ctx context.Context, text string) ([]*stores.Event, error) {
	return transport.Runner.Collect(ctx, transport.UserID, transport.SessionID, userMessage(text))
}

// RemoteTransport runs the app on an agentdeck server.
type RemoteTransport struct {
	Client    *client.Client
	AppName   string
	UserID    string
	SessionID string
}

func (transport *RemoteTransport) Send(ctx context.Context, text string) ([]*stores.Event, error) {
	return transport.Client.Run(ctx, service.RunRequest{
		AppName:    transport.AppName,
		UserID:     transport.UserID,
		SessionID:  transport.SessionID,
		NewMessage: userMessage(text),
	})
}

package ui

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/provider"
	"github.com/theapemachine/agentdeck/pkg/stores"
	"google.golang.org/genai"
)

type fakeTransport struct {
	sent   []string
	events []*stores.Event
	err    error
}

func (transport *fakeTransport) Send(ctx context.Context, text string) ([]*stores.Event, error) {
	transport.sent = append(transport.sent, text)
	return transport.events, transport.err
}

func textEvent(author, text string) *stores.Event {
	return stores.NewEvent("e-1", author, &genai.Content{
		Role:  string(genai.RoleModel),
		Parts: []*genai.Part{genai.NewPartFromText(text)},
	})
}

func TestChat(t *testing.T) {
	Convey("Given a chat with an app", t, func() {
		transport := &fakeTransport{events: []*stores.Event{textEvent("echo", "hello back")}}
		chat := New(context.Background(), "echo", transport).(model)
		chat.textarea.SetValue("hello")

		Convey("When enter is pressed", func() {
			updated, cmd := chat.Update(tea.KeyMsg{Type: tea.KeyEnter})
			chat = updated.(model)

			Convey("Then the message is shown and the chat waits", func() {
				So(cmd, ShouldNotBeNil)
				So(chat.waiting, ShouldBeTrue)
				So(chat.messages[0], ShouldContainSubstring, "hello")
				So(chat.textarea.Value(), ShouldBeEmpty)
				So(chat.View(), ShouldContainSubstring, "waiting for echo")
			})

			Convey("Then a second enter while waiting sends nothing", func() {
				chat.textarea.SetValue("again")
				updated, _ := chat.Update(tea.KeyMsg{Type: tea.KeyEnter})
				So(len(updated.(model).messages), ShouldEqual, 1)
			})

			Convey("Then the reply is rendered when it arrives", func() {
				msg := chat.send("hello")()
				updated, _ := chat.Update(msg)
				chat = updated.(model)

				So(transport.sent, ShouldResemble, []string{"hello"})
				So(chat.waiting, ShouldBeFalse)
				So(chat.messages[1], ShouldContainSubstring, "echo: ")
				So(chat.messages[1], ShouldContainSubstring, "hello back")
			})
		})

		Convey("When the transport fails", func() {
			transport.err = fmt.Errorf("connection refused")
			updated, _ := chat.Update(chat.send("hello")())
			chat = updated.(model)

			Convey("Then the error is shown", func() {
				So(chat.messages[0], ShouldContainSubstring, "connection refused")
			})
		})

		Convey("When escape is pressed", func() {
			_, cmd := chat.Update(tea.KeyMsg{Type: tea.KeyEsc})

			Convey("Then the program quits", func() {
				So(cmd(), ShouldResemble, tea.Quit())
			})
		})
	})
}

func TestRenderEvent(t *testing.T) {
	Convey("Given events of every kind", t, func() {
		call := stores.NewEvent("e-1", "calc", &genai.Content{
			Role: string(genai.RoleModel),
			Parts: []*genai.Part{{
				FunctionCall: &genai.FunctionCall{Name: "add", Args: map[string]any{"a": 1}},
			}},
		})

		response := stores.NewEvent("e-1", "calc", &genai.Content{
			Role: string(genai.RoleUser),
			Parts: []*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{Name: "add", Response: map[string]any{"sum": 1}},
			}},
		})

		failed := stores.NewEvent("e-1", "calc", nil)
		failed.ErrorMessage = "quota exceeded"

		So(RenderEvent(call), ShouldContainSubstring, `→ add({"a":1})`)
		So(RenderEvent(response), ShouldContainSubstring, "← add")
		So(RenderEvent(failed), ShouldContainSubstring, "quota exceeded")
		So(RenderEvent(stores.NewEvent("e-1", "calc", nil)), ShouldBeEmpty)
	})
}

func TestLocalTransport(t *testing.T) {
	Convey("Given a local runner", t, func() {
		sessions := stores.NewInMemorySessionStore()
		defer sessions.Close()

		transport := &LocalTransport{
			Runner: &agent.Runner{
				AppName: "echo",
				Agent: agent.NewLLMAgent("echo", provider.NewScripted("scripted", &provider.Response{
					Content: &genai.Content{
						Role:  string(genai.RoleModel),
						Parts: []*genai.Part{genai.NewPartFromText("hi there")},
					},
				})),
				Sessions:   sessions,
				Artifacts:  stores.NewInMemoryArtifactStore(),
				AutoCreate: true,
			},
			UserID:    "u1",
			SessionID: "chat",
		}

		events, err := transport.Send(context.Background(), "hi")

		Convey("Then the run's events come back", func() {
			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 1)
			So(events[0].Text(), ShouldEqual, "hi there")
		})
	})
}

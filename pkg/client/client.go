package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	fiberClient "github.com/gofiber/fiber/v3/client"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/service"
	"github.com/theapemachine/agentdeck/pkg/sse"
	"github.com/theapemachine/agentdeck/pkg/stores"
	"google.golang.org/genai"
)

/*
Client talks to a running agentdeck server. JSON routes go through the fiber
client, run_sse is read line by line so events show up as they happen.
*/
type Client struct {
	baseURL string
	token   string
	conn    *fiberClient.Client
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(client *Client) {
		client.token = token
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		client.conn.SetTimeout(timeout)
	}
}

func New(baseURL string, options ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")

	client := &Client{
		baseURL: baseURL,
		conn:    fiberClient.New().SetBaseURL(baseURL).SetTimeout(5 * time.Minute),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

func (client *Client) headers() map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}

	if client.token != "" {
		headers["Authorization"] = "Bearer " + client.token
	}

	return headers
}

/*
do sends one request and decodes the JSON answer into out. Error answers are
turned back into the API error the server reported.
*/
func (client *Client) do(ctx context.Context, method, path string, body, out any) error {
	config := fiberClient.Config{Ctx: ctx, Header: client.headers()}

	if body != nil {
		config.Body = body
	}

	var (
		resp *fiberClient.Response
		err  error
	)

	switch method {
	case http.MethodGet:
		resp, err = client.conn.Get(path, config)
	case http.MethodPost:
		resp, err = client.conn.Post(path, config)
	case http.MethodDelete:
		resp, err = client.conn.Delete(path, config)
	default:
		return fmt.Errorf("unsupported method %s", method)
	}

	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	defer resp.Close()

	if status := resp.StatusCode(); status >= http.StatusBadRequest {
		return decodeError(status, resp.Body())
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}

	return resp.JSON(out)
}

func decodeError(status int, body []byte) error {
	apiErr := &errors.APIError{Status: status}

	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "http_error"
		apiErr.Message = strings.TrimSpace(string(body))
	}

	return apiErr
}

func sessionPath(app, user, session string) string {
	path := fmt.Sprintf("/apps/%s/users/%s/sessions", url.PathEscape(app), url.PathEscape(user))

	if session != "" {
		path += "/" + url.PathEscape(session)
	}

	return path
}

func (client *Client) Health(ctx context.Context) error {
	return client.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (client *Client) ListApps(ctx context.Context) ([]string, error) {
	out := []string{}
	return out, client.do(ctx, http.MethodGet, "/list-apps", nil, &out)
}

func (client *Client) Instruction(ctx context.Context, app string) (service.InstructionResponse, error) {
	out := service.InstructionResponse{}
	return out, client.do(ctx, http.MethodGet, "/apps/"+url.PathEscape(app)+"/instruction", nil, &out)
}

// CreateSession creates a session; an empty id lets the server pick one.
func (client *Client) CreateSession(
	ctx context.Context, app, user, session string, state map[string]any,
) (*stores.Session, error) {
	out := &stores.Session{}

	return out, client.do(ctx, http.MethodPost, sessionPath(app, user, session),
		service.CreateSessionRequest{State: state}, out,
	)
}

func (client *Client) GetSession(ctx context.Context, app, user, session string) (*stores.Session, error) {
	out := &stores.Session{}
	return out, client.do(ctx, http.MethodGet, sessionPath(app, user, session), nil, out)
}

func (client *Client) DeleteSession(ctx context.Context, app, user, session string) error {
	return client.do(ctx, http.MethodDelete, sessionPath(app, user, session), nil, nil)
}

func (client *Client) ListArtifacts(ctx context.Context, app, user, session string) ([]string, error) {
	out := []string{}
	return out, client.do(ctx, http.MethodGet, sessionPath(app, user, session)+"/artifacts", nil, &out)
}

// LoadArtifact fetches an artifact; a negative version means the latest.
func (client *Client) LoadArtifact(
	ctx context.Context, app, user, session, name string, version int,
) (*genai.Part, error) {
	path := sessionPath(app, user, session) + "/artifacts/" + url.PathEscape(name)

	if version >= 0 {
		path += fmt.Sprintf("?version=%d", version)
	}

	out := &genai.Part{}
	return out, client.do(ctx, http.MethodGet, path, nil, out)
}

func (client *Client) Run(ctx context.Context, request service.RunRequest) ([]*stores.Event, error) {
	out := []*stores.Event{}
	return out, client.do(ctx, http.MethodPost, "/run", request, &out)
}

/*
RunSSE starts a streamed run and calls handler for every event. A handler error
stops reading and is returned.
*/
func (client *Client) RunSSE(
	ctx context.Context, request service.RunRequest, handler func(*stores.Event) error,
) error {
	body, err := json.Marshal(request)

	if err != nil {
		return err
	}

	stream := sse.NewClient(client.baseURL + "/run_sse")

	if client.token != "" {
		stream.Headers["Authorization"] = "Bearer " + client.token
	}

	err = stream.Post(ctx, body, func(raw *sse.Event) error {
		event := &stores.Event{}

		if err := json.Unmarshal(raw.Data, event); err != nil {
			log.Warn("skipping malformed event", "error", err)
			return nil
		}

		return handler(event)
	})

	var statusErr *sse.StatusError

	if errors.As(err, &statusErr) {
		return decodeError(statusErr.Code, statusErr.Body)
	}

	return err
}

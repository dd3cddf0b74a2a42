package sse

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Event is one Server-Sent Event.
type Event struct {
	ID    string
	Event string
	Data  []byte
}

/*
Reader splits an SSE stream into events. Comment lines are skipped and
multiple data lines are joined with a newline.
*/
type Reader struct {
	reader *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(r)}
}

// Next returns the next event, or io.EOF when the stream ends.
func (reader *Reader) Next() (*Event, error) {
	event := &Event{}
	data := strings.Builder{}
	inEvent := false

	for {
		line, err := reader.reader.ReadString('\n')

		if err != nil && err != io.EOF {
			return nil, err
		}

		eof := err == io.EOF
		line = strings.TrimRight(line, "\n\r")

		if line == "" {
			if inEvent {
				event.Data = []byte(data.String())
				return event, nil
			}

			if eof {
				return nil, io.EOF
			}

			continue
		}

		if strings.HasPrefix(line, ":") && !eof {
			continue
		}

		inEvent = inEvent || !strings.HasPrefix(line, ":")

		switch {
		case strings.HasPrefix(line, "id:"):
			event.ID = strings.TrimSpace(line[3:])
		case strings.HasPrefix(line, "event:"):
			event.Event = strings.TrimSpace(line[6:])
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteString("\n")
			}

			data.WriteString(strings.TrimPrefix(line[5:], " "))
		}

		if eof {
			if !inEvent {
				return nil, io.EOF
			}

			event.Data = []byte(data.String())
			return event, nil
		}
	}
}

/*
Client posts a request to an endpoint that answers with an event stream and
hands every event to a handler as it arrives.
*/
type Client struct {
	URL     string
	Headers map[string]string
	conn    *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		URL:     url,
		Headers: map[string]string{},
		conn:    &http.Client{Timeout: 10 * time.Minute},
	}
}

/*
Post sends body and reads the stream until it ends, ctx is cancelled or the
handler returns an error.
*/
func (client *Client) Post(ctx context.Context, body []byte, handler func(*Event) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.URL, bytes.NewReader(body))

	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	for key, value := range client.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.conn.Do(req)

	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		buf, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: buf}
	}

	reader := NewReader(resp.Body)

	for {
		event, err := reader.Next()

		if err == io.EOF {
			return nil
		}

		if err != nil {
			return err
		}

		if err := handler(event); err != nil {
			return err
		}
	}
}

// StatusError is returned when the stream could not be opened.
type StatusError struct {
	Code int
	Body []byte
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", err.Code, string(err.Body))
}

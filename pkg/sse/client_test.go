package sse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestReader(t *testing.T) {
	Convey("Given a stream with comments and multi-line data", t, func() {
		reader := NewReader(strings.NewReader(
			": heartbeat\n\nid: 1\nevent: message\ndata: {\"a\":\ndata: 1}\n\ndata: last",
		))

		Convey("Then events are split and joined", func() {
			first, err := reader.Next()
			So(err, ShouldBeNil)
			So(first.ID, ShouldEqual, "1")
			So(first.Event, ShouldEqual, "message")
			So(string(first.Data), ShouldEqual, "{\"a\":\n1}")

			last, err := reader.Next()
			So(err, ShouldBeNil)
			So(string(last.Data), ShouldEqual, "last")

			_, err = reader.Next()
			So(err, ShouldEqual, io.EOF)
		})
	})
}

func TestClientPost(t *testing.T) {
	Convey("Given an SSE server", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)

			if r.Header.Get("Authorization") != "Bearer t" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)

			for i := range 3 {
				fmt.Fprintf(w, "data: %s-%d\n\n", body, i)
				w.(http.Flusher).Flush()
			}
		}))
		defer server.Close()

		client := NewClient(server.URL)

		Convey("When the request is authorized", func() {
			client.Headers["Authorization"] = "Bearer t"
			received := []string{}

			err := client.Post(context.Background(), []byte("ping"), func(event *Event) error {
				received = append(received, string(event.Data))
				return nil
			})

			Convey("Then every event reaches the handler", func() {
				So(err, ShouldBeNil)
				So(received, ShouldResemble, []string{"ping-0", "ping-1", "ping-2"})
			})
		})

		Convey("When the handler stops early", func() {
			client.Headers["Authorization"] = "Bearer t"
			count := 0

			err := client.Post(context.Background(), []byte("ping"), func(event *Event) error {
				count++
				return fmt.Errorf("enough")
			})

			Convey("Then its error is returned", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldEqual, "enough")
				So(count, ShouldEqual, 1)
			})
		})

		Convey("When the request is rejected", func() {
			err := client.Post(context.Background(), []byte("ping"), func(*Event) error { return nil })

			Convey("Then the status is reported", func() {
				statusErr, ok := err.(*StatusError)
				So(ok, ShouldBeTrue)
				So(statusErr.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})
	})
}

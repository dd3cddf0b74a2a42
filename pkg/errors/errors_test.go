package errors

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewError(t *testing.T) {
	Convey("Given a mix of errors and messages", t, func() {
		cause := stderrors.New("boom")
		err := NewError(cause, "agent skipped", nil)

		Convey("Then both are rendered and the cause is reachable", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldEqual, "boom\nagent skipped")
			So(stderrors.Is(err, cause), ShouldBeTrue)
		})
	})

	Convey("Given nothing to report", t, func() {
		Convey("Then NewError returns nil", func() {
			So(NewError(nil), ShouldBeNil)
		})
	})
}

func TestAPIError(t *testing.T) {
	Convey("Given a sentinel API error", t, func() {
		err := ErrSessionNotFound.WithMessagef("session %s not found", "abc")

		Convey("Then copies still match the sentinel", func() {
			So(Is(err, ErrSessionNotFound), ShouldBeTrue)
			So(Is(err, ErrAgentNotFound), ShouldBeFalse)
			So(ErrSessionNotFound.Message, ShouldEqual, "session not found")
		})

		Convey("Then the status is derived from the error", func() {
			So(StatusOf(err), ShouldEqual, http.StatusNotFound)
			So(StatusOf(stderrors.New("plain")), ShouldEqual, http.StatusInternalServerError)
		})

		Convey("Then wrapped causes are preserved", func() {
			cause := stderrors.New("db down")
			wrapped := ErrInternal.Wrap(cause)
			So(stderrors.Is(wrapped, cause), ShouldBeTrue)
			So(wrapped.Error(), ShouldContainSubstring, "db down")
		})
	})
}

func TestRetryWithBackoff(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}

	Convey("Given a function that succeeds on the second attempt", t, func() {
		calls := 0
		err := RetryWithBackoff(context.Background(), cfg, func() error {
			calls++
			if calls < 2 {
				return stderrors.New("not yet")
			}
			return nil
		})

		So(err, ShouldBeNil)
		So(calls, ShouldEqual, 2)
	})

	Convey("Given a function that fails permanently", t, func() {
		calls := 0
		err := RetryWithBackoff(context.Background(), cfg, func() error {
			calls++
			return Permanent(ErrSessionNotFound.WithMessagef("gone"))
		})

		So(calls, ShouldEqual, 1)
		So(Is(err, ErrSessionNotFound), ShouldBeTrue)
		So(err.Error(), ShouldNotContainSubstring, "attempts")
		So(Permanent(nil), ShouldBeNil)
	})

	Convey("Given a function that always fails", t, func() {
		calls := 0
		err := RetryWithBackoff(context.Background(), cfg, func() error {
			calls++
			return stderrors.New("nope")
		})

		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "after 3 attempts")
		So(calls, ShouldEqual, 3)
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := RetryWithBackoff(ctx, cfg, func() error { return stderrors.New("nope") })
		So(stderrors.Is(err, context.Canceled), ShouldBeTrue)
	})
}

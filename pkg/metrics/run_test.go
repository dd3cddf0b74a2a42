package metrics

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewRunMetrics(t *testing.T) {
	Convey("When creating a new metrics instance", t, func() {
		m := NewRunMetrics()
		Convey("Then it should not be nil", func() {
			So(m, ShouldNotBeNil)
			So(m.GetMetrics()["avg_run_duration"], ShouldEqual, 0)
		})
	})
}

func TestRecordRun(t *testing.T) {
	Convey("Given a metrics instance", t, func() {
		m := NewRunMetrics()
		m.RecordRun(true, time.Second)
		m.RecordRun(false, 3*time.Second)
		Convey("Then run stats are recorded", func() {
			So(m.TotalRuns, ShouldEqual, 2)
			So(m.FailedRuns, ShouldEqual, 1)
			So(m.GetMetrics()["avg_run_duration"], ShouldEqual, 2.0)
		})
	})
}

func TestRecordStream(t *testing.T) {
	Convey("Given a metrics instance", t, func() {
		m := NewRunMetrics()
		m.RecordStream(false, 0)
		m.RecordStream(false, 0)
		m.RecordStream(true, time.Second)
		Convey("Then only unclosed streams count as open", func() {
			So(m.GetMetrics()["open_streams"], ShouldEqual, int64(1))
			So(m.GetMetrics()["avg_stream_duration"], ShouldEqual, 1.0)
		})
	})
}

func TestRecordEvent(t *testing.T) {
	Convey("Given a metrics instance", t, func() {
		m := NewRunMetrics()
		m.RecordEvent("web_search_agent", false, 2)
		m.RecordEvent("web_search_agent", true, 0)
		m.RecordTokens(10, 5)
		Convey("Then event stats are recorded", func() {
			snapshot := m.GetMetrics()
			So(m.TotalEvents, ShouldEqual, 2)
			So(m.ErrorEvents, ShouldEqual, 1)
			So(m.ToolCalls, ShouldEqual, 2)
			So(snapshot["prompt_tokens"], ShouldEqual, int64(10))
			So(snapshot["events_per_app"], ShouldResemble, map[string]int64{"web_search_agent": 2})
		})
	})
}

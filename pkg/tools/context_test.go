package tools

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/agentdeck/pkg/stores"
	"google.golang.org/genai"
)

func TestContext(t *testing.T) {
	Convey("Given a tool context for a session", t, func() {
		ctx := context.Background()
		session := stores.NewSession("app", "u1", "s1", map[string]any{"existing": 1})
		artifacts := stores.NewInMemoryArtifactStore()
		toolCtx := NewContext(session, "inv", "agent", artifacts)

		Convey("State reads through to the session", func() {
			value, ok := toolCtx.State("existing")
			So(ok, ShouldBeTrue)
			So(value, ShouldEqual, 1)
		})

		Convey("SetState records a delta without touching the session", func() {
			toolCtx.SetState("existing", 2)
			toolCtx.SetState("new", "x")

			value, _ := toolCtx.State("existing")
			So(value, ShouldEqual, 2)
			So(session.State["existing"], ShouldEqual, 1)
			So(toolCtx.StateDelta(), ShouldResemble, map[string]any{"existing": 2, "new": "x"})
		})

		Convey("SaveArtifact records the version in the artifact delta", func() {
			version, err := toolCtx.SaveArtifact(ctx, "notes.txt", genai.NewPartFromText("hi"))
			So(err, ShouldBeNil)
			So(version, ShouldEqual, 0)

			actions := toolCtx.Actions()
			So(actions.ArtifactDelta, ShouldResemble, map[string]int{"notes.txt": 0})
			So(actions.StateDelta, ShouldBeNil)

			part, err := toolCtx.LoadArtifact(ctx, "notes.txt", -1)
			So(err, ShouldBeNil)
			So(part.Text, ShouldEqual, "hi")

			names, err := toolCtx.ListArtifacts(ctx)
			So(err, ShouldBeNil)
			So(names, ShouldResemble, []string{"notes.txt"})
		})

		Convey("Without an artifact store saving fails", func() {
			bare := NewContext(session, "inv", "agent", nil)
			_, err := bare.SaveArtifact(ctx, "x", genai.NewPartFromText("y"))
			So(err, ShouldNotBeNil)

			names, err := bare.ListArtifacts(ctx)
			So(err, ShouldBeNil)
			So(names, ShouldBeEmpty)
		})
	})
}

package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/agentdeck/pkg/stores"
)

func TestArtifactTools(t *testing.T) {
	ctx := context.Background()
	toolCtx := NewContext(
		stores.NewSession("app", "u1", "s1", nil), "inv", "agent", stores.NewInMemoryArtifactStore(),
	)

	out, err := NewSaveArtifactTool().Run(ctx, toolCtx, map[string]any{
		"filename": "job_requirements.txt",
		"content":  "5 years of Go",
	})
	require.NoError(t, err)
	assert.Equal(t, "success", out.(map[string]any)["status"])
	assert.Equal(t, 0, out.(map[string]any)["version"])

	_, err = NewSaveArtifactTool().Run(ctx, toolCtx, map[string]any{
		"filename":  "cv.md",
		"content":   "# CV",
		"mime_type": "text/markdown",
	})
	require.NoError(t, err)

	load := NewLoadArtifactsTool()

	listed, err := load.Run(ctx, toolCtx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []string{"cv.md", "job_requirements.txt"}, listed.(map[string]any)["artifact_names"])

	loaded, err := load.Run(ctx, toolCtx, map[string]any{
		"artifact_names": []string{"job_requirements.txt", "cv.md", "missing.txt"},
	})
	require.NoError(t, err)

	artifacts := loaded.(map[string]any)["artifacts"].(map[string]any)
	assert.Equal(t, map[string]any{"text": "5 years of Go"}, artifacts["job_requirements.txt"])
	assert.Equal(t, "text/markdown", artifacts["cv.md"].(map[string]any)["mime_type"])
	assert.Contains(t, artifacts["missing.txt"], "error")
}

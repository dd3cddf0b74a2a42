package tools

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"
)

type SaveArtifactInput struct {
	Filename string `json:"filename" jsonschema:"required,description=Name for the artifact file such as cv.pdf or job_requirements.txt"`
	Content  string `json:"content" jsonschema:"required,description=Text content to save"`
	MIMEType string `json:"mime_type,omitempty" jsonschema:"description=MIME type of the content (default text/plain)"`
}

type LoadArtifactsInput struct {
	ArtifactNames []string `json:"artifact_names,omitempty" jsonschema:"description=Names of the artifacts to load. Leave empty to list what is available."`
}

func NewSaveArtifactTool() *FunctionTool[SaveArtifactInput] {
	return NewFunctionTool(
		"save_artifact",
		"Save text content or a document as an artifact that can be loaded later in the session.",
		func(ctx context.Context, toolCtx *Context, in SaveArtifactInput) (any, error) {
			if toolCtx == nil {
				return map[string]any{"status": "error", "message": "Tool context not available"}, nil
			}

			if in.MIMEType == "" {
				in.MIMEType = "text/plain"
			}

			part := genai.NewPartFromText(in.Content)

			if in.MIMEType != "text/plain" {
				part = genai.NewPartFromBytes([]byte(in.Content), in.MIMEType)
			}

			version, err := toolCtx.SaveArtifact(ctx, in.Filename, part)

			if err != nil {
				return map[string]any{
					"status":  "error",
					"message": fmt.Sprintf("Failed to save artifact: %v", err),
				}, nil
			}

			return map[string]any{
				"status":   "success",
				"filename": in.Filename,
				"version":  version,
				"message":  fmt.Sprintf("Artifact '%s' saved successfully (version %d)", in.Filename, version),
			}, nil
		},
	)
}

/*
NewLoadArtifactsTool lists the session's artifacts, or returns the latest
version of the named ones. Binary artifacts are described rather than
inlined.
*/
func NewLoadArtifactsTool() *FunctionTool[LoadArtifactsInput] {
	return NewFunctionTool(
		"load_artifacts",
		"Load artifacts saved in this session. Call without names to list the available artifacts.",
		func(ctx context.Context, toolCtx *Context, in LoadArtifactsInput) (any, error) {
			if toolCtx == nil {
				return map[string]any{"status": "error", "message": "Tool context not available"}, nil
			}

			available, err := toolCtx.ListArtifacts(ctx)

			if err != nil {
				return nil, err
			}

			if len(in.ArtifactNames) == 0 {
				return map[string]any{"artifact_names": available}, nil
			}

			loaded := map[string]any{}

			for _, name := range in.ArtifactNames {
				part, err := toolCtx.LoadArtifact(ctx, name, -1)

				if err != nil {
					log.Warn("artifact not loaded", "artifact", name, "error", err)
					loaded[name] = map[string]any{"error": err.Error()}
					continue
				}

				if part.InlineData != nil {
					loaded[name] = map[string]any{
						"mime_type":  part.InlineData.MIMEType,
						"size_bytes": len(part.InlineData.Data),
					}

					continue
				}

				loaded[name] = map[string]any{"text": part.Text}
			}

			return map[string]any{
				"artifact_names": available,
				"artifacts":      loaded,
			}, nil
		},
	)
}

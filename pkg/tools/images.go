package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	fiberClient "github.com/gofiber/fiber/v3/client"
	"google.golang.org/genai"
)

const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultImageModel        = "google/gemini-2.5-flash-image-preview"
)

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

type ImageGenerationConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type GenerateImageInput struct {
	Prompt      string `json:"prompt" jsonschema:"required,description=Text description of the image to generate"`
	AspectRatio string `json:"aspect_ratio,omitempty" jsonschema:"description=Aspect ratio such as 1:1 or 16:9,enum=1:1,enum=2:3,enum=3:2,enum=3:4,enum=4:3,enum=4:5,enum=5:4,enum=9:16,enum=16:9,enum=21:9"`
}

type imageMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type imageRequest struct {
	Model       string            `json:"model"`
	Messages    []imageMessage    `json:"messages"`
	Modalities  []string          `json:"modalities"`
	ImageConfig map[string]string `json:"image_config,omitempty"`
}

type imageResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Images  []struct {
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

type SavedImage struct {
	Filename  string `json:"filename"`
	Version   int    `json:"version"`
	MIMEType  string `json:"mime_type"`
	SizeBytes int    `json:"size_bytes"`
}

type GenerateImageResult struct {
	Status       string       `json:"status"`
	Message      string       `json:"message"`
	ImagesCount  int          `json:"images_count,omitempty"`
	Artifacts    []SavedImage `json:"artifacts,omitempty"`
	TextResponse string       `json:"text_response,omitempty"`
}

/*
DecodeDataURL splits a data:image/...;base64, URL into its MIME type and
bytes.
*/
func DecodeDataURL(dataURL string) (string, []byte, error) {
	header, payload, found := strings.Cut(dataURL, ",")

	if !found || !strings.HasPrefix(header, "data:image/") {
		return "", nil, fmt.Errorf("not an image data url")
	}

	mimeType, _, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";")

	if mimeType == "" {
		mimeType = "image/png"
	}

	data, err := base64.StdEncoding.DecodeString(payload)

	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 image data: %w", err)
	}

	return mimeType, data, nil
}

/*
ImageGenerator asks an image capable model on OpenRouter for images and saves
every returned image as a session artifact.
*/
type ImageGenerator struct {
	apiKey string
	model  string
	conn   *fiberClient.Client
}

func NewImageGenerator(config ImageGenerationConfig) *ImageGenerator {
	if config.BaseURL == "" {
		config.BaseURL = DefaultOpenRouterBaseURL
	}

	if config.Model == "" {
		config.Model = DefaultImageModel
	}

	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}

	return &ImageGenerator{
		apiKey: config.APIKey,
		model:  config.Model,
		conn:   fiberClient.New().SetBaseURL(config.BaseURL).SetTimeout(config.Timeout),
	}
}

func (generator *ImageGenerator) Generate(
	ctx context.Context, toolCtx *Context, in GenerateImageInput,
) GenerateImageResult {
	if generator.apiKey == "" {
		return GenerateImageResult{Status: "error", Message: "OPENROUTER_API_KEY environment variable not set"}
	}

	if in.AspectRatio == "" {
		in.AspectRatio = "1:1"
	}

	log.Info("generating image", "model", generator.model, "prompt", promptPreview(in.Prompt))

	resp, err := generator.conn.Post("/chat/completions", fiberClient.Config{
		Ctx: ctx,
		Header: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + generator.apiKey,
			"X-Title":       "agentdeck",
		},
		Body: imageRequest{
			Model:       generator.model,
			Messages:    []imageMessage{{Role: "user", Content: in.Prompt}},
			Modalities:  []string{"image", "text"},
			ImageConfig: map[string]string{"aspect_ratio": in.AspectRatio},
		},
	})

	if err != nil {
		log.Error("image generation failed", "error", err)
		return GenerateImageResult{Status: "error", Message: fmt.Sprintf("Failed to generate image: %v", err)}
	}

	defer resp.Close()

	if resp.StatusCode() != http.StatusOK {
		body := string(resp.Body())
		log.Error("openrouter api error", "status", resp.StatusCode(), "body", body)

		return GenerateImageResult{
			Status:  "error",
			Message: fmt.Sprintf("OpenRouter API error: %d - %s", resp.StatusCode(), body),
		}
	}

	decoded := imageResponse{}

	if err = resp.JSON(&decoded); err != nil {
		return GenerateImageResult{Status: "error", Message: fmt.Sprintf("Failed to generate image: %v", err)}
	}

	if len(decoded.Choices) == 0 {
		return GenerateImageResult{Status: "error", Message: "No images generated. The model returned no choices."}
	}

	message := decoded.Choices[0].Message
	saved := []SavedImage{}
	count := 0

	for _, image := range message.Images {
		mimeType, data, err := DecodeDataURL(image.ImageURL.URL)

		if err != nil {
			log.Warn("skipping image", "error", err)
			continue
		}

		count++

		if toolCtx == nil {
			continue
		}

		ext, ok := imageExtensions[mimeType]

		if !ok {
			ext = "png"
		}

		filename := fmt.Sprintf("generated_image_%d.%s", count, ext)
		version, err := toolCtx.SaveArtifact(ctx, filename, genai.NewPartFromBytes(data, mimeType))

		if err != nil {
			log.Error("failed to save image artifact", "filename", filename, "error", err)
			continue
		}

		log.Info("saved image artifact", "filename", filename, "version", version)

		saved = append(saved, SavedImage{
			Filename:  filename,
			Version:   version,
			MIMEType:  mimeType,
			SizeBytes: len(data),
		})
	}

	if count == 0 {
		return GenerateImageResult{
			Status:       "error",
			Message:      "No images generated. The model may not have generated images.",
			TextResponse: message.Content,
		}
	}

	return GenerateImageResult{
		Status:       "success",
		Message:      fmt.Sprintf("Generated %d image(s)", count),
		ImagesCount:  count,
		Artifacts:    saved,
		TextResponse: message.Content,
	}
}

func NewGenerateImageTool(config ImageGenerationConfig) *FunctionTool[GenerateImageInput] {
	generator := NewImageGenerator(config)

	return NewFunctionTool(
		"generate_image",
		"Generate an image from a text description and save it as a session artifact.",
		func(ctx context.Context, toolCtx *Context, in GenerateImageInput) (any, error) {
			return generator.Generate(ctx, toolCtx, in), nil
		},
	)
}

// promptPreview cuts a prompt to its first 50 characters for logging.
func promptPreview(prompt string) string {
	if runes := []rune(prompt); len(runes) > 50 {
		return string(runes[:50])
	}

	return prompt
}

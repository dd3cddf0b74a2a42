package prompts

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"
)

/*
Prompt is one version of an agent's system instruction. Any change to the text
of a prompt is a new Version (v0, v1, v2, ...) so that sessions can be traced
back to the exact wording the model saw.
*/
type Prompt struct {
	Name     string `json:"name" yaml:"name"`
	Version  string `json:"version" yaml:"version"`
	Template string `json:"template" yaml:"-"`
}

/*
Data is what a prompt template can refer to.
*/
type Data struct {
	CurrentDate string
	CurrentYear string
	ISODate     string
	Extra       map[string]any
}

// NewData derives the date fields from now.
func NewData(now time.Time) Data {
	return Data{
		CurrentDate: CurrentDate(now),
		CurrentYear: strconv.Itoa(now.Year()),
		ISODate:     now.Format(time.DateOnly),
		Extra:       map[string]any{},
	}
}

// CurrentDate formats now the way prompts mention today, e.g. "January 15, 2025".
func CurrentDate(now time.Time) string {
	return now.Format("January 02, 2006")
}

/*
Render executes the template against data derived from now.
*/
func (prompt Prompt) Render(now time.Time) (string, error) {
	return prompt.RenderWith(NewData(now))
}

func (prompt Prompt) RenderWith(data Data) (string, error) {
	tmpl, err := template.New(prompt.Name + "@" + prompt.Version).
		Option("missingkey=error").
		Parse(prompt.Template)

	if err != nil {
		return "", fmt.Errorf("failed to parse prompt %s@%s: %w", prompt.Name, prompt.Version, err)
	}

	buf := bytes.Buffer{}

	if err = tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s@%s: %w", prompt.Name, prompt.Version, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

/*
versionNumber extracts the numeric part of "v12" so versions sort numerically.
Anything that does not parse sorts first.
*/
func versionNumber(version string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(version), "v"))

	if err != nil {
		return -1
	}

	return n
}

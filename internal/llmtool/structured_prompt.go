package llmtool

import (
	"bytes"
	"fmt"
	"strings"
)

// PromptField describes a single output field in a simple schema.
type PromptField struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// PromptSection is an extra titled block rendered after INPUT.
type PromptSection struct {
	Title string
	Body  string
}

// StructuredPromptSpec defines the sections for a structured prompt.
type StructuredPromptSpec struct {
	Purpose      string
	Background   string
	Sections     []PromptSection
	OutputFields []PromptField
	Task         []string
	Rules        []string
	OutputFormat string
	Language     []string
}

// RenderStructuredPrompt renders spec and input as bracketed sections.
// Empty sections are skipped.
func RenderStructuredPrompt(spec StructuredPromptSpec, input any) (string, error) {
	if strings.TrimSpace(spec.Purpose) == "" {
		return "", fmt.Errorf("llmtool: purpose is empty")
	}
	if len(spec.OutputFields) == 0 {
		return "", fmt.Errorf("llmtool: output fields are empty")
	}
	inputJSON := ""
	if input != nil {
		s, err := formatJSON(input)
		if err != nil {
			return "", fmt.Errorf("llmtool: encode input: %w", err)
		}
		inputJSON = s
	}

	var w promptWriter
	w.section("PURPOSE", spec.Purpose)
	w.section("BACKGROUND", spec.Background)
	w.section("INPUT", inputJSON)
	for _, sec := range spec.Sections {
		w.section(strings.ToUpper(strings.TrimSpace(sec.Title)), sec.Body)
	}
	w.section("TASK", bullets(spec.Task, true))
	w.section("OUTPUT", fieldLines(spec.OutputFields))
	w.section("RULES", bullets(spec.Rules, false))
	w.section("LANGUAGE", bullets(spec.Language, false))
	w.section("OUTPUT_FORMAT", spec.OutputFormat)
	return strings.TrimSpace(w.String()) + "\n", nil
}

// promptWriter accumulates "[TITLE]" blocks separated by blank lines.
type promptWriter struct {
	bytes.Buffer
}

func (w *promptWriter) section(title, body string) {
	body = strings.TrimRight(body, "\n")
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(w, "[%s]\n%s\n\n", title, body)
}

// fieldLines renders "- name (type, required|optional): description".
func fieldLines(fields []PromptField) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		presence := "optional"
		if f.Required {
			presence = "required"
		}
		line := fmt.Sprintf("- %s (%s, %s)", name, f.Type, presence)
		if f.Description != "" {
			line += ": " + f.Description
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// bullets renders non-blank items as "- item", or "1. item" when numbered.
func bullets(items []string, numbered bool) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if numbered {
			item = fmt.Sprintf("%d. %s", len(lines)+1, item)
		} else {
			item = "- " + item
		}
		lines = append(lines, item)
	}
	return strings.Join(lines, "\n")
}

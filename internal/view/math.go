package view

import (
	"html/template"
	"regexp"
	"strings"
)

const noInfo = "Không có thông tin"

var (
	// Longer commands come first so \leftarrow is not read as \le.
	reMathCommand = regexp.MustCompile(`\\(leftarrow|rightarrow|infty|approx|times|cdot|le|ge|ne|in)`)
	reFrac        = regexp.MustCompile(`\\frac\{([^}]+)\}\{([^}]+)\}`)

	mathSymbols = map[string]string{
		"le":         "≤",
		"ge":         "≥",
		"ne":         "≠",
		"cdot":       "·",
		"times":      "×",
		"approx":     "≈",
		"in":         "∈",
		"infty":      "∞",
		"rightarrow": "→",
		"leftarrow":  "←",
	}
)

// ReplaceMathCommands substitutes the supported LaTeX-like commands with
// their symbols and rewrites \frac{a}{b} as (a/b).
func ReplaceMathCommands(text string) string {
	text = reFrac.ReplaceAllString(text, "($1/$2)")
	return reMathCommand.ReplaceAllStringFunc(text, func(m string) string {
		return mathSymbols[m[1:]]
	})
}

// RenderMath renders free text with inline $...$ math as escaped HTML.
// Odd segments between dollar signs become math spans; inside them every
// caret starts a superscript. Empty text renders a muted placeholder.
func RenderMath(text string) template.HTML {
	if text == "" {
		return template.HTML(`<span class="muted">` + noInfo + `</span>`)
	}
	segments := strings.Split(ReplaceMathCommands(text), "$")

	var b strings.Builder
	for i, seg := range segments {
		if i%2 == 0 {
			b.WriteString(template.HTMLEscapeString(seg))
			continue
		}
		b.WriteString(`<span class="math">`)
		parts := strings.Split(seg, "^")
		b.WriteString(template.HTMLEscapeString(parts[0]))
		for _, sup := range parts[1:] {
			b.WriteString("<sup>")
			b.WriteString(template.HTMLEscapeString(sup))
			b.WriteString("</sup>")
		}
		b.WriteString(`</span>`)
	}
	return template.HTML(b.String())
}

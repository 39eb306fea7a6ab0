package llmtool

import (
	"bytes"
	"encoding/json"
	"strings"
)

// formatJSON renders v as indented JSON without HTML escaping, so
// constraints such as "1 <= n" reach the model unchanged.
func formatJSON(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// fenceCode wraps code in a plain fenced block for prompt inclusion.
func fenceCode(code string) string {
	return "```\n" + strings.TrimRight(code, "\n") + "\n```"
}

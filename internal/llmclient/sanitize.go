package llmclient

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	redactedMedia = "[REDACTED media]"
	maxLoggedText = 2048
)

var reDataURL = regexp.MustCompile(`(?i)\bdata:(image|video|audio)/[a-z0-9+.-]+;base64,[a-z0-9+/=\r\n]+`)

// scrubText replaces inline media payloads (statements pasted as data URLs)
// and truncates what is left for the log.
func scrubText(s string) string {
	s = reDataURL.ReplaceAllString(s, redactedMedia)
	if len(s) <= maxLoggedText {
		return s
	}
	return strings.ToValidUTF8(s[:maxLoggedText], "") + fmt.Sprintf("...(%d bytes)", len(s))
}

// describeParts is the log view of a request. Image bytes never reach it.
func describeParts(req Request) []any {
	out := make([]any, 0, len(req.Texts)+2)
	out = append(out, map[string]any{"text": scrubText(req.Prompt)})
	for _, t := range req.Texts {
		out = append(out, map[string]any{"text": scrubText(t)})
	}
	if req.HasImage() {
		out = append(out, map[string]any{
			"mimeType": req.Image.MIMEType,
			"bytes":    len(req.Image.Data),
			"data":     redactedMedia,
		})
	}
	return out
}

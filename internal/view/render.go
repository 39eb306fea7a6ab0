// Package view renders the three panels of the assistant as server-side
// HTML. The page is rendered once; afterwards only the result panels are
// re-rendered and pushed to the browser on every state change.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"cppolygon/internal/session"
	"cppolygon/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

const (
	fallbackTitle  = "Bài Toán Chưa Có Tên"
	fallbackFormat = "Chưa xác định"
	fallbackLimit  = "N/A"
	noEdgeCases    = "Chưa có phân tích."
)

// Panel names, also the element ids the script replaces.
const (
	PanelSpec  = "spec"
	PanelTests = "tests"
	PanelHunt  = "hunt"
)

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("view").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// MustNew panics when the embedded templates do not parse.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

type strategyOption struct {
	Key   string
	Label string
}

type pageData struct {
	Snap         session.Snapshot
	Panels       map[string]template.HTML
	Strategies   []strategyOption
	DefaultCount int
	MinCount     int
	MaxCount     int
}

// Page writes the full document for snap.
func (r *Renderer) Page(w io.Writer, snap session.Snapshot) error {
	panels, err := r.Panels(snap)
	if err != nil {
		return err
	}
	data := pageData{
		Snap:         snap,
		Panels:       make(map[string]template.HTML, len(panels)),
		DefaultCount: types.DefaultTestCount,
		MinCount:     types.MinTestCount,
		MaxCount:     types.MaxTestCount,
	}
	for name, html := range panels {
		data.Panels[name] = template.HTML(html)
	}
	for _, s := range types.Strategies() {
		data.Strategies = append(data.Strategies, strategyOption{Key: s.Key(), Label: string(s)})
	}
	return r.tmpl.ExecuteTemplate(w, "page", data)
}

// Panels renders the state-dependent panels keyed by panel name.
func (r *Renderer) Panels(snap session.Snapshot) (map[string]string, error) {
	out := make(map[string]string, 3)
	for _, name := range []string{PanelSpec, PanelTests, PanelHunt} {
		var buf bytes.Buffer
		if err := r.tmpl.ExecuteTemplate(&buf, name, snap); err != nil {
			return nil, fmt.Errorf("view: render %s: %w", name, err)
		}
		out[name] = buf.String()
	}
	return out, nil
}

// Static serves the embedded script and stylesheet under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

var funcs = template.FuncMap{
	"math":       RenderMath,
	"or_default": orDefault,
	"testNumber": func(total, index int) int { return total - index },
	"confidenceClass": func(c types.ConfidenceLevel) string {
		switch c {
		case types.ConfidenceHigh:
			return "conf-high"
		case types.ConfidenceMedium:
			return "conf-medium"
		default:
			return "conf-low"
		}
	},
	"confidenceLabel": func(c types.ConfidenceLevel) string {
		if c == types.ConfidenceHigh {
			return "Độ tin cậy cao"
		}
		return "Cần kiểm tra lại"
	},
	"fallbackTitle":  func() string { return fallbackTitle },
	"fallbackFormat": func() string { return fallbackFormat },
	"fallbackLimit":  func() string { return fallbackLimit },
	"noEdgeCases":    func() string { return noEdgeCases },
}

func orDefault(fallback, v string) string {
	if v == "" {
		return fallback
	}
	return v
}

// StateMessage is pushed to the browser after every state change.
type StateMessage struct {
	Type    string            `json:"type"`
	Version uint64            `json:"version"`
	HasSpec bool              `json:"hasSpec"`
	Tool    session.Tool      `json:"tool"`
	Busy    session.Busy      `json:"busy"`
	Panels  map[string]string `json:"panels"`
	Notice  *session.Notice   `json:"notice,omitempty"`
}

// State renders snap into a StateMessage.
func (r *Renderer) State(snap session.Snapshot) (StateMessage, error) {
	panels, err := r.Panels(snap)
	if err != nil {
		return StateMessage{}, err
	}
	return StateMessage{
		Type:    "state",
		Version: snap.Version,
		HasSpec: snap.HasSpec(),
		Tool:    snap.Tool,
		Busy:    snap.Busy,
		Panels:  panels,
		Notice:  snap.Notice,
	}, nil
}

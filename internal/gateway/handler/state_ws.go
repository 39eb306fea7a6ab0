package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cppolygon/internal/gateway/middleware"
	"cppolygon/internal/view"
)

const (
	stateWSWriteWait = 10 * time.Second
	stateWSPongWait  = 60 * time.Second
	stateWSPingEvery = (stateWSPongWait * 9) / 10
)

var stateWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type stateWSInbound struct {
	Type string `json:"type"`
}

type stateWSControl struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// StateStream pushes re-rendered panels to the browser on every change of
// the caller's session.
type StateStream struct {
	view *view.Renderer
	log  *zap.Logger
}

func NewStateStream(r *view.Renderer, log *zap.Logger) *StateStream {
	if log == nil {
		log = zap.NewNop()
	}
	return &StateStream{view: r, log: log.Named("ws")}
}

func (h *StateStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st, ok := middleware.SessionFrom(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	conn, err := stateWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := h.log.With(zap.String("session", st.ID()))

	if err := conn.SetReadDeadline(time.Now().Add(stateWSPongWait)); err != nil {
		log.Debug("set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(stateWSPongWait))
	})

	writeCh := make(chan any, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		ticker := time.NewTicker(stateWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(stateWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(stateWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		for snap := range st.Subscribe(ctx) {
			msg, err := h.view.State(snap)
			if err != nil {
				log.Error("render state", zap.Error(err))
				pushStateWS(writeCh, stateWSControl{Type: "error", Code: "internal", Message: "render failed"})
				continue
			}
			pushStateWS(writeCh, msg)
		}
	}()

	for {
		var in stateWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			break
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushStateWS(writeCh, stateWSControl{Type: "pong"})
		default:
			pushStateWS(writeCh, stateWSControl{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "unsupported type: " + in.Type,
			})
		}
	}
	cancel()
	<-writerDone
	<-renderDone
}

// pushStateWS enqueues out, dropping the oldest queued message when the
// writer lags. Every state message is a full snapshot, so only the newest
// one matters.
func pushStateWS(writeCh chan any, out any) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}

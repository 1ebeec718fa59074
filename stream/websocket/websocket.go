// Package websocket serves chats over WebSocket connections.
//
// Each connection owns one session. The client sends {"message": "..."}
// frames; for every message the server writes the chat's StreamEvents as
// JSON frames, ending with the done event. Closing the connection cancels
// the running chat.
package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/logging"
	"github.com/hupe1980/appforge/stream"
)

// SessionHeader carries the session id in the handshake response.
const SessionHeader = "X-Appforge-Session"

// Chatter is the part of engine.Engine the handler drives.
type Chatter interface {
	Chat(ctx context.Context, message string) <-chan core.StreamEvent
	SessionID() string
}

// ClientMessage is the frame a client sends to start a chat.
type ClientMessage struct {
	Message string `json:"message"`
}

// Options configures a Handler.
type Options struct {
	Logger logging.Logger
	// Sinks returns the sinks every event of sessionID is mirrored to.
	Sinks func(sessionID string) []stream.Sink
	// WriteTimeout bounds writing one frame.
	WriteTimeout time.Duration
	// CheckOrigin overrides the upgrader's origin check.
	CheckOrigin func(r *http.Request) bool
}

// Handler is an http.Handler upgrading requests to chat connections.
type Handler struct {
	newSession func(r *http.Request) (Chatter, error)
	upgrader   websocket.Upgrader
	opts       Options
}

// NewHandler creates a Handler. newSession is called once per connection.
func NewHandler(newSession func(r *http.Request) (Chatter, error), optFns ...func(o *Options)) *Handler {
	opts := Options{
		Logger:       logging.NoOpLogger{},
		WriteTimeout: 10 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Handler{
		newSession: newSession,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
		opts: opts,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	chatter, err := h.newSession(r)
	if err != nil {
		h.opts.Logger.Error("websocket.session.error", "error", err.Error())
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	sid := chatter.SessionID()

	conn, err := h.upgrader.Upgrade(w, r, http.Header{SessionHeader: []string{sid}})
	if err != nil {
		h.opts.Logger.Warn("websocket.upgrade.error", "session_id", sid, "error", err.Error())
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	msgs := make(chan ClientMessage)
	go func() {
		defer cancel()
		defer close(msgs)
		for {
			var m ClientMessage
			if err := conn.ReadJSON(&m); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.opts.Logger.Debug("websocket.read.error", "session_id", sid, "error", err.Error())
				}
				return
			}
			select {
			case msgs <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	h.opts.Logger.Info("websocket.session.open", "session_id", sid)

	var sinks []stream.Sink
	if h.opts.Sinks != nil {
		sinks = h.opts.Sinks(sid)
	}

	for m := range msgs {
		if m.Message == "" {
			if err := h.write(conn, core.NewErrorEvent("", "empty message")); err != nil {
				return
			}
			continue
		}

		events := chatter.Chat(ctx, m.Message)
		if len(sinks) > 0 {
			events = stream.Tee(ctx, events, sinks, func(o *stream.TeeOptions) { o.Logger = h.opts.Logger })
		}

		failed := false
		for ev := range events {
			if failed {
				continue
			}
			if err := h.write(conn, ev); err != nil {
				h.opts.Logger.Warn("websocket.write.error", "session_id", sid, "error", err.Error())
				failed = true
				cancel()
			}
		}
		if failed {
			return
		}
	}

	h.opts.Logger.Info("websocket.session.closed", "session_id", sid)
}

func (h *Handler) write(conn *websocket.Conn, ev core.StreamEvent) error {
	if h.opts.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout)); err != nil {
			return err
		}
	}
	return conn.WriteJSON(ev)
}

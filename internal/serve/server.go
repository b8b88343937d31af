package serve

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"
)

const (
	writeTimeout  = 5 * time.Second
	pingInterval  = 20 * time.Second
	maxFrameBytes = 64 * 1024
)

// envelope is the JSON message shape exchanged with a viewer, mirroring
// the relay's typed-message convention.
type envelope struct {
	Type    string `json:"type"`
	Payload []byte `json:"payload,omitempty"`
	Cols    int    `json:"cols,omitempty"`
	Rows    int    `json:"rows,omitempty"`
}

const (
	msgSnapshot = "snapshot"
	msgFrame    = "frame"
	msgResize   = "resize"
	msgPing     = "ping"
	msgPong     = "pong"
)

// Server exposes a Hub over HTTP/WebSocket for spec §4.N serve mode.
type Server struct {
	Hub    *Hub
	Secret []byte
	RecKey string
	Log    *slog.Logger

	// RateLimit bounds how many live frames per second are sent to a single
	// viewer; frames over the limit are dropped for that viewer. Snapshot and
	// ping messages are not counted.
	RateLimit rate.Limit
	RateBurst int
}

// NewServer builds a Server ready to mount at an HTTP route.
func NewServer(hub *Hub, secret []byte, recordingKey string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		Hub:       hub,
		Secret:    secret,
		RecKey:    recordingKey,
		Log:       log,
		RateLimit: 5,
		RateBurst: 10,
	}
}

// ServeHTTP authenticates the viewer's token query parameter (only when
// Secret is non-empty; with an empty Secret every viewer is accepted),
// upgrades the connection, and streams frames until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if len(s.Secret) > 0 {
		if _, err := ValidateViewerToken(s.Secret, token, s.RecKey); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: false,
	})
	if err != nil {
		s.Log.Warn("serve: accept failed", "error", err)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer conn.Close(websocket.StatusNormalClosure, "done")

	viewer, snapshot := s.Hub.Join()
	defer s.Hub.Leave(viewer)

	if err := s.writeEnvelope(ctx, conn, envelope{Type: msgSnapshot, Payload: snapshot}); err != nil {
		return
	}

	go s.readLoop(ctx, conn, cancel)

	limiter := rate.NewLimiter(s.RateLimit, s.RateBurst)
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.writeEnvelope(ctx, conn, envelope{Type: msgPing}); err != nil {
				return
			}
		case frame, ok := <-viewer.send:
			if !ok {
				return
			}
			if !limiter.Allow() {
				continue
			}
			if err := s.writeEnvelope(ctx, conn, envelope{Type: msgFrame, Payload: frame}); err != nil {
				return
			}
		}
	}
}

// readLoop drains inbound messages (resize reports, pongs) until the
// connection closes, cancelling ctx to unblock the write loop.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			var closeErr websocket.CloseError
			if !errors.As(err, &closeErr) && ctx.Err() == nil {
				s.Log.Debug("serve: read error", "error", err)
			}
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case msgResize:
			if env.Cols > 0 && env.Rows > 0 {
				s.Hub.Resize(env.Cols, env.Rows)
			}
		case msgPong:
			// liveness only, nothing to do
		}
	}
}

func (s *Server) writeEnvelope(ctx context.Context, conn *websocket.Conn, env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, data)
}

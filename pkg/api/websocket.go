package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/gasket"
	"github.com/matzehuels/gasket/pkg/observability"
	"github.com/matzehuels/gasket/pkg/pipeline"
)

const writeWait = 10 * time.Second

// Stream actions sent by the client.
const (
	ActionStart  = "start"
	ActionCancel = "cancel"
)

// Stream message types sent by the server.
const (
	MessageSession   = "session"
	MessageProgress  = "progress"
	MessageComplete  = "complete"
	MessageCancelled = "cancelled"
	MessageError     = "error"
)

// StreamRequest is a client message on the generation stream.
type StreamRequest struct {
	Action string `json:"action"`
	GenerateRequest
}

// SessionMessage opens every stream.
type SessionMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// ProgressMessage carries one batch of circles.
type ProgressMessage struct {
	Type         string        `json:"type"`
	Generation   uint32        `json:"generation"`
	CirclesCount int           `json:"circles_count"`
	Circles      []gasket.View `json:"circles"`
}

// CompleteMessage ends a successful run.
type CompleteMessage struct {
	Type         string `json:"type"`
	GasketID     int64  `json:"gasket_id"`
	TotalCircles int    `json:"total_circles"`
	Source       string `json:"source"`
	DurationMS   int64  `json:"duration_ms"`
}

// ErrorMessage reports a failed run or a bad request.
type ErrorMessage struct {
	Type    string      `json:"type"`
	Code    errors.Code `json:"code,omitempty"`
	Message string      `json:"message"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
}

// streamConn serializes writes; gorilla connections allow one concurrent
// writer.
type streamConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *streamConn) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

// handleGenerateStream runs generations requested over a WebSocket. One
// goroutine reads client messages; runs execute one at a time on the
// handler goroutine. A "cancel" message stops the current run, and a
// closed connection stops everything.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.opts.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := uuid.NewString()
	logger := s.opts.Logger.With("session", session[:8])
	conn := &streamConn{ws: ws}

	var (
		total  int
		runErr error
	)
	observability.API().OnStreamOpen(ctx, session)
	defer func() { observability.API().OnStreamClose(ctx, session, total, runErr) }()
	logger.Debug("stream opened")

	if err := conn.send(SessionMessage{Type: MessageSession, SessionID: session}); err != nil {
		return
	}

	var (
		mu        sync.Mutex
		cancelRun context.CancelFunc
	)
	requests := make(chan StreamRequest)
	go func() {
		defer close(requests)
		defer cancel()
		for {
			var req StreamRequest
			if err := ws.ReadJSON(&req); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug("stream read ended", "error", err)
				}
				return
			}
			if req.Action == ActionCancel {
				mu.Lock()
				if cancelRun != nil {
					cancelRun()
				}
				mu.Unlock()
				continue
			}
			select {
			case requests <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	for req := range requests {
		if req.Action != ActionStart {
			conn.send(ErrorMessage{Type: MessageError, Code: errors.ErrCodeInvalidInput, Message: "unknown action " + req.Action})
			continue
		}
		if err := s.check(&req.GenerateRequest); err != nil {
			conn.send(errorMessage(err))
			continue
		}

		runCtx, stop := context.WithCancel(ctx)
		mu.Lock()
		cancelRun = stop
		mu.Unlock()

		res, err := s.runner.Stream(runCtx, pipeline.Options{
			Curvatures: req.Curvatures,
			MaxDepth:   req.MaxDepth,
			Refresh:    req.Refresh,
			DepthLimit: s.opts.DepthLimit,
			Tolerance:  s.opts.Tolerance,
			Logger:     logger,
		}, func(p pipeline.Progress) error {
			total += len(p.Circles)
			return conn.send(ProgressMessage{
				Type:         MessageProgress,
				Generation:   p.Generation,
				CirclesCount: p.Total,
				Circles:      gasket.Views(p.Circles),
			})
		})
		stop()

		switch {
		case ctx.Err() != nil:
			return
		case stderrors.Is(err, context.Canceled):
			conn.send(ErrorMessage{Type: MessageCancelled, Message: "generation cancelled"})
		case err != nil:
			runErr = err
			logger.Debug("stream run failed", "error", err)
			conn.send(errorMessage(err))
		default:
			source := SourceGenerated
			if res.StoreHit {
				source = SourceStore
			}
			conn.send(CompleteMessage{
				Type:         MessageComplete,
				GasketID:     res.Gasket.ID,
				TotalCircles: len(res.Circles),
				Source:       source,
				DurationMS:   res.Duration.Milliseconds(),
			})
		}
	}
}

func errorMessage(err error) ErrorMessage {
	code := errors.GetCode(err)
	msg := errors.UserMessage(err)
	if statusOf(err) >= 500 {
		msg = "internal error"
	}
	return ErrorMessage{Type: MessageError, Code: code, Message: msg}
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mishel123hanna/sign-language/internal/ai"
	"github.com/mishel123hanna/sign-language/internal/authn"
	"github.com/mishel123hanna/sign-language/internal/config"
	"github.com/mishel123hanna/sign-language/internal/stream"
)

const (
	frameContentType = "image/jpeg"
	writeWait        = 10 * time.Second
)

// FrameTranslator turns one video frame into streamed transcript chunks.
type FrameTranslator interface {
	StreamFrame(ctx context.Context, userID int64, data []byte, contentType string, yield func(ai.StreamChunk) error) error
}

type controlMessage struct {
	Type string `json:"type"`
}

type errorMessage struct {
	Type    string         `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// StreamHandler serves the live sign to text websocket.
type StreamHandler struct {
	Authenticator *authn.Authenticator
	Translator    FrameTranslator
	Hub           *stream.Hub

	maxFrameBytes int64
	frameInterval time.Duration
	upgrader      websocket.Upgrader
	logger        *zap.Logger
}

// NewStreamHandler creates the websocket handler.
func NewStreamHandler(authenticator *authn.Authenticator, translator FrameTranslator, hub *stream.Hub, cfg config.Config, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{
		Authenticator: authenticator,
		Translator:    translator,
		Hub:           hub,
		maxFrameBytes: cfg.WSMaxFrameBytes,
		frameInterval: cfg.WSFrameInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Sockets are gated by the bearer token, not by Origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Translate upgrades the request, authenticates it and runs the frame loop.
func (h *StreamHandler) Translate(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already answered with an HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	sock := &socket{conn: conn}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	claims, err := h.Authenticator.Authenticate(ctx, c.GetHeader("Authorization"), authn.RequireAccessWithUser)
	if err != nil {
		reason, ok := authn.RejectionReason(err)
		if !ok {
			reason = authn.CredentialInvalid
		}
		h.logger.Info("websocket rejected", zap.String("reason", string(reason)), zap.String("remote", c.ClientIP()))
		_ = sock.CloseWith(websocket.ClosePolicyViolation, reason.Description())
		return
	}

	userID := claims.Subject.UserID
	h.Hub.Register(userID, sock)
	defer func() {
		h.Hub.Unregister(userID, sock)
		_ = sock.CloseWith(websocket.CloseNormalClosure, "")
	}()

	h.logger.Info("websocket connected", zap.Int64("user_id", userID))
	h.serve(ctx, sock, userID)
	h.logger.Info("websocket disconnected", zap.Int64("user_id", userID))
}

func (h *StreamHandler) serve(ctx context.Context, sock *socket, userID int64) {
	if h.maxFrameBytes > 0 {
		sock.conn.SetReadLimit(h.maxFrameBytes)
	}
	limit := rate.Inf
	if h.frameInterval > 0 {
		limit = rate.Every(h.frameInterval)
	}
	pacer := rate.NewLimiter(limit, 1)

	for {
		kind, data, err := sock.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, stream.CloseReplaced) {
				h.logger.Warn("websocket read", zap.Int64("user_id", userID), zap.Error(err))
			}
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			if err := pacer.Wait(ctx); err != nil {
				return
			}
			if err := h.translateFrame(ctx, sock, userID, data); err != nil {
				h.logger.Warn("websocket write", zap.Int64("user_id", userID), zap.Error(err))
				return
			}
		case websocket.TextMessage:
			if err := h.control(sock, data); err != nil {
				return
			}
		}
	}
}

// translateFrame returns an error only when the socket can no longer be written.
func (h *StreamHandler) translateFrame(ctx context.Context, sock *socket, userID int64, data []byte) error {
	var writeErr error
	err := h.Translator.StreamFrame(ctx, userID, data, frameContentType, func(chunk ai.StreamChunk) error {
		if err := sock.writeJSON(chunk); err != nil {
			writeErr = err
			return err
		}
		return nil
	})
	if writeErr != nil {
		return writeErr
	}
	if err == nil {
		return nil
	}

	msg := errorMessage{Type: "error", Code: "STREAM_FAILED", Message: "Frame could not be translated."}
	var clientErr *ai.ClientError
	if errors.As(err, &clientErr) {
		msg.Code, msg.Message, msg.Details = clientErr.Code, clientErr.Message, clientErr.Details
	}
	h.logger.Warn("frame translation failed", zap.Int64("user_id", userID), zap.String("code", msg.Code), zap.Error(err))
	return sock.writeJSON(msg)
}

func (h *StreamHandler) control(sock *socket, data []byte) error {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return sock.writeJSON(errorMessage{Type: "error", Code: "INVALID_MESSAGE", Message: "Control messages must be JSON."})
	}
	switch msg.Type {
	case "ping":
		return sock.writeJSON(controlMessage{Type: "pong"})
	default:
		return sock.writeJSON(errorMessage{
			Type:    "error",
			Code:    "UNKNOWN_MESSAGE",
			Message: "Unsupported control message.",
			Details: map[string]any{"type": msg.Type},
		})
	}
}

// Docs describes the websocket protocol.
func (h *StreamHandler) Docs(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(streamDocs))
}

// socket serialises writes and closes exactly once.
type socket struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (s *socket) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

// CloseWith sends a close frame and releases the connection.
func (s *socket) CloseWith(code int, reason string) error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

const streamDocs = `<!DOCTYPE html>
<html>
<head><title>Sign to text websocket</title></head>
<body>
<h1>Sign to text websocket</h1>
<p>Connect to <code>/api/v1/ws/translate</code> with an <code>Authorization: Bearer &lt;access token&gt;</code> header.
Connections without a valid access token are closed with code 1008.</p>
<h2>Client messages</h2>
<ul>
<li>Binary message: one JPEG frame.</li>
<li>Text message <code>{"type":"ping"}</code>: answered with <code>{"type":"pong"}</code>.</li>
</ul>
<h2>Server messages</h2>
<ul>
<li><code>{"type":"transcript_chunk","request_id","frame_id","token","confidence","start_ms","end_ms","transcript","is_final","timing_info"}</code></li>
<li><code>{"type":"error","code","message","details"}</code>: the connection stays open.</li>
</ul>
<p>A newer connection for the same user closes the older one with code 4000.</p>
</body>
</html>
`

package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"github.com/kbukum/streamdiar/diarization"
	"github.com/kbukum/streamdiar/errors"
	"github.com/kbukum/streamdiar/logger"
)

// Stream message types.
const (
	MessageChunk  = "chunk"
	MessageReset  = "reset"
	MessageResult = "result"
	MessageError  = "error"
)

// StreamRequest is a client message on the session stream.
type StreamRequest struct {
	Type       string    `json:"type"`
	Start      float64   `json:"start,omitempty"`
	SampleRate int       `json:"sample_rate,omitempty"`
	Samples    []float32 `json:"samples,omitempty"`
}

// StreamResponse is a server message on the session stream. Result fields
// are set for "result", Code and Message for "error"; a "reset" reply
// acknowledges a reset.
type StreamResponse struct {
	Type      string           `json:"type"`
	Seq       int              `json:"seq"`
	Result    *ResultPayload   `json:"result,omitempty"`
	Code      errors.ErrorCode `json:"code,omitempty"`
	Message   string           `json:"message,omitempty"`
	Retryable bool             `json:"retryable,omitempty"`
}

// Stream handles GET /v1/sessions/:id/stream. Each chunk message is
// processed as a batch of one and answered in order.
func (h *Handler) Stream(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}

	// Server read/write timeouts are meant for plain requests.
	rc := http.NewResponseController(c.Writer)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.allowOrigins,
	})
	if err != nil {
		h.log.WithError(err).Warn("websocket accept failed", logger.Fields(logger.FieldSessionID, s.ID()))
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
	conn.SetReadLimit(h.maxMessage)

	log := h.log.WithFields(logger.Fields(logger.FieldSessionID, s.ID()))
	log.Info("stream connected")

	ctx := c.Request.Context()
	for seq := 0; ; seq++ {
		var msg StreamRequest
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				log.Debug("stream read ended", logger.Fields("error", err.Error()))
			}
			log.Info("stream closed", logger.Fields(logger.FieldChunks, seq))
			return
		}
		if err := wsjson.Write(ctx, conn, h.handleMessage(ctx, s, seq, msg)); err != nil {
			log.WithError(err).Warn("stream write failed")
			return
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, s *Session, seq int, msg StreamRequest) StreamResponse {
	switch msg.Type {
	case MessageChunk:
		results, err := s.Process(ctx, []diarization.Chunk{{
			Start:      msg.Start,
			SampleRate: msg.SampleRate,
			Samples:    msg.Samples,
		}})
		if err != nil {
			return errorMessage(seq, err)
		}
		p := toPayload(results[0])
		return StreamResponse{Type: MessageResult, Seq: seq, Result: &p}
	case MessageReset:
		s.Reset()
		return StreamResponse{Type: MessageReset, Seq: seq}
	default:
		return errorMessage(seq, errors.InvalidInput("type", `message type must be "chunk" or "reset"`))
	}
}

func errorMessage(seq int, err error) StreamResponse {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	return StreamResponse{
		Type:      MessageError,
		Seq:       seq,
		Code:      appErr.Code,
		Message:   appErr.Message,
		Retryable: appErr.Retryable,
	}
}

// originPatterns turns CORS origins such as "https://app.example.com" into
// the host patterns the websocket handshake matches against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		if o = strings.TrimSuffix(o, "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}

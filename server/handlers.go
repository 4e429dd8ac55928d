package server

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/streamdiar/diarization"
	"github.com/kbukum/streamdiar/errors"
	"github.com/kbukum/streamdiar/logger"
	"github.com/kbukum/streamdiar/provider"
	"github.com/kbukum/streamdiar/timeline"
)

// HealthFunc reports the health of every oracle backend by name.
type HealthFunc func(ctx context.Context) map[string]provider.HealthStatus

// ChunkPayload is one chunk as sent by clients.
type ChunkPayload struct {
	Start      float64   `json:"start"`
	SampleRate int       `json:"sample_rate,omitempty"`
	Samples    []float32 `json:"samples" binding:"required"`
}

// ProcessRequest is the body of POST /v1/sessions/:id/chunks.
type ProcessRequest struct {
	Chunks []ChunkPayload `json:"chunks" binding:"required,min=1,dive"`
}

// WaveformPayload is the aggregated audio of one result.
type WaveformPayload struct {
	Start   float64   `json:"start"`
	End     float64   `json:"end"`
	Samples []float32 `json:"samples"`
}

// ResultPayload is the wire form of one diarization result.
type ResultPayload struct {
	Intervals []timeline.Interval `json:"intervals"`
	Waveform  WaveformPayload     `json:"waveform"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   provider.Status                  `json:"status"`
	Service  string                           `json:"service"`
	Sessions int                              `json:"sessions"`
	Oracles  map[string]provider.HealthStatus `json:"oracles"`
}

// Handler serves the session API.
type Handler struct {
	service      string
	sessions     *SessionManager
	health       HealthFunc
	maxMessage   int64
	allowOrigins []string
	log          *logger.Logger
}

// NewHandler creates the API handler. health may be nil.
func NewHandler(service string, sessions *SessionManager, health HealthFunc, cfg Config, log *logger.Logger) *Handler {
	return &Handler{
		service:      service,
		sessions:     sessions,
		health:       health,
		maxMessage:   cfg.MaxBodyBytes(),
		allowOrigins: originPatterns(cfg.CORS.AllowedOrigins),
		log:          log.WithComponent("api"),
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	v1 := r.Group("/v1/sessions")
	v1.POST("", h.CreateSession)
	v1.GET("/:id", h.GetSession)
	v1.DELETE("/:id", h.DeleteSession)
	v1.POST("/:id/chunks", h.ProcessChunks)
	v1.POST("/:id/reset", h.ResetSession)
	v1.GET("/:id/stream", h.Stream)
}

// Health reports the service and oracle status. Any unavailable oracle
// turns the response into a 503.
func (h *Handler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:   provider.StatusHealthy,
		Service:  h.service,
		Sessions: h.sessions.Len(),
		Oracles:  map[string]provider.HealthStatus{},
	}
	if h.health != nil {
		resp.Oracles = h.health(c.Request.Context())
	}
	for _, st := range resp.Oracles {
		if st.Status > resp.Status {
			resp.Status = st.Status
		}
	}

	code := http.StatusOK
	if resp.Status == provider.StatusUnavailable {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

// CreateSession handles POST /v1/sessions.
func (h *Handler) CreateSession(c *gin.Context) {
	s, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondCreated(c, gin.H{"id": s.ID()})
}

// GetSession handles GET /v1/sessions/:id.
func (h *Handler) GetSession(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, s.Snapshot())
}

// DeleteSession handles DELETE /v1/sessions/:id.
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithError(c, err)
		return
	}
	RespondNoContent(c)
}

// ResetSession handles POST /v1/sessions/:id/reset.
func (h *Handler) ResetSession(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	s.Reset()
	RespondNoContent(c)
}

// ProcessChunks handles POST /v1/sessions/:id/chunks.
func (h *Handler) ProcessChunks(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}

	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, bindError(err))
		return
	}

	chunks := make([]diarization.Chunk, len(req.Chunks))
	for i, p := range req.Chunks {
		chunks[i] = p.Chunk()
	}
	results, err := s.Process(c.Request.Context(), chunks)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, toPayloads(results))
}

// Chunk converts the payload to a pipeline chunk.
func (p ChunkPayload) Chunk() diarization.Chunk {
	return diarization.Chunk{Start: p.Start, SampleRate: p.SampleRate, Samples: p.Samples}
}

func toPayloads(results []diarization.Result) []ResultPayload {
	out := make([]ResultPayload, len(results))
	for i, r := range results {
		out[i] = toPayload(r)
	}
	return out
}

func toPayload(r diarization.Result) ResultPayload {
	intervals := r.Annotation.Intervals
	if intervals == nil {
		intervals = []timeline.Interval{}
	}
	extent := r.Waveform.Extent()
	return ResultPayload{
		Intervals: intervals,
		Waveform: WaveformPayload{
			Start:   extent.Start,
			End:     extent.End,
			Samples: r.Waveform.Samples(),
		},
	}
}

func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.InvalidInput("body", "request body too large").
			WithDetail("limit", tooLarge.Limit)
	}
	return errors.InvalidInput("chunks", err.Error())
}

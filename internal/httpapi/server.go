package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voicedesk/voicedesk/internal/audiostore"
	"github.com/voicedesk/voicedesk/internal/chat"
	"github.com/voicedesk/voicedesk/internal/config"
	"github.com/voicedesk/voicedesk/internal/observability"
	"github.com/voicedesk/voicedesk/internal/pipeline"
	"github.com/voicedesk/voicedesk/internal/protocol"
)

// fallbackReply is sent to the widget when answer generation fails.
const fallbackReply = "응답을 생성할 수 없습니다."

// synthesisFailedMessage flags a partial (text-only) pipeline result.
const synthesisFailedMessage = "음성 파일 생성에 실패했습니다."

// Pipeline is the orchestration surface the server drives.
type Pipeline interface {
	Answer(ctx context.Context, question, callUUID string) (pipeline.Result, error)
	Respond(ctx context.Context, sessionID, message string) (string, error)
}

type Server struct {
	cfg      config.Config
	pipe     Pipeline
	sessions *chat.Manager
	replies  *chat.ReplyCache
	audio    *audiostore.Dir
	metrics  *observability.Metrics
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, pipe Pipeline, sessions *chat.Manager, audio *audiostore.Dir, metrics *observability.Metrics, logger zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		pipe:     pipe,
		sessions: sessions,
		replies:  chat.NewReplyCache(cfg.ChatReplyCacheSize),
		audio:    audio,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections unless explicitly opened
				// up; non-browser clients that omit Origin are allowed.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/generate_response", s.handleGenerateResponse)
	r.Get("/audio/{filename}", s.handleServeAudio)
	r.Get("/ws/chatbot", s.handleChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ready",
		"chat_sessions": s.sessions.ActiveCount(),
	})
}

type generateRequest struct {
	Text     string `json:"text"`
	CallUUID string `json:"call_uuid"`
}

type generateResponse struct {
	Response string `json:"response"`
	AudioURL string `json:"audio_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleGenerateResponse(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "missing_text", "field text is required")
		return
	}

	result, err := s.pipe.Answer(r.Context(), req.Text, req.CallUUID)
	if err != nil {
		s.logger.Error().Err(err).Str("call_uuid", req.CallUUID).Msg("answer pipeline failed")
		respondError(w, http.StatusInternalServerError, "pipeline_failed", err.Error())
		return
	}

	if result.Partial() {
		respondJSON(w, http.StatusInternalServerError, generateResponse{
			Response: result.Answer,
			Error:    synthesisFailedMessage,
		})
		return
	}

	respondJSON(w, http.StatusOK, generateResponse{
		Response: result.Answer,
		AudioURL: result.AudioURL,
	})
}

func (s *Server) handleServeAudio(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	f, err := s.audio.Open(name)
	switch {
	case errors.Is(err, audiostore.ErrInvalidName):
		respondError(w, http.StatusBadRequest, "invalid_filename", "file name is not allowed")
		return
	case errors.Is(err, audiostore.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "audio file not found")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "audio_open_failed", err.Error())
		return
	}
	defer f.Close()

	if s.metrics != nil {
		s.metrics.AudioArtifacts.WithLabelValues("served").Inc()
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = io.Copy(w, f)
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sessionID := s.sessions.Connect(conn)
	defer s.sessions.Disconnect(sessionID)

	if s.metrics != nil {
		s.metrics.ChatEvents.WithLabelValues("connected").Inc()
		s.metrics.ActiveChatSessions.Set(float64(s.sessions.ActiveCount()))
		defer func() {
			s.metrics.ChatEvents.WithLabelValues("disconnected").Inc()
			s.metrics.ActiveChatSessions.Set(float64(s.sessions.ActiveCount()))
		}()
	}

	logger := s.logger.With().Str("chat_session", sessionID).Logger()
	conn.SetReadLimit(64 << 10)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		msg, err := protocol.ParseChatMessage(data)
		if err != nil {
			logger.Debug().Err(err).Msg("dropping invalid chat frame")
			continue
		}

		reply := s.chatReply(r.Context(), sessionID, msg.Message)
		if err := s.sessions.Send(sessionID, protocol.NewBotReply(reply)); err != nil {
			logger.Debug().Err(err).Msg("chat reply write failed")
			return
		}
	}
}

func (s *Server) chatReply(ctx context.Context, sessionID, message string) string {
	if cached, ok := s.replies.Get(message); ok {
		if s.metrics != nil {
			s.metrics.ChatEvents.WithLabelValues("cache_hit").Inc()
		}
		return cached
	}

	ctx, cancel := context.WithTimeout(ctx, s.chatTimeout())
	defer cancel()

	answer, err := s.pipe.Respond(ctx, sessionID, message)
	if err != nil {
		s.logger.Error().Err(err).Str("chat_session", sessionID).Msg("chat answer generation failed")
		return fallbackReply
	}

	s.replies.Put(message, answer)
	return answer
}

func (s *Server) chatTimeout() time.Duration {
	if s.cfg.ChatResponseTimeout > 0 {
		return s.cfg.ChatResponseTimeout
	}
	return 45 * time.Second
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

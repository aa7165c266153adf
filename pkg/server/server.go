// Package server exposes the orchestrator over HTTP: the chat message
// endpoint, the WhatsApp webhook, health, and metrics.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/auth"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/observability"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/orchestrator"
)

// FlowCacheClearer is the admin surface for hot-reloading flow
// definitions.
type FlowCacheClearer interface {
	ClearFlowCache()
}

// Server hosts the HTTP surface.
type Server struct {
	router  chi.Router
	orch    *orchestrator.Orchestrator
	issuer  *auth.Issuer
	flows   FlowCacheClearer
	metrics *observability.Metrics
	verify  string
	dropped func() int64
	log     *slog.Logger
}

type Option func(*Server)

// WithJWTIssuer enables Bearer authentication on the web message route.
func WithJWTIssuer(issuer *auth.Issuer) Option {
	return func(s *Server) { s.issuer = issuer }
}

// WithFlowCacheClearer wires the admin flow-reload endpoint.
func WithFlowCacheClearer(f FlowCacheClearer) Option {
	return func(s *Server) { s.flows = f }
}

// WithWebhookVerifyToken sets the WhatsApp webhook verification token.
func WithWebhookVerifyToken(token string) Option {
	return func(s *Server) { s.verify = token }
}

// WithDropCounter exposes the background queue's drop count on /metrics.
func WithDropCounter(dropped func() int64) Option {
	return func(s *Server) { s.dropped = dropped }
}

func New(orch *orchestrator.Orchestrator, reg *prometheus.Registry, opts ...Option) *Server {
	s := &Server{
		orch: orch,
		log:  slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s.metrics = observability.NewMetrics(reg)
	if s.dropped != nil {
		s.metrics.TrackQueueDrops(s.dropped)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		if s.issuer != nil {
			r.With(s.issuer.Middleware).Post("/messages", s.handleMessage)
		} else {
			r.Post("/messages", s.handleMessage)
		}
		r.Post("/sessions", s.handleNewSession)
	})

	r.Post("/webhook/whatsapp", s.handleWhatsApp)
	r.Get("/webhook/whatsapp", s.handleWhatsAppVerify)

	if s.flows != nil {
		r.Post("/admin/flows/reload", s.handleFlowReload)
	}

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type messageRequest struct {
	SessionID             string         `json:"sessionId,omitempty"`
	Message               string         `json:"message"`
	Module                string         `json:"module,omitempty"`
	ImageURL              string         `json:"imageUrl,omitempty"`
	TestSession           map[string]any `json:"testSession,omitempty"`
	UserPreferenceContext map[string]any `json:"userPreferenceContext,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var in messageRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(in.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	participant := in.SessionID
	if verified, ok := auth.ParticipantFromContext(r.Context()); ok {
		participant = verified
	}
	participant = NormalizeParticipant(participant)

	reply, err := s.orch.ProcessMessage(r.Context(), &orchestrator.Request{
		ParticipantID:         participant,
		Message:               in.Message,
		Module:                in.Module,
		ImageURL:              in.ImageURL,
		TestSession:           in.TestSession,
		UserPreferenceContext: in.UserPreferenceContext,
	})
	if err != nil {
		s.log.Error("message processing failed", "participant", participant, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
		return
	}

	s.observe(reply, channelOf(participant))
	writeJSON(w, http.StatusOK, renderReply(reply))
}

// handleNewSession mints a web session id (and a JWT when auth is on).
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	participant := "web-" + uuid.NewString()
	out := map[string]any{"sessionId": participant}
	if s.issuer != nil {
		tok, err := s.issuer.Mint(participant)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token mint failed"})
			return
		}
		out["token"] = tok
	}
	writeJSON(w, http.StatusOK, out)
}

type whatsappPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
	Module  string `json:"module,omitempty"`
}

func (s *Server) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	if s.verify != "" && r.Header.Get("X-Webhook-Token") != s.verify {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "bad webhook token"})
		return
	}
	var in whatsappPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.From == "" || in.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from and message are required"})
		return
	}

	participant := NormalizeParticipant("whatsapp-" + strings.TrimPrefix(in.From, "+"))
	reply, err := s.orch.ProcessMessage(r.Context(), &orchestrator.Request{
		ParticipantID: participant,
		Message:       in.Message,
		Module:        in.Module,
	})
	if err != nil {
		s.log.Error("webhook processing failed", "participant", participant, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
		return
	}

	s.observe(reply, "whatsapp")
	writeJSON(w, http.StatusOK, renderReply(reply))
}

// handleWhatsAppVerify answers the provider's subscription challenge.
func (s *Server) handleWhatsAppVerify(w http.ResponseWriter, r *http.Request) {
	if s.verify != "" && r.URL.Query().Get("hub.verify_token") != s.verify {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	fmt.Fprint(w, r.URL.Query().Get("hub.challenge"))
}

func (s *Server) handleFlowReload(w http.ResponseWriter, r *http.Request) {
	s.flows.ClearFlowCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (s *Server) observe(reply *orchestrator.Reply, channel string) {
	intent := "unknown"
	if v, ok := reply.Metadata["intent"].(string); ok && v != "" {
		intent = v
	}
	s.metrics.MessagesTotal.WithLabelValues(intent).Inc()
	s.metrics.MessageDuration.WithLabelValues(channel).
		Observe(float64(reply.ExecutionTime) / 1000)
	if blocked, ok := reply.Metadata["content_blocked"].(bool); ok && blocked {
		reason, _ := reply.Metadata["reason"].(string)
		s.metrics.BlockedTotal.WithLabelValues(reason).Inc()
	}
	if escalated, ok := reply.Metadata["escalated"].(bool); ok && escalated {
		s.metrics.EscalationsTotal.Inc()
	}
	if target, ok := reply.Metadata["handoff_target"].(string); ok && target != "" {
		source, _ := reply.Metadata["handoff_source"].(string)
		s.metrics.HandoffsTotal.WithLabelValues(source, target).Inc()
	}
	if mode, ok := reply.Metadata["search_mode"].(string); ok && mode != "" {
		s.metrics.SearchTotal.WithLabelValues(mode).Inc()
	}
}

func channelOf(participant string) string {
	switch {
	case strings.HasPrefix(participant, "whatsapp-"):
		return "whatsapp"
	case strings.HasPrefix(participant, "test-"):
		return "test"
	default:
		return "web"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("response encode failed", "error", err)
	}
}

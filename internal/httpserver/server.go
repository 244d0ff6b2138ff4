// Package httpserver exposes the health, metrics and webhook endpoints.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"waha-chatwoot/internal/cache"
	"waha-chatwoot/internal/chatwoot"
	"waha-chatwoot/internal/consumers"
	"waha-chatwoot/internal/metrics"
	"waha-chatwoot/internal/queue"
	"waha-chatwoot/internal/repo"
)

// Dependencies exposes core dependencies to the webhook handlers.
type Dependencies struct {
	Store         repo.Store
	Queues        *queue.Queues
	Conversations *gocache.Cache
}

// Server wraps an http.Server with predefined routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	deps       Dependencies
	basePath   string
}

// New creates a new HTTP server listening on addr with health, metrics and
// webhook endpoints.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, deps Dependencies, basePath string) *Server {
	server := &Server{
		logger:   logger.With("component", "http"),
		metrics:  metricRegistry,
		deps:     deps,
		basePath: normaliseBasePath(basePath),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", server.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /webhooks/waha/{session}/{id}", server.handleWAHAWebhook)
	mux.HandleFunc("POST /webhooks/chatwoot/{session}/{id}", server.handleChatwootWebhook)
	mux.HandleFunc("DELETE /api/apps/{id}", server.handleDeleteApp)

	handler := mountWithBasePath(server.basePath, mux)

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if server.basePath != "" {
		server.logger.Info("http server configured with base path", "base_path", server.basePath)
	}

	return server
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// loadApp resolves the app behind a webhook URL. An unknown or disabled id,
// or a session mismatch, is a 404 so misconfigured webhooks stop retrying.
func (s *Server) loadApp(w http.ResponseWriter, r *http.Request) *repo.App {
	session := r.PathValue("session")
	id := r.PathValue("id")

	app, err := s.deps.Store.GetEnabledApp(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrAppNotFound) {
			http.NotFound(w, r)
			return nil
		}
		s.logger.Error("failed loading app", "app", id, "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return nil
	}
	if app.Session != session {
		http.NotFound(w, r)
		return nil
	}
	return app
}

func (s *Server) handleWAHAWebhook(w http.ResponseWriter, r *http.Request) {
	app := s.loadApp(w, r)
	if app == nil {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed reading body", http.StatusBadRequest)
		return
	}
	var envelope struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	queueName := consumers.QueueForWAHAEvent(envelope.Event)
	if queueName == "" {
		s.logger.Debug("ignoring waha event", "event", envelope.Event, "app", app.ID)
		writeJSON(w, map[string]bool{"success": true})
		return
	}

	job, err := s.deps.Queues.Enqueue(r.Context(), queueName, app.ID, app.Session, envelope.Event, body)
	if err != nil {
		s.logger.Error("failed enqueuing waha event", "event", envelope.Event, "error", err)
		http.Error(w, "enqueue failed", http.StatusServiceUnavailable)
		return
	}
	s.logger.Info("enqueued waha event", "event", envelope.Event, "queue", queueName, "job_id", job.ID)
	writeJSON(w, map[string]bool{"success": true})
}

func (s *Server) handleChatwootWebhook(w http.ResponseWriter, r *http.Request) {
	app := s.loadApp(w, r)
	if app == nil {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed reading body", http.StatusBadRequest)
		return
	}
	var event chatwoot.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	queueName := routeChatwootEvent(&event)
	if queueName == "" {
		writeJSON(w, map[string]bool{"success": true})
		return
	}

	job, err := s.deps.Queues.Enqueue(r.Context(), queueName, app.ID, app.Session, event.Event, body)
	if err != nil {
		s.logger.Error("failed enqueuing chatwoot event", "event", event.Event, "error", err)
		http.Error(w, "enqueue failed", http.StatusServiceUnavailable)
		return
	}
	s.logger.Info("enqueued chatwoot event", "event", event.Event, "queue", queueName, "job_id", job.ID)
	writeJSON(w, map[string]bool{"success": true})
}

// routeChatwootEvent applies the webhook filter rules and picks the queue, or
// "" when the event should be acknowledged without processing.
func routeChatwootEvent(event *chatwoot.WebhookEvent) string {
	// Private notes and incoming echoes would loop the bridge's own output
	// back into WhatsApp.
	if event.Event == "" || event.Private || event.MessageType == chatwoot.MessageTypeIncoming {
		return ""
	}

	isCommand := event.SenderChatID() == chatwoot.InboxContactChatID

	if event.ContentAttributes != nil && event.ContentAttributes.Deleted {
		if isCommand {
			return ""
		}
		return consumers.QueueInboxMessageDeleted
	}

	switch event.Event {
	case chatwoot.EventMessageCreated:
		if isCommand {
			return consumers.QueueInboxCommands
		}
		return consumers.QueueInboxMessageCreated
	case chatwoot.EventMessageUpdated:
		// Only the retry signal (external_error set or nulled) re-sends;
		// ordinary edits stay on the Chatwoot side.
		if event.ContentAttributes.HasExternalError() {
			return consumers.QueueInboxMessageUpdated
		}
		return ""
	default:
		return consumers.QueueInboxEvents
	}
}

// handleDeleteApp removes an installation: its mappings cascade away and its
// cached conversations are evicted.
func (s *Server) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	app, err := s.deps.Store.GetEnabledApp(r.Context(), id)
	if err != nil && !errors.Is(err, repo.ErrAppNotFound) {
		s.logger.Error("failed loading app", "app", id, "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	if err := s.deps.Store.DeleteAppData(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrAppNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("failed deleting app", "app", id, "error", err)
		http.Error(w, "delete failed", http.StatusServiceUnavailable)
		return
	}
	if app != nil {
		cache.NewConversationCache(s.deps.Conversations, app.Config.URL, app.Config.InboxID).Clean()
	}

	s.logger.Info("deleted app data", "app", id)
	writeJSON(w, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode json", http.StatusInternalServerError)
	}
}

func mountWithBasePath(basePath string, handler http.Handler) http.Handler {
	if basePath == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, basePath) {
			http.NotFound(w, r)
			return
		}
		if len(r.URL.Path) > len(basePath) && r.URL.Path[len(basePath)] != '/' {
			http.NotFound(w, r)
			return
		}
		trimmed := strings.TrimPrefix(r.URL.Path, basePath)
		if trimmed == "" {
			trimmed = "/"
		}
		r.URL.Path = trimmed
		if r.URL.RawPath != "" {
			rawTrimmed := strings.TrimPrefix(r.URL.RawPath, basePath)
			if rawTrimmed == "" {
				rawTrimmed = "/"
			}
			r.URL.RawPath = rawTrimmed
		}
		handler.ServeHTTP(w, r)
	})
}

func normaliseBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}

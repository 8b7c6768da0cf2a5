// Package main provides the HTTP API that accepts app events into the outbox.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jnst/fb-app-events/internal/config"
	"github.com/jnst/fb-app-events/internal/hashing"
	"github.com/jnst/fb-app-events/internal/logger"
	"github.com/jnst/fb-app-events/internal/model"
	"github.com/jnst/fb-app-events/internal/repository"
	"github.com/jnst/fb-app-events/internal/service"
	"github.com/jnst/fb-app-events/internal/wire"
)

const (
	contentTypeJSON        = "Content-Type"
	applicationJSON        = "application/json"
	failedToEncodeResponse = "failed to encode response"
	dateOfBirthLayout      = "2006-01-02"
	maxRequestBodySize     = 1 << 20
	exitCode               = 1
)

// identityRequest is the raw, unhashed identity of the user behind an event.
type identityRequest struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`
	Country     string `json:"country"`
	ExternalID  string `json:"external_id"`
}

func (r *identityRequest) toIdentity() (*hashing.Identity, error) {
	id := &hashing.Identity{
		Email:      r.Email,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Phone:      r.Phone,
		Gender:     r.Gender,
		City:       r.City,
		State:      r.State,
		Zip:        r.Zip,
		Country:    r.Country,
		ExternalID: r.ExternalID,
	}

	if r.DateOfBirth != "" {
		dob, err := time.Parse(dateOfBirthLayout, r.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("invalid date_of_birth %q", r.DateOfBirth)
		}
		id.DateOfBirth = dob
	}

	return id, nil
}

type eventRequest struct {
	Event    json.RawMessage  `json:"event"`
	Identity *identityRequest `json:"identity"`
}

type enqueueRequest struct {
	Events []eventRequest `json:"events"`
}

func (r *enqueueRequest) toItems() ([]service.EnqueueItem, error) {
	items := make([]service.EnqueueItem, 0, len(r.Events))
	for i, e := range r.Events {
		if len(e.Event) == 0 {
			return nil, fmt.Errorf("events[%d]: event is required", i)
		}

		event, err := wire.DecodeEvent(e.Event)
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}

		item := service.EnqueueItem{Event: *event}
		if e.Identity != nil {
			if item.Identity, err = e.Identity.toIdentity(); err != nil {
				return nil, fmt.Errorf("events[%d]: %w", i, err)
			}
		}
		items = append(items, item)
	}

	return items, nil
}

// APIServer handles HTTP requests for app event ingestion.
type APIServer struct {
	eventService service.EventService
}

// NewAPIServer creates a new API server instance.
func NewAPIServer(eventService service.EventService) *APIServer {
	return &APIServer{
		eventService: eventService,
	}
}

// EnqueueEvents handles POST /events endpoint for app event ingestion.
func (s *APIServer) EnqueueEvents(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	items, err := req.toItems()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.eventService.Enqueue(r.Context(), items)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}

// HealthCheck handles GET /health endpoint for service health check.
func (*APIServer) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Routes returns the API routes wrapped in otelhttp instrumentation.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /events", s.EnqueueEvents)
	mux.HandleFunc("GET /health", s.HealthCheck)

	return otelhttp.NewHandler(mux, "api")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNoEvents),
		errors.Is(err, model.ErrInvalidEvent),
		errors.Is(err, model.ErrExtraKeyCollision):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(contentTypeJSON, applicationJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(failedToEncodeResponse, slog.String("error", err.Error()))
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	slog.SetDefault(logger.Setup(cfg.LogLevel, cfg.LogFormat))

	dbPool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer dbPool.Close()

	outboxRepo := repository.NewOutboxRepositoryImpl(dbPool)
	transactionMgr := repository.NewTransactionManagerImpl(dbPool)
	eventService := service.NewEventServiceImpl(outboxRepo, transactionMgr)

	server := NewAPIServer(eventService)

	slog.Info("starting API server", slog.String("service", "api"), slog.String("port", cfg.Port))

	if err := http.ListenAndServe(":"+cfg.Port, server.Routes()); err != nil {
		slog.Error("failed to start server", slog.String("error", err.Error()))
		return
	}
}

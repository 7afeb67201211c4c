package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/internal/bets/repo"
	"github.com/radieske/bet-settler/internal/outcome-api/dto"
	"github.com/radieske/bet-settler/pkg/contracts/events"
)

const maxBodyBytes = 1 << 20

type Publisher interface {
	Publish(ctx context.Context, o events.EventOutcome) error
}

type OutcomeReader interface {
	GetLast(ctx context.Context, eventID string) (events.EventOutcome, bool, error)
}

// BetReader expõe as consultas do repositório de apostas (somente leitura)
type BetReader interface {
	FindByID(ctx context.Context, id int64) (*repo.Bet, error)
	FindByEvent(ctx context.Context, eventID string) ([]repo.Bet, error)
	FindByUser(ctx context.Context, userID string) ([]repo.Bet, error)
	FindByStatus(ctx context.Context, status repo.Status) ([]repo.Bet, error)
}

// API expõe a publicação de resultados e as consultas de apostas
type API struct {
	Log       *zap.Logger
	Publisher Publisher
	Outcomes  OutcomeReader // opcional
	Bets      BetReader     // opcional
	WS        http.Handler  // opcional
	Origins   []string
	Version   string
	Now       func() time.Time

	OnPublished func(status int) // métricas
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	if a.Now == nil {
		a.Now = time.Now
	}
	origins := a.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(a.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", a.welcome)
	r.Post("/outcomes", a.publishOutcome) // alias
	r.Route("/api/events", func(r chi.Router) {
		r.Post("/outcomes", a.publishOutcome)
		r.Get("/health", a.health)
		r.Get("/{eventId}/outcome", a.lastOutcome)
	})
	r.Route("/api/bets", func(r chi.Router) {
		r.Get("/", a.listBets)
		r.Get("/{betId}", a.getBet)
	})
	if a.WS != nil {
		r.Handle("/ws", a.WS)
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.APIResponse{Message: msg, Timestamp: a.Now(), Status: status})
}

func (a *API) publishOutcome(w http.ResponseWriter, r *http.Request) {
	var req dto.PublishOutcomeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		a.Log.Warn("validation failed", zap.String("field", "body"), zap.Error(err))
		a.published(http.StatusBadRequest)
		writeJSON(w, http.StatusBadRequest, dto.ValidationErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Errors:  map[string]string{"body": "malformed JSON request body"},
		})
		return
	}
	if errs := req.Validate(); errs != nil {
		a.Log.Warn("validation failed", zap.Any("errors", errs))
		a.published(http.StatusBadRequest)
		writeJSON(w, http.StatusBadRequest, dto.ValidationErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Errors:  errs,
		})
		return
	}

	a.Log.Info("publishing event outcome",
		zap.String("event_id", req.EventID),
		zap.String("event_name", req.EventName),
		zap.String("winner_id", req.EventWinnerID),
	)
	if err := a.Publisher.Publish(r.Context(), req.Outcome()); err != nil {
		a.Log.Error("failed to publish event outcome", zap.String("event_id", req.EventID), zap.Error(err))
		a.published(http.StatusInternalServerError)
		a.writeError(w, http.StatusInternalServerError, "Failed to publish event outcome: "+err.Error())
		return
	}

	a.published(http.StatusAccepted)
	writeJSON(w, http.StatusAccepted, dto.APIResponse{
		Message:   "Event outcome published successfully",
		EventID:   req.EventID,
		Timestamp: a.Now(),
		Status:    http.StatusAccepted,
	})
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dto.APIResponse{
		Message:   "Event outcome service is running",
		Timestamp: a.Now(),
		Status:    http.StatusOK,
	})
}

func (a *API) welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dto.WelcomeResponse{
		Application: "Sports Betting Settlement Service",
		Version:     a.Version,
		Status:      "running",
		Endpoints: map[string]string{
			"Publish Event Outcome": "POST /api/events/outcomes",
			"Health Check":          "GET /api/events/health",
			"Last Event Outcome":    "GET /api/events/{eventId}/outcome",
			"Get Bet":               "GET /api/bets/{betId}",
			"List Bets":             "GET /api/bets?userId=|eventId=|status=",
			"Settlement Feed":       "GET /ws",
		},
	})
}

// lastOutcome retorna o último resultado processado pelo consumer (cache Redis)
func (a *API) lastOutcome(w http.ResponseWriter, r *http.Request) {
	if a.Outcomes == nil {
		a.writeError(w, http.StatusServiceUnavailable, "outcome cache not configured")
		return
	}
	id := chi.URLParam(r, "eventId")
	o, ok, err := a.Outcomes.GetLast(r.Context(), id)
	if err != nil {
		a.Log.Error("outcome cache lookup failed", zap.String("event_id", id), zap.Error(err))
		a.writeError(w, http.StatusInternalServerError, "outcome lookup failed")
		return
	}
	if !ok {
		a.writeError(w, http.StatusNotFound, "no outcome for event "+id)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
	if a.Bets == nil {
		a.writeError(w, http.StatusServiceUnavailable, "bet store not configured")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "betId"), 10, 64)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "betId must be numeric")
		return
	}
	b, err := a.Bets.FindByID(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, "bet not found")
		return
	}
	if err != nil {
		a.Log.Error("bet lookup failed", zap.Int64("bet_id", id), zap.Error(err))
		a.writeError(w, http.StatusInternalServerError, "bet lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// listBets aceita exatamente um filtro: userId, eventId ou status
func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	if a.Bets == nil {
		a.writeError(w, http.StatusServiceUnavailable, "bet store not configured")
		return
	}
	q := r.URL.Query()
	var (
		bets []repo.Bet
		err  error
	)
	switch {
	case q.Get("userId") != "":
		bets, err = a.Bets.FindByUser(r.Context(), q.Get("userId"))
	case q.Get("eventId") != "":
		bets, err = a.Bets.FindByEvent(r.Context(), q.Get("eventId"))
	case q.Get("status") != "":
		st := repo.Status(q.Get("status"))
		if !st.Valid() {
			a.writeError(w, http.StatusBadRequest, "status must be PENDING, WON or LOST")
			return
		}
		bets, err = a.Bets.FindByStatus(r.Context(), st)
	default:
		a.writeError(w, http.StatusBadRequest, "one of userId, eventId or status is required")
		return
	}
	if err != nil {
		a.Log.Error("bet listing failed", zap.Error(err))
		a.writeError(w, http.StatusInternalServerError, "bet listing failed")
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

// recoverer converte panics em 500 no envelope padrão
func (a *API) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				a.Log.Error("unexpected error occurred", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				a.writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (a *API) published(status int) {
	if a.OnPublished != nil {
		a.OnPublished(status)
	}
}

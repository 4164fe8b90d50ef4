package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atmnet.com/internal/application/usecase"
	"atmnet.com/internal/domain/entity"
	"atmnet.com/internal/domain/port"
	"atmnet.com/internal/infrastructure/logger"
)

// Handler drives the terminals of a fleet over HTTP
type Handler struct {
	fleet     *usecase.Fleet
	validator port.RequestValidator
	logger    logger.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	fleet *usecase.Fleet,
	validator port.RequestValidator,
	logger logger.Logger,
) *Handler {
	return &Handler{
		fleet:     fleet,
		validator: validator,
		logger:    logger,
	}
}

// TerminalResponse describes a terminal's session state
type TerminalResponse struct {
	TerminalID string               `json:"terminal_id"`
	State      entity.TerminalState `json:"state"`
	AccountID  string               `json:"account_id,omitempty"`
}

// BalanceResponse carries an account balance in major units
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

// ReservoirResponse carries the cash available behind a terminal
type ReservoirResponse struct {
	TerminalID string `json:"terminal_id"`
	Available  string `json:"available"`
}

// OutcomeResponse reports whether a deposit or withdrawal went through
type OutcomeResponse struct {
	Success bool `json:"success"`
}

// PinResponse reports whether PIN entry authenticated the session
type PinResponse struct {
	Authenticated bool `json:"authenticated"`
}

type insertCardRequest struct {
	AccountID string `json:"account_id"`
}

type pinRequest struct {
	PIN string `json:"pin"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

// HandleHealth handles GET /health requests
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleTerminal handles GET /terminals/{terminalID} requests
func (h *Handler) HandleTerminal(w http.ResponseWriter, r *http.Request) {
	h.withTerminal(w, r, func(_ context.Context, t *usecase.Terminal) (int, any, error) {
		return http.StatusOK, terminalResponse(t), nil
	})
}

// HandleInsertCard handles POST /terminals/{terminalID}/card requests
func (h *Handler) HandleInsertCard(w http.ResponseWriter, r *http.Request) {
	var req insertCardRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "missing required field: account_id")
		return
	}

	h.withTerminal(w, r, func(ctx context.Context, t *usecase.Terminal) (int, any, error) {
		t.InsertCard(ctx, req.AccountID)
		return http.StatusOK, terminalResponse(t), nil
	})
}

// HandleEjectCard handles DELETE /terminals/{terminalID}/card requests
func (h *Handler) HandleEjectCard(w http.ResponseWriter, r *http.Request) {
	h.withTerminal(w, r, func(ctx context.Context, t *usecase.Terminal) (int, any, error) {
		t.EjectCard(ctx)
		return http.StatusOK, terminalResponse(t), nil
	})
}

// HandleEnterPin handles POST /terminals/{terminalID}/pin requests
func (h *Handler) HandleEnterPin(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.withTerminal(w, r, func(ctx context.Context, t *usecase.Terminal) (int, any, error) {
		return http.StatusOK, PinResponse{Authenticated: t.EnterPin(ctx, req.PIN)}, nil
	})
}

// HandleBalance handles GET /terminals/{terminalID}/balance requests
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	h.withTerminal(w, r, func(ctx context.Context, t *usecase.Terminal) (int, any, error) {
		balance, err := t.CheckBalance(ctx)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, BalanceResponse{
			AccountID: t.AccountID(),
			Balance:   entity.FormatAmount(balance),
		}, nil
	})
}

// HandleDeposit handles POST /terminals/{terminalID}/deposit requests
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	h.handleTransaction(w, r, (*usecase.Terminal).Deposit)
}

// HandleWithdraw handles POST /terminals/{terminalID}/withdraw requests
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.handleTransaction(w, r, (*usecase.Terminal).Withdraw)
}

// HandleReservoir handles GET /reservoirs/{terminalID} requests
func (h *Handler) HandleReservoir(w http.ResponseWriter, r *http.Request) {
	terminalID := chi.URLParam(r, "terminalID")

	reservoir, err := h.fleet.Reservoir(terminalID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ReservoirResponse{
		TerminalID: terminalID,
		Available:  entity.FormatAmount(reservoir.Available(r.Context())),
	})
}

func (h *Handler) handleTransaction(
	w http.ResponseWriter,
	r *http.Request,
	op func(t *usecase.Terminal, ctx context.Context, amount int64) (bool, error),
) {
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := entity.ParseAmount(req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.withTerminal(w, r, func(ctx context.Context, t *usecase.Terminal) (int, any, error) {
		ok, err := op(t, ctx, amount)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, OutcomeResponse{Success: ok}, nil
	})
}

// withTerminal runs fn holding the terminal named in the path and writes its result
func (h *Handler) withTerminal(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, t *usecase.Terminal) (int, any, error),
) {
	var (
		status int
		body   any
	)

	err := h.fleet.Use(r.Context(), chi.URLParam(r, "terminalID"), func(ctx context.Context, t *usecase.Terminal) error {
		var err error
		status, body, err = fn(ctx, t)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, status, body)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		requestLogger(r.Context(), h.logger).LogWarning(r.Context(), "Invalid JSON body", "error", err.Error())
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// fail writes the status for err. Server errors are logged in full and reach the client as a generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		requestLogger(r.Context(), h.logger).LogError(r.Context(), "Request failed", err)
		writeError(w, status, http.StatusText(status))
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrTerminalNotFound), errors.Is(err, entity.ErrAccountNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func terminalResponse(t *usecase.Terminal) TerminalResponse {
	return TerminalResponse{
		TerminalID: t.ID(),
		State:      t.State(),
		AccountID:  t.AccountID(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// SetupRoutes sets up all HTTP routes
func (h *Handler) SetupRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware(h.logger))
	r.Use(LoggingMiddleware(h.logger))

	r.Get("/health", h.HandleHealth)

	r.Group(func(r chi.Router) {
		r.Use(SignatureMiddleware(h.validator, h.logger))

		r.Route("/terminals/{terminalID}", func(r chi.Router) {
			r.Get("/", h.HandleTerminal)
			r.Post("/card", h.HandleInsertCard)
			r.Delete("/card", h.HandleEjectCard)
			r.Post("/pin", h.HandleEnterPin)
			r.Get("/balance", h.HandleBalance)
			r.Post("/deposit", h.HandleDeposit)
			r.Post("/withdraw", h.HandleWithdraw)
		})
		r.Get("/reservoirs/{terminalID}", h.HandleReservoir)
	})

	return r
}

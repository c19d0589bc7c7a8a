// Package httpapi serves read access to ledger accounts over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/internal/program"
	"github.com/septivank/greenmove-rewards/internal/state"
	"go.uber.org/zap"
)

// AccountReader reads decoded accounts and exposes the address scheme.
type AccountReader interface {
	Account(ctx context.Context, addr address.Address) (state.Account, error)
	Deriver() address.Deriver
}

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// Handler serves the read API.
type Handler struct {
	reader AccountReader
	checks map[string]Check
	logger *zap.Logger
}

func NewHandler(reader AccountReader, checks map[string]Check, logger *zap.Logger) *Handler {
	return &Handler{reader: reader, checks: checks, logger: logger}
}

// NewRouter wires the routes. gatherer backs /metrics.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/accounts/{address}", h.GetAccount)
		r.Get("/owners/{owner}/addresses", h.GetOwnerAddresses)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NotFound", "route not found")
	})
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is the liveness probe.
//
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// Readyz runs every dependency check.
//
// GET /readyz
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = "error: " + err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// GetAccount returns the decoded account at a base58 address.
//
// GET /v1/accounts/{address}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := address.Parse(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidAddress", err.Error())
		return
	}
	acct, err := h.reader.Account(r.Context(), addr)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(addr, acct))
}

// GetOwnerAddresses derives an owner's account addresses. The property,
// water and energy query parameters add the per-property accounts.
//
// GET /v1/owners/{owner}/addresses?property=&water=&energy=
func (h *Handler) GetOwnerAddresses(w http.ResponseWriter, r *http.Request) {
	owner, err := address.Parse(chi.URLParam(r, "owner"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidAddress", err.Error())
		return
	}
	d := h.reader.Deriver()
	q := r.URL.Query()
	propertyID := q.Get("property")
	if propertyID == "" && (q.Get("water") != "" || q.Get("energy") != "") {
		writeError(w, http.StatusBadRequest, "InvalidIdentifier", "meter ids require a property id")
		return
	}

	user, err := d.UserData(owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidIdentifier", err.Error())
		return
	}
	rewards, err := d.UserReward(owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidIdentifier", err.Error())
		return
	}
	resp := AddressesResponse{
		ProgramID:  d.ProgramID(),
		Owner:      owner,
		UserData:   derivedView(user),
		UserReward: derivedView(rewards),
	}

	if propertyID != "" {
		property, err := d.Property(owner, propertyID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidIdentifier", err.Error())
			return
		}
		resp.Property = optionalView(property)
	}
	if id := q.Get("water"); id != "" {
		meter, err := d.WaterMeter(owner, propertyID, id)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidIdentifier", err.Error())
			return
		}
		resp.WaterMeter = optionalView(meter)
	}
	if id := q.Get("energy"); id != "" {
		meter, err := d.EnergyMeter(owner, propertyID, id)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidIdentifier", err.Error())
			return
		}
		resp.EnergyMeter = optionalView(meter)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, program.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, program.Code(err), err.Error())
	case errors.Is(err, state.ErrDiscriminator), errors.Is(err, state.ErrInvalidLayout):
		h.logger.Error("undecodable account", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "CorruptAccount", "account data could not be decoded")
	default:
		h.logger.Error("account lookup failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "InternalError", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

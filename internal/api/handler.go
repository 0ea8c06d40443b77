package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestor360/commission/internal/calculator"
	"github.com/gestor360/commission/internal/commission"
	"github.com/gestor360/commission/internal/domain"
	"github.com/gestor360/commission/internal/goals"
	"github.com/gestor360/commission/internal/repository"
	"github.com/gestor360/commission/internal/rules"
	"github.com/gestor360/commission/internal/settlement"
)

// maxBodyBytes bounds request bodies; tier tables and campaigns are small.
const maxBodyBytes = 1 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	calc    *calculator.Calculator
	engine  *rules.Engine
	goals   *goals.Service
	version string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, calc *calculator.Calculator, engine *rules.Engine, goalSvc *goals.Service, version string) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		calc:    calc,
		engine:  engine,
		goals:   goalSvc,
		version: version,
	}
}

// SaleRequest is the sale body of POST /sales and POST /commission/simulate.
type SaleRequest struct {
	ID            string  `json:"id,omitempty"`
	UserID        string  `json:"userId"`
	ClientID      string  `json:"clientId,omitempty"`
	ProductType   string  `json:"productType"`
	Quantity      float64 `json:"quantity"`
	ValueProposed float64 `json:"valueProposed"`
	ValueSold     float64 `json:"valueSold,omitempty"`
	MarginPercent float64 `json:"marginPercent"`
	PaymentMethod string  `json:"paymentMethod,omitempty"`
	Date          string  `json:"date,omitempty"` // YYYY-MM-DD or RFC 3339
}

func (req *SaleRequest) sale() (*domain.Sale, error) {
	date, err := commission.ParseSaleDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	return &domain.Sale{
		ID:            req.ID,
		UserID:        req.UserID,
		ClientID:      req.ClientID,
		ProductType:   req.ProductType,
		Quantity:      req.Quantity,
		ValueProposed: req.ValueProposed,
		ValueSold:     req.ValueSold,
		MarginPercent: req.MarginPercent,
		PaymentMethod: req.PaymentMethod,
		Date:          date,
	}, nil
}

// SimulateRequest is the request body for POST /commission/simulate.
type SimulateRequest struct {
	SaleRequest
	Goal *domain.GoalOverrides `json:"goal,omitempty"`
}

// CommissionResponse is a commission outcome with its display summary.
type CommissionResponse struct {
	*domain.CommissionOutcome
	Summary string `json:"summary"`
}

func newCommissionResponse(o *domain.CommissionOutcome) CommissionResponse {
	return CommissionResponse{CommissionOutcome: o, Summary: settlement.Summary(o)}
}

// SaleResponse is the response for POST /sales.
type SaleResponse struct {
	Sale       *domain.Sale       `json:"sale"`
	Commission CommissionResponse `json:"commission"`
}

// Simulate handles POST /commission/simulate. Nothing is persisted.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req SimulateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sale, err := req.sale()
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := h.calc.Simulate(ctx, tenantID, sale, req.Goal)
	if err != nil {
		writeError(w, err)
		return
	}
	out.Metadata.TraceID = GetTraceID(ctx)

	writeJSON(w, http.StatusOK, newCommissionResponse(out))
}

// CreateSale handles POST /sales: the sale is evaluated, stored and
// announced on commission.computed.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req SaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sale, err := req.sale()
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := h.calc.Record(ctx, tenantID, sale)
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("sale recorded",
		"tenant_id", tenantID,
		"sale_id", sale.ID,
		"user_id", sale.UserID,
		"campaign_tag", sale.CampaignTag,
	)

	writeJSON(w, http.StatusCreated, SaleResponse{
		Sale:       sale,
		Commission: newCommissionResponse(out),
	})
}

// GetSale retrieves a sale by ID.
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sale, err := h.repo.GetSale(ctx, GetTenantID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil || h.calc == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return false
	}
	return true
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var conflict *commission.TierConflictError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, calculator.ErrInvalidSale),
		errors.Is(err, commission.ErrInvalidTierDocument),
		errors.Is(err, errInvalidRequest),
		errors.As(err, &conflict):
		status = http.StatusBadRequest
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Package http exposes billing operations over HTTP.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minvoker/tariff-calculator/internal/audit"
	"github.com/minvoker/tariff-calculator/internal/billing"
	"github.com/minvoker/tariff-calculator/internal/billing/application"
	"github.com/minvoker/tariff-calculator/internal/billing/export"
	"github.com/minvoker/tariff-calculator/internal/billing/infrastructure/postgres"
	"github.com/minvoker/tariff-calculator/internal/metering"
	"github.com/minvoker/tariff-calculator/internal/observability/metrics"
	"github.com/minvoker/tariff-calculator/internal/tariff"
)

const maxBodyBytes = 1 << 20

// Handler serves the billing API.
type Handler struct {
	calc        *application.CalcService
	tariffs     *application.TariffService
	loc         *time.Location
	auditLogger audit.Logger
}

// NewHandler constructs a Handler. Naive timestamps in request bodies are
// interpreted in loc.
func NewHandler(calc *application.CalcService, tariffs *application.TariffService, loc *time.Location, auditLogger audit.Logger) (*Handler, error) {
	if calc == nil {
		return nil, errors.New("billing handler: nil calc service")
	}
	if tariffs == nil {
		return nil, errors.New("billing handler: nil tariff service")
	}
	if loc == nil {
		loc = time.UTC
	}
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &Handler{calc: calc, tariffs: tariffs, loc: loc, auditLogger: auditLogger}, nil
}

// ServeHTTP routes billing requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/calculations":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleRunCalculation(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/calculations/"):
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/calculations/")
		parts := strings.Split(rest, "/")
		if len(parts) == 2 && parts[1] == "export" && parts[0] != "" {
			if r.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.handleExport(w, r, parts[0])
			return
		}
		if len(parts) == 1 && parts[0] != "" {
			if r.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.handleGetRun(w, r, parts[0])
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case strings.HasPrefix(r.URL.Path, "/api/v1/customers/"):
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/customers/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[1] != "bills" || parts[0] == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleLatestBill(w, r, parts[0])
	case r.URL.Path == "/api/v1/tariffs/versions":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleCreateTariffVersion(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type runResponse struct {
	RunID           string              `json:"run_id"`
	CustomerID      string              `json:"customer_id"`
	TariffVersionID string              `json:"tariff_version_id"`
	Checksum        string              `json:"checksum"`
	Reused          bool                `json:"reused"`
	PeriodStart     time.Time           `json:"period_start"`
	PeriodEnd       time.Time           `json:"period_end"`
	Result          *billing.CalcResult `json:"result"`
}

func toRunResponse(outcome *application.RunOutcome) runResponse {
	return runResponse{
		RunID:           outcome.RunID,
		CustomerID:      outcome.CustomerID,
		TariffVersionID: outcome.TariffVersionID,
		Checksum:        outcome.Checksum,
		Reused:          outcome.Reused,
		PeriodStart:     outcome.Period.Start,
		PeriodEnd:       outcome.Period.End,
		Result:          outcome.Result,
	}
}

func (h *Handler) handleRunCalculation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID      string `json:"customer_id"`
		TariffVersionID string `json:"tariff_version_id"`
		Start           string `json:"start"`
		End             string `json:"end"`
		Force           bool   `json:"force"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.CustomerID == "" {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}
	if req.TariffVersionID == "" {
		http.Error(w, "tariff_version_id is required", http.StatusBadRequest)
		return
	}
	period, err := h.parsePeriod(req.Start, req.End)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := h.calc.Run(r.Context(), req.CustomerID, req.TariffVersionID, period, req.Force)
	if err != nil {
		respondCalcError(w, err)
		return
	}
	status := http.StatusCreated
	if outcome.Reused {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(toRunResponse(outcome))
	h.auditLogger.Record("calculation.run", map[string]any{
		"run_id":            outcome.RunID,
		"customer_id":       req.CustomerID,
		"tariff_version_id": req.TariffVersionID,
		"reused":            outcome.Reused,
		"force":             req.Force,
		"ip":                audit.ClientIP(r),
	})
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request, runID string) {
	outcome, err := h.calc.GetRun(r.Context(), runID)
	if errors.Is(err, postgres.ErrNotFound) {
		http.Error(w, "calculation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "load calculation error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toRunResponse(outcome))
}

func (h *Handler) handleLatestBill(w http.ResponseWriter, r *http.Request, customerID string) {
	versionID := r.URL.Query().Get("tariff_version_id")
	if versionID == "" {
		http.Error(w, "tariff_version_id is required", http.StatusBadRequest)
		return
	}
	period, err := h.parsePeriod(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	outcome, err := h.calc.LatestBill(r.Context(), customerID, versionID, period)
	if err != nil {
		respondCalcError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toRunResponse(outcome))
}

func (h *Handler) handleCreateTariffVersion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plan          string          `json:"plan"`
		Version       int             `json:"version"`
		Document      json.RawMessage `json:"document"`
		EffectiveFrom string          `json:"effective_from"`
		EffectiveTo   string          `json:"effective_to"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.Document) == 0 {
		http.Error(w, "document is required", http.StatusBadRequest)
		return
	}
	from, err := metering.ParseLocal(req.EffectiveFrom, h.loc)
	if err != nil {
		http.Error(w, "effective_from is required", http.StatusBadRequest)
		return
	}
	var to *time.Time
	if req.EffectiveTo != "" {
		parsed, err := metering.ParseLocal(req.EffectiveTo, h.loc)
		if err != nil {
			http.Error(w, "effective_to must be a timestamp", http.StatusBadRequest)
			return
		}
		to = &parsed
	}

	rec, err := h.tariffs.CreateVersion(r.Context(), req.Plan, req.Version, req.Document, from, to)
	if errors.Is(err, tariff.ErrInvalidDocument) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(struct {
		ID            string     `json:"id"`
		Plan          string     `json:"plan"`
		Version       int        `json:"version"`
		EffectiveFrom time.Time  `json:"effective_from"`
		EffectiveTo   *time.Time `json:"effective_to,omitempty"`
	}{rec.ID, rec.Plan, rec.Version, rec.EffectiveFrom, rec.EffectiveTo})
	h.auditLogger.Record("tariff.version.created", map[string]any{
		"id":      rec.ID,
		"plan":    rec.Plan,
		"version": rec.Version,
		"ip":      audit.ClientIP(r),
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, runID string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}
	if format != "xlsx" && format != "pdf" {
		http.Error(w, "format must be xlsx or pdf", http.StatusBadRequest)
		return
	}

	started := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport(format, result, time.Since(started))
	}()

	outcome, err := h.calc.GetRun(r.Context(), runID)
	if errors.Is(err, postgres.ErrNotFound) {
		result = metrics.ResultError
		http.Error(w, "calculation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "load calculation error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	switch format {
	case "xlsx":
		f, err := export.Workbook(outcome.CustomerID, outcome.Period, outcome.Result)
		if err == nil {
			err = f.Write(&buf)
			_ = f.Close()
		}
		if err != nil {
			result = metrics.ResultError
			http.Error(w, "render workbook error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	case "pdf":
		if err := export.Invoice(&buf, outcome.CustomerID, outcome.Period, outcome.Result); err != nil {
			result = metrics.ResultError
			http.Error(w, "render invoice error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "statement-"+runID+"."+format))
	_, _ = w.Write(buf.Bytes())
	h.auditLogger.Record("statement.export", map[string]any{
		"run_id":      runID,
		"customer_id": outcome.CustomerID,
		"format":      format,
		"ip":          audit.ClientIP(r),
	})
}

// parsePeriod parses the period bounds, interpreting naive timestamps in
// the handler's location, and validates ordering.
func (h *Handler) parsePeriod(start, end string) (billing.Period, error) {
	if start == "" {
		return billing.Period{}, errors.New("start is required")
	}
	if end == "" {
		return billing.Period{}, errors.New("end is required")
	}
	from, err := metering.ParseLocal(start, h.loc)
	if err != nil {
		return billing.Period{}, errors.New("start must be a timestamp")
	}
	to, err := metering.ParseLocal(end, h.loc)
	if err != nil {
		return billing.Period{}, errors.New("end must be a timestamp")
	}
	period := billing.Period{Start: from, End: to}
	if !period.Valid() {
		return billing.Period{}, errors.New("end must be after start")
	}
	return period, nil
}

func respondCalcError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrTariffVersionNotFound):
		http.Error(w, "tariff version not found", http.StatusNotFound)
	case errors.Is(err, metering.ErrNoReadings):
		http.Error(w, "no meter readings in period", http.StatusUnprocessableEntity)
	case errors.Is(err, tariff.ErrInvalidDocument):
		http.Error(w, "stored tariff document invalid", http.StatusUnprocessableEntity)
	case errors.Is(err, billing.ErrInvalidPeriod):
		http.Error(w, "invalid billing period", http.StatusBadRequest)
	default:
		http.Error(w, "calculation error", http.StatusInternalServerError)
	}
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-radar/internal/model"
	"github.com/sells-group/market-radar/internal/radar"
	"github.com/sells-group/market-radar/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

type signalsResponse struct {
	CompanyID int64          `json:"company_id,omitempty"`
	Count     int            `json:"count"`
	Signals   []model.Signal `json:"signals"`
}

type deleteResponse struct {
	ID             int64 `json:"id"`
	Deleted        bool  `json:"deleted"`
	AlreadyMissing bool  `json:"already_missing"`
}

type healthResponse struct {
	Status   string            `json:"status"`
	Store    string            `json:"store"`
	Breakers map[string]string `json:"breakers,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Store: "ok"}
	status := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Store = err.Error()
		status = http.StatusServiceUnavailable
	}
	if s.breakers != nil {
		resp.Breakers = make(map[string]string)
		for name, st := range s.breakers.States() {
			resp.Breakers[name] = st.String()
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req model.ScanRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LookbackDays == 0 {
		req.LookbackDays = s.lookbackDays
	}
	if req.MaxResultsPerCompany == 0 {
		req.MaxResultsPerCompany = s.maxResults
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	// Identical concurrent requests share one scan. The scan outlives a
	// disconnecting caller so other waiters still get the result.
	v, err, shared := s.scans.Do(scanKey(req), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.scanTimeout)
		defer cancel()
		return s.scanner.Scan(ctx, req)
	})
	if err != nil {
		if eris.Is(err, radar.ErrSearchNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "search provider not configured")
			return
		}
		zap.L().Error("api: scan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	if shared {
		zap.L().Debug("api: scan result shared", zap.Int64s("company_ids", req.CompanyIDs))
	}
	writeJSON(w, http.StatusOK, v.(*model.ScanResult))
}

func (s *Server) handleCompanySignals(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r, defaultCompanyLimit)
	if !ok {
		return
	}

	if _, err := s.store.GetCompany(r.Context(), id); err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("company %d not found", id))
			return
		}
		s.internalError(w, "api: get company", err)
		return
	}

	signals, err := s.store.ListSignals(r.Context(), store.SignalFilter{CompanyID: id})
	if err != nil {
		s.internalError(w, "api: list company signals", err)
		return
	}
	top := radar.TopN(signals, limit, s.now().UTC())
	writeJSON(w, http.StatusOK, signalsResponse{CompanyID: id, Count: len(top), Signals: nonNil(top)})
}

func (s *Server) handleGlobalSignals(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r, defaultGlobalLimit)
	if !ok {
		return
	}
	signals, err := s.store.ListSignals(r.Context(), store.SignalFilter{Limit: limit})
	if err != nil {
		s.internalError(w, "api: list signals", err)
		return
	}
	writeJSON(w, http.StatusOK, signalsResponse{Count: len(signals), Signals: nonNil(signals)})
}

func (s *Server) handleDeleteSignal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := s.store.DeleteSignal(r.Context(), id)
	if err != nil {
		s.internalError(w, "api: delete signal", err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{ID: id, Deleted: deleted, AlreadyMissing: !deleted})
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	zap.L().Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxLimit))
		return 0, false
	}
	return n, true
}

func scanKey(req model.ScanRequest) string {
	ids := slices.Clone(req.CompanyIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s|%d|%d", strings.Join(parts, ","), req.LookbackDays, req.MaxResultsPerCompany)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func nonNil(signals []model.Signal) []model.Signal {
	if signals == nil {
		return []model.Signal{}
	}
	return signals
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"budgy/internal/core"
	"budgy/internal/log"
	"budgy/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.ready == nil {
		checks["store"] = "ok"
	} else if err := s.ready.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["sessions"] = map[string]any{"active": s.registry.Len()}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides request, security and session counters in plain
// text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.trace.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	metric := func(name, kind, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_requests_in_flight", "gauge", "Requests being served", traceMetrics.InFlight)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("rate_limit_allowed_total", "counter", "Requests admitted by the rate limiter", limitMetrics.Allowed)
	metric("rate_limit_limited_total", "counter", "Requests rejected by the rate limiter", limitMetrics.Limited)
	metric("security_suspicious_requests_total", "counter", "Requests matching attack patterns", securityMetrics.SuspiciousRequests)
	metric("security_blocked_requests_total", "counter", "Requests rejected by method", securityMetrics.BlockedRequests)
	metric("ledger_sessions_active", "gauge", "Live ledger sessions", int64(s.registry.Len()))
	metric("process_uptime_seconds", "gauge", "Seconds since server start", int64(time.Since(s.started).Seconds()))
}

// handleLedger selects a month and renders it. Without a month parameter
// the session keeps its month, or starts at the current one.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	month, ok, err := ParseMonthParams(r.URL.Query(), sess.Location())
	if err != nil {
		s.writeError(w, r, err, log.OpSelectMonth)
		return
	}
	if !ok {
		state, current := sess.State()
		if state == services.StateUninitialized || current.IsZero() {
			current = sess.CurrentMonth()
		}
		month = current
	}

	// A superseded load is not an error for this caller; the newer
	// selection owns the session and its state is rendered as is.
	if err := sess.SelectMonth(r.Context(), month); err != nil && !errors.Is(err, services.ErrStaleLoad) {
		s.writeError(w, r, err, log.OpSelectMonth)
		return
	}
	NewJSONResponse().Body(newLedgerJSON(sess.View())).Write(w)
}

func (s *Server) handleAddField(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, err, log.OpAddField)
		return
	}
	kind, err := core.ParseFieldKind(p.Get("kind"))
	if err != nil {
		s.writeError(w, r, err, log.OpAddField)
		return
	}
	target, err := ParseTargetDate(firstNonEmpty(p.Get("target_month"), p.Get("target_date")), sess.Location())
	if err != nil {
		s.writeError(w, r, err, log.OpAddField)
		return
	}

	f, err := sess.AddField(r.Context(), services.FieldInput{
		Label:       p.Get("label"),
		Kind:        kind,
		IsRecurring: p.GetBool("is_recurring") || p.GetBool("recurring"),
		TargetDate:  target,
	})
	if err != nil {
		s.writeError(w, r, err, log.OpAddField)
		return
	}
	s.logMutation(r, log.OpAddField, f.ID, "")

	NewJSONResponse().Status(http.StatusCreated).Body(map[string]any{
		"field":  newFieldJSON(f, sess.Location()),
		"ledger": newLedgerJSON(sess.View()),
	}).Write(w)
}

func (s *Server) handleFieldDetail(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	d, err := sess.Detail(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, log.OpDetail)
		return
	}
	NewJSONResponse().Body(newDetailJSON(d)).Write(w)
}

func (s *Server) handleDeleteField(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	id := r.PathValue("id")
	if err := sess.DeleteField(r.Context(), id); err != nil {
		s.writeError(w, r, err, log.OpDeleteField)
		return
	}
	s.logMutation(r, log.OpDeleteField, id, "")
	NewJSONResponse().Body(map[string]any{"ledger": newLedgerJSON(sess.View())}).Write(w)
}

func (s *Server) handleIncrement(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	id := r.PathValue("id")
	e, err := sess.IncrementCounter(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.OpIncrement)
		return
	}
	s.logMutation(r, log.OpIncrement, id, e.ID)
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]any{
		"entry":  newEntryJSON(e, core.KindCounter),
		"ledger": newLedgerJSON(sess.View()),
	}).Write(w)
}

// handleDecrement answers 200 either way; "applied" tells whether the
// counter was above zero and an entry was written.
func (s *Server) handleDecrement(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	id := r.PathValue("id")
	e, applied, err := sess.DecrementCounter(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.OpDecrement)
		return
	}
	body := map[string]any{
		"applied": applied,
		"ledger":  newLedgerJSON(sess.View()),
	}
	if applied {
		s.logMutation(r, log.OpDecrement, id, e.ID)
		body["entry"] = newEntryJSON(e, core.KindCounter)
	}
	NewJSONResponse().Body(body).Write(w)
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	id := r.PathValue("id")

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, err, log.OpAddEntry)
		return
	}
	e, err := sess.AddEntry(r.Context(), id, p.Get("label"), p.Get("amount"))
	if err != nil {
		s.writeError(w, r, err, log.OpAddEntry)
		return
	}
	s.logMutation(r, log.OpAddEntry, id, e.ID)
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]any{
		"entry":  newEntryJSON(e, entryKind(sess, e.FieldID)),
		"ledger": newLedgerJSON(sess.View()),
	}).Write(w)
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	e, err := sess.RemoveEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, log.OpRemoveEntry)
		return
	}
	s.logMutation(r, log.OpRemoveEntry, e.FieldID, e.ID)
	NewJSONResponse().Body(map[string]any{
		"entry":  newEntryJSON(e, entryKind(sess, e.FieldID)),
		"ledger": newLedgerJSON(sess.View()),
	}).Write(w)
}

// handleSignOut drops the owner's session. The token stays valid; the next
// request starts a fresh session.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.registry.End(ownerFrom(r.Context()))
	log.FromContext(r.Context()).InfoContext(r.Context(), "Signed out", log.FieldOperation, log.OpSignOut)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// writeError logs failures that are not the caller's fault and writes the
// mapped response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	resp := ErrorFromDomain(err)
	if resp.statusCode >= http.StatusInternalServerError {
		fields := log.NewFields().WithErrorType(errorType(err))
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, fields)
	} else {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldErrorType, errorType(err),
			log.FieldError, err.Error())
	}
	resp.Write(w)
}

func (s *Server) logMutation(r *http.Request, op, fieldID, entryID string) {
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogMutation(r.Context(), op, ownerFrom(r.Context()), fieldID, entryID)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, services.ErrNotReady):
		return log.ErrorTypeConflict
	case errors.Is(err, core.ErrValidation):
		return log.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return log.ErrorTypeNotFound
	case errors.Is(err, core.ErrStoreUnavailable):
		return log.ErrorTypeStore
	default:
		return log.ErrorTypeInternal
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

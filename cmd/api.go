package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/packdim/trust-cli/internal/identity"
	"github.com/packdim/trust-cli/internal/model"
	"github.com/packdim/trust-cli/internal/monitoring"
	"github.com/packdim/trust-cli/internal/store"
	"github.com/packdim/trust-cli/internal/trust"
)

// api bundles the dependencies the HTTP handlers need.
type api struct {
	svc       *trust.Service
	resolver  *identity.Resolver
	collector *monitoring.Collector
}

// newRouter builds the chi router for the trust API.
func newRouter(a *api, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", a.handleHealth)
	r.Get("/api/metrics", a.handleMetrics)

	r.Route("/api/products/{productID}", func(r chi.Router) {
		r.Get("/", a.handleGetProduct)
		r.Post("/view", a.handleRecordView)
		r.Post("/like", a.handleRecordLike)
		r.Post("/recompute", a.handleRecompute)
		r.Get("/disputes", a.handleListProductDisputes)
		r.Post("/disputes", a.handleOpenDispute)
	})

	r.Route("/api/disputes", func(r chi.Router) {
		r.Get("/", a.handleListDisputes)
		r.Route("/{disputeID}", func(r chi.Router) {
			r.Get("/", a.handleGetDispute)
			r.Post("/votes", a.handleSubmitVote)
			r.Get("/can-edit", a.handleCanEdit)
			r.Post("/edit", a.handleRecordEdit)
			r.Put("/status", a.handleSetStatus)
		})
	})

	return r
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.svc.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *api) handleRecordView(w http.ResponseWriter, r *http.Request) {
	views, err := a.svc.RecordView(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"views": views})
}

func (a *api) handleRecordLike(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	liked, err := a.svc.RecordLike(r.Context(), chi.URLParam(r, "productID"), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (a *api) handleRecompute(w http.ResponseWriter, r *http.Request) {
	factors, err := a.svc.RecomputeConfidence(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, factors)
}

func (a *api) handleOpenDispute(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Type        model.DisputeType `json:"type"`
		Description string            `json:"description"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := a.svc.OpenDispute(r.Context(), chi.URLParam(r, "productID"), user.ID, req.Type, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (a *api) handleListProductDisputes(w http.ResponseWriter, r *http.Request) {
	filter := disputeFilterFromQuery(r)
	filter.ProductID = chi.URLParam(r, "productID")
	ds, err := a.svc.ListDisputes(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (a *api) handleListDisputes(w http.ResponseWriter, r *http.Request) {
	ds, err := a.svc.ListDisputes(r.Context(), disputeFilterFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (a *api) handleGetDispute(w http.ResponseWriter, r *http.Request) {
	d, err := a.svc.GetDispute(r.Context(), chi.URLParam(r, "disputeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *api) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Vote model.VoteValue `json:"vote"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := a.svc.SubmitVote(r.Context(), chi.URLParam(r, "disputeID"), user.ID, req.Vote)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *api) handleCanEdit(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	decision, err := a.svc.CanUserEdit(r.Context(),
		chi.URLParam(r, "disputeID"),
		r.URL.Query().Get("product_id"),
		user.ID,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (a *api) handleRecordEdit(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		ProductID string         `json:"product_id"`
		Changes   map[string]any `json:"changes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	p, d, err := a.svc.RecordEdit(r.Context(), chi.URLParam(r, "disputeID"), req.ProductID, user.ID, req.Changes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p, "dispute": d})
}

func (a *api) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Status model.DisputeStatus `json:"status"`
		Reason string              `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := a.svc.AdminSetStatus(r.Context(), chi.URLParam(r, "disputeID"), req.Status, user, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *api) handleMetrics(w http.ResponseWriter, r *http.Request) {
	lookback := 24
	if q := r.URL.Query().Get("lookback_hours"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("lookback_hours must be a positive integer"))
			return
		}
		lookback = n
	}
	snap, err := a.collector.Collect(r.Context(), lookback)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// requireUser resolves the caller from the X-User-ID header. Missing
// header is a 401; the handler replies and returns false.
func (a *api) requireUser(w http.ResponseWriter, r *http.Request) (identity.User, bool) {
	user := a.resolver.Resolve(r.Header.Get("X-User-ID"))
	if user.ID == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody("X-User-ID header is required"))
		return identity.User{}, false
	}
	return user, true
}

func disputeFilterFromQuery(r *http.Request) store.DisputeFilter {
	q := r.URL.Query()
	filter := store.DisputeFilter{
		ProductID: q.Get("product_id"),
		Status:    model.DisputeStatus(q.Get("status")),
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		filter.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		filter.Offset = n
	}
	return filter
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return false
	}
	return true
}

// writeError maps the trust error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case trust.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case trust.IsAuthorization(err):
		writeJSON(w, http.StatusForbidden, errorBody(err.Error()))
	case trust.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case trust.IsConflict(err):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// Package web serves the search-and-browse dashboard over the email
// corpus: the search form with its facet dropdowns, the volume chart, the
// results table, the email detail view, and the preview PDF proxy.
package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/time/rate"

	"github.com/benjlis/covid19-search/internal/platform/config"
	"github.com/benjlis/covid19-search/internal/preview"
	"github.com/benjlis/covid19-search/internal/query"
	db "github.com/benjlis/covid19-search/internal/storage"
)

// HTTP header constants.
const headerContentType = "Content-Type"

// Log field constants.
const logFieldEmailID = "email_id"

// Handler serves the dashboard pages.
type Handler struct {
	cfg      *config.Config
	store    Store
	facets   FacetSource
	fetcher  PDFFetcher
	renderer *Renderer
	logger   *zerolog.Logger
	printer  *message.Printer

	// IP-based rate limiting
	limiters   map[string]*rate.Limiter
	limitersMu sync.Mutex
}

// NewHandler creates a new dashboard handler.
func NewHandler(cfg *config.Config, store Store, facetSource FacetSource, fetcher PDFFetcher, logger *zerolog.Logger) (*Handler, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	return &Handler{
		cfg:      cfg,
		store:    store,
		facets:   facetSource,
		fetcher:  fetcher,
		renderer: renderer,
		logger:   logger,
		printer:  message.NewPrinter(language.AmericanEnglish),
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// Dashboard handles GET / and GET /search: the chart, the search form,
// and the results of the submitted (or empty) filter set.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	defer func() {
		SearchLatency.Observe(time.Since(start).Seconds())
	}()

	w.Header().Set(headerContentType, "text/html; charset=utf-8")

	ctx := r.Context()
	bounds := h.cfg.CorpusBounds()

	form, filter, err := parseFilter(r)
	if err != nil {
		h.renderError(w, http.StatusBadRequest, "Bad Request", err.Error())
		PageHitsTotal.WithLabelValues(PageDashboard, StatusBadInput).Inc()

		return
	}

	catalog, err := h.facets.Get(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load facet catalog")
		h.renderError(w, http.StatusInternalServerError, "Error", "Failed to load the search facets.")
		PageHitsTotal.WithLabelValues(PageDashboard, StatusError).Inc()

		return
	}

	volume, err := h.store.EmailVolume(ctx, bounds.Min, bounds.Max)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load email volume")
		h.renderError(w, http.StatusInternalServerError, "Error", "Failed to load the email volume chart.")
		PageHitsTotal.WithLabelValues(PageDashboard, StatusError).Inc()

		return
	}

	chartSpec, err := BuildChartSpec(volume)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build chart spec")
		h.renderError(w, http.StatusInternalServerError, "Error", "Failed to build the email volume chart.")
		PageHitsTotal.WithLabelValues(PageDashboard, StatusError).Inc()

		return
	}

	clause := query.Compose(filter, bounds)

	result, err := h.store.SearchEmails(ctx, clause, h.cfg.ResultLimit)
	if err != nil {
		h.logger.Error().Err(err).Str("explain", clause.Explain()).Msg("Search failed")
		h.renderError(w, http.StatusInternalServerError, "Error", "Search failed.")
		PageHitsTotal.WithLabelValues(PageDashboard, StatusError).Inc()

		return
	}

	rows := make([]EmailRow, len(result.Emails))
	for i, e := range result.Emails {
		rows[i] = EmailRow{
			ID:      e.ID,
			Sent:    formatSent(e.Sent),
			Subject: e.Subject,
			From:    e.From,
			To:      e.To,
			File:    e.File,
			Page:    e.PageStart,
		}
	}

	data := &IndexData{
		Catalog:   catalog,
		Form:      form,
		ChartSpec: chartSpec,
		Results: &ResultsView{
			CountDisplay: h.printer.Sprintf("%d", len(rows)),
			MaxLimit:     result.Truncated,
			Explain:      clause.Explain(),
			Rows:         rows,
		},
	}

	if err := h.renderer.RenderIndex(w, data); err != nil {
		// Can't render the error page since we already started writing
		h.logger.Error().Err(err).Msg("Failed to render dashboard")

		return
	}

	PageHitsTotal.WithLabelValues(PageDashboard, StatusOK).Inc()
}

// EmailDetail handles GET /emails/{id}: metadata, annotations, and the
// inline preview (or the fetch failure message).
func (h *Handler) EmailDetail(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(headerContentType, "text/html; charset=utf-8")

	email, ok := h.lookupEmail(w, r, PageDetail)
	if !ok {
		return
	}

	data := &DetailData{
		Email:         email,
		Sent:          formatSent(email.Sent),
		TopicKeywords: h.topicKeywords(r, email.Topic),
		PreviewPath:   fmt.Sprintf("/emails/%d/preview.pdf", email.ID),
	}

	// Probe the preview before embedding it so a broken upstream shows an
	// inline message instead of an empty frame.
	if email.PreviewURL == "" {
		data.PreviewError = "No preview available for this email."
	} else if _, err := h.fetcher.Fetch(r.Context(), email.PreviewURL); err != nil {
		data.PreviewError = previewErrorMessage(email.PreviewURL, err)

		h.logger.Warn().Err(err).Int64(logFieldEmailID, email.ID).Msg("Preview probe failed")
	}

	if err := h.renderer.RenderDetail(w, data); err != nil {
		h.logger.Error().Err(err).Int64(logFieldEmailID, email.ID).Msg("Failed to render detail view")

		return
	}

	PageHitsTotal.WithLabelValues(PageDetail, StatusOK).Inc()
}

// PreviewPDF handles GET /emails/{id}/preview.pdf: proxies the archive's
// preview document so the detail page can embed it same-origin.
func (h *Handler) PreviewPDF(w http.ResponseWriter, r *http.Request) {
	email, ok := h.lookupEmail(w, r, PagePreview)
	if !ok {
		return
	}

	if email.PreviewURL == "" {
		http.Error(w, "no preview available", http.StatusNotFound)
		PageHitsTotal.WithLabelValues(PagePreview, StatusNotFound).Inc()

		return
	}

	body, err := h.fetcher.Fetch(r.Context(), email.PreviewURL)
	if err != nil {
		var statusErr *preview.StatusError

		if errors.As(err, &statusErr) {
			http.Error(w, previewErrorMessage(email.PreviewURL, err), http.StatusBadGateway)
			PreviewFetchTotal.WithLabelValues(FetchUpstream).Inc()
			PageHitsTotal.WithLabelValues(PagePreview, StatusUpstream).Inc()

			return
		}

		h.logger.Error().Err(err).Int64(logFieldEmailID, email.ID).Msg("Preview fetch failed")
		http.Error(w, "preview fetch failed", http.StatusBadGateway)
		PreviewFetchTotal.WithLabelValues(FetchError).Inc()
		PageHitsTotal.WithLabelValues(PagePreview, StatusUpstream).Inc()

		return
	}

	w.Header().Set(headerContentType, "application/pdf")
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))

	if _, err := w.Write(body); err != nil {
		h.logger.Debug().Err(err).Int64(logFieldEmailID, email.ID).Msg("Preview write aborted")

		return
	}

	PreviewFetchTotal.WithLabelValues(FetchOK).Inc()
	PageHitsTotal.WithLabelValues(PagePreview, StatusOK).Inc()
}

// lookupEmail parses the {id} route parameter and loads the email,
// rendering the appropriate error page on failure.
func (h *Handler) lookupEmail(w http.ResponseWriter, r *http.Request, page string) (*db.Email, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.renderError(w, http.StatusBadRequest, "Bad Request", "Invalid email id.")
		PageHitsTotal.WithLabelValues(page, StatusBadInput).Inc()

		return nil, false
	}

	email, err := h.store.GetEmail(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.renderError(w, http.StatusNotFound, "Not Found", "This email does not exist in the corpus.")
			PageHitsTotal.WithLabelValues(page, StatusNotFound).Inc()

			return nil, false
		}

		h.logger.Error().Err(err).Int64(logFieldEmailID, id).Msg("Failed to fetch email")
		h.renderError(w, http.StatusInternalServerError, "Error", "Failed to load email data.")
		PageHitsTotal.WithLabelValues(page, StatusError).Inc()

		return nil, false
	}

	return email, true
}

// topicKeywords resolves an email's topic label to the topic model's
// keyword set. Missing catalog entries degrade to just the label.
func (h *Handler) topicKeywords(r *http.Request, topic string) []string {
	if topic == "" {
		return nil
	}

	catalog, err := h.facets.Get(r.Context())
	if err != nil {
		return []string{topic}
	}

	for _, t := range catalog.Topics {
		if t.Label == topic {
			return append([]string{t.Label}, t.Keywords...)
		}
	}

	return []string{topic}
}

func previewErrorMessage(url string, err error) string {
	var statusErr *preview.StatusError

	if errors.As(err, &statusErr) {
		return fmt.Sprintf("Failed to download %s, status code: %d.", url, statusErr.Code)
	}

	return fmt.Sprintf("Failed to download %s.", url)
}

func (h *Handler) renderError(w http.ResponseWriter, code int, title, message string) {
	w.WriteHeader(code)

	if err := h.renderer.RenderError(w, &ErrorData{
		Code:    code,
		Title:   title,
		Message: message,
	}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to render error page")
	}
}

// RateLimit is a per-client-IP rate limiting middleware for the page
// routes.
func (h *Handler) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.allowRequest(getClientIP(r)) {
			w.Header().Set(headerContentType, "text/html; charset=utf-8")
			h.renderError(w, http.StatusTooManyRequests, "Too Many Requests", "Please wait before trying again.")
			PageHitsTotal.WithLabelValues(PageDashboard, StatusLimited).Inc()

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) allowRequest(ip string) bool {
	h.limitersMu.Lock()

	limiter, ok := h.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(h.cfg.RateLimitRequests)), h.cfg.RateLimitBurst)
		h.limiters[ip] = limiter
	}

	h.limitersMu.Unlock()

	return limiter.Allow()
}

func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (common with reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	return r.RemoteAddr
}

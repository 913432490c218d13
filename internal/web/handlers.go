package web

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/mailsift/internal/collect"
	"github.com/hpungsan/mailsift/internal/config"
	"github.com/hpungsan/mailsift/internal/errors"
	"github.com/hpungsan/mailsift/internal/ops"
	"github.com/hpungsan/mailsift/internal/report"
	"github.com/hpungsan/mailsift/internal/settings"
	"github.com/hpungsan/mailsift/internal/watch"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db        *sql.DB
	cfg       *config.Config
	sink      *collect.Sink
	scheduler *watch.Scheduler
	baseCtx   context.Context
	renderer  *Renderer
	log       zerolog.Logger
}

// page builds the common page fields, including the badge total.
func (h *Handlers) page(ctx context.Context, title, nav string) PageData {
	total, err := h.sink.Total(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("badge total unavailable")
	}
	return PageData{Title: title, Version: h.renderer.version, Nav: nav, Total: total}
}

// HandleEmails handles GET /emails: the all-time collected list.
func (h *Handlers) HandleEmails(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	result, err := ops.List(r.Context(), h.db, ops.ListInput{
		Filter: filter,
		Limit:  parseIntParam(r, "limit", 100),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	emails := make([]string, len(result.Items))
	for i, e := range result.Items {
		emails[i] = e.Address
	}
	h.renderer.renderPage(w, r, "emails", EmailsPageData{
		PageData:   h.page(r.Context(), "All emails", "emails"),
		Scope:      ops.ScopeAll,
		Filter:     result.Filter,
		Filters:    filterPresets,
		Emails:     emails,
		Pagination: result.Pagination,
		Cleared:    parseIntParam(r, "cleared", -1),
	})
}

// HandleCurrent handles GET /emails/current: the addresses of the latest scan.
func (h *Handlers) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	result, err := ops.Latest(r.Context(), h.db, ops.LatestInput{Filter: filter})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	data := EmailsPageData{
		PageData: h.page(r.Context(), "Current page", "current"),
		Scope:    ops.ScopeCurrent,
		Filter:   filterName(filter),
		Filters:  filterPresets,
		Emails:   []string{},
		Scan:     result.Item,
		Cleared:  -1,
	}
	if result.Item != nil {
		data.Emails = result.Item.Emails
	} else {
		data.Message = "Nothing has been scanned yet."
	}
	h.renderer.renderPage(w, r, "emails", data)
}

// HandleCopy handles GET /emails/copy: the list as newline-joined text for the clipboard.
func (h *Handlers) HandleCopy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	emails, err := ops.Emails(r.Context(), h.db, q.Get("scope"), q.Get("filter"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report.JoinText(emails)))
}

// HandleDownload handles GET /emails/download: a txt, csv or pdf attachment.
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest(err.Error()))
		return
	}

	listing, err := ops.Listing(r.Context(), h.db, q.Get("scope"), q.Get("filter"), time.Now())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, listing); err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	prefix := "all_collected"
	if scope, _ := ops.ParseScope(q.Get("scope")); scope == ops.ScopeCurrent {
		prefix = "current_page"
	}
	name := report.FileName(prefix, listing.Filter, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// HandleClear handles POST /emails/clear: empties the collected set.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	result, err := ops.Clear(r.Context(), h.sink)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/emails?cleared="+strconv.Itoa(result.Removed), http.StatusSeeOther)
}

// HandleScanForm handles GET /scan.
func (h *Handlers) HandleScanForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "scan", ScanPageData{
		PageData: h.page(r.Context(), "Scan", "scan"),
	})
}

// HandleScan handles POST /scan: scans pasted page text or markup.
func (h *Handlers) HandleScan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	data := ScanPageData{
		Text:   r.FormValue("text"),
		Kind:   r.FormValue("kind"),
		DryRun: parseFormBool(r, "dry_run"),
	}

	ctx := h.log.WithContext(r.Context())
	result, err := ops.Scan(ctx, h.db, h.sink, h.cfg, ops.ScanInput{
		Text:   data.Text,
		Kind:   data.Kind,
		DryRun: data.DryRun,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	data.PageData = h.page(r.Context(), "Scan", "scan")
	data.Result = result
	h.renderer.renderPage(w, r, "scan", data)
}

// HandleSettings handles GET /settings.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	result, err := ops.GetSettings(r.Context(), h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderSettings(w, r, result.Settings, false)
}

// HandleUpdateSettings handles POST /settings. Each field is optional; the
// form sends a hidden "false" ahead of every checkbox, so the last value wins.
func (h *Handlers) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	var patch settings.Patch
	var err error
	if patch.CollectAllSources, err = formBoolPtr(r, "collect_all_sources"); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if patch.AutoScan, err = formBoolPtr(r, "auto_scan"); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.UpdateSettings(r.Context(), h.db, patch)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if h.scheduler != nil {
		h.scheduler.Set(h.baseCtx, result.Settings.AutoScan)
	}
	h.log.Info().
		Bool("collect_all_sources", result.Settings.CollectAllSources).
		Bool("auto_scan", result.Settings.AutoScan).
		Bool("changed", result.Changed).
		Msg("settings updated")

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderSettings(w, r, result.Settings, true)
}

func (h *Handlers) renderSettings(w http.ResponseWriter, r *http.Request, s settings.Settings, saved bool) {
	data := SettingsPageData{
		PageData: h.page(r.Context(), "Settings", "settings"),
		Settings: s,
		Saved:    saved,
		Interval: h.cfg.ScanIntervalSeconds,
	}
	if h.scheduler != nil {
		data.SchedulerRunning = h.scheduler.Running()
	}
	h.renderer.renderPage(w, r, "settings", data)
}

// HandleStats handles GET /stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Stats(r.Context(), h.db, ops.StatsInput{Top: parseIntParam(r, "top", ops.DefaultStatsTop)})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderer.renderPage(w, r, "stats", StatsPageData{
		PageData: h.page(r.Context(), "Stats", "stats"),
		Stats:    result,
	})
}

// HandleEvents handles GET /events: a Server-Sent Events stream of the badge
// total. The current total is sent first, then every broadcast change.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.renderer.renderError(w, r, errors.NewInternal(fmt.Errorf("streaming unsupported")))
		return
	}

	updates, cancel := h.sink.Hub().Subscribe()
	defer cancel()

	total, err := h.sink.Total(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeTotal(w, total)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case total, ok := <-updates:
			if !ok {
				return
			}
			writeTotal(w, total)
			flusher.Flush()
		}
	}
}

func writeTotal(w http.ResponseWriter, total int) {
	fmt.Fprintf(w, "event: total\ndata: %d\n\n", total)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseFormBool parses a boolean form field; absent means false.
func parseFormBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.FormValue(name))
	return err == nil && v
}

// formBoolPtr returns the last value of a form field, or nil if it is absent.
func formBoolPtr(r *http.Request, name string) (*bool, error) {
	values := r.Form[name]
	if len(values) == 0 {
		return nil, nil
	}
	last := values[len(values)-1]
	if last == "on" {
		last = "true"
	}
	v, err := strconv.ParseBool(last)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s must be true or false", name))
	}
	return &v, nil
}

// filterName normalizes a filter for display, falling back to the raw input.
func filterName(filter string) string {
	if filter == "" {
		return "all"
	}
	return filter
}

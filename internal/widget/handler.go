package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/userboard/internal/platform/httpx"
	"github.com/odyssey-erp/userboard/internal/records"
	"github.com/odyssey-erp/userboard/internal/shared"
	"github.com/odyssey-erp/userboard/internal/view"
)

const listPath = "/users"

// Handler serves the user table and its actions.
type Handler struct {
	logger     *slog.Logger
	registry   *Registry
	templates  *view.Engine
	csrf       *shared.CSRFManager
	renderWait time.Duration
}

// NewHandler builds Handler instance. renderWait bounds how long the first
// render waits for the initial load.
func NewHandler(logger *slog.Logger, registry *Registry, templates *view.Engine, csrf *shared.CSRFManager, renderWait time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, registry: registry, templates: templates, csrf: csrf, renderWait: renderWait}
}

// MountRoutes registers the table routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Post("/page", h.selectPage)
	r.Post("/reset", h.reset)
	r.Post("/edit/save", h.save)
	r.Post("/edit/cancel", h.cancel)
	r.Post("/{id}/edit", h.openEdit)
	r.Post("/{id}/delete", h.deleteRow)
}

// MountAPI registers the JSON state routes.
func (h *Handler) MountAPI(r chi.Router) {
	r.Get("/state", h.state)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	h.awaitLoad(r.Context(), ctrl)
	h.render(w, r, ctrl.Snapshot(), http.StatusOK)
}

// awaitLoad blocks up to renderWait for the instance's first load. A freshly
// remounted instance has no records until it resolves.
func (h *Handler) awaitLoad(ctx context.Context, ctrl *Controller) {
	load := ctrl.Load()
	if load == nil || h.renderWait <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.renderWait)
	defer cancel()
	// Failures are already logged by the controller.
	_ = load.Wait(ctx)
}

func (h *Handler) selectPage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	page, err := strconv.Atoi(r.PostFormValue("page"))
	if err != nil {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	ctrl.SelectPage(page)
	http.Redirect(w, r, listPath, http.StatusSeeOther)
}

func (h *Handler) openEdit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	id, err := recordID(r)
	if err != nil {
		http.Error(w, "invalid record id", http.StatusBadRequest)
		return
	}
	h.awaitLoad(r.Context(), ctrl)
	if err := ctrl.OpenEdit(id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.Error(w, "record not found", http.StatusNotFound)
			return
		}
		h.logger.Error("open edit", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, listPath, http.StatusSeeOther)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	// Fields absent from the form keep their staged value.
	for key, values := range r.PostForm {
		f, err := ParseField(key)
		if err != nil || len(values) == 0 {
			continue
		}
		ctrl.Stage(f, values[0])
	}
	if !ctrl.Save() {
		h.logger.Debug("save without selection ignored")
		http.Redirect(w, r, listPath, http.StatusSeeOther)
		return
	}
	h.redirectWithFlash(w, r, listPath, shared.FlashSuccess, ChangesSaved)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	ctrl.Cancel()
	http.Redirect(w, r, listPath, http.StatusSeeOther)
}

func (h *Handler) deleteRow(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	id, err := recordID(r)
	if err != nil {
		http.Error(w, "invalid record id", http.StatusBadRequest)
		return
	}
	notice := ctrl.Delete(id)
	h.redirectWithFlash(w, r, listPath, notice.Kind, notice.Message)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.registry.Release(sess.ID)
	http.Redirect(w, r, listPath, http.StatusSeeOther)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, shared.ErrSessionMissing))
		return
	}
	ctrl, ok := h.registry.Lookup(sess.ID)
	if !ok {
		httpx.RespondError(w, fmt.Errorf("widget not mounted: %w", httpx.ErrNotFound))
		return
	}
	httpx.JSON(w, http.StatusOK, ctrl.Snapshot())
}

func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (*Controller, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing", slog.String("path", r.URL.Path))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return h.registry.Acquire(sess.ID), true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, snap Snapshot, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Warn("ensure csrf token", slog.Any("error", err))
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Users", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: snap}
	if err := h.templates.RenderStatus(w, status, "pages/users.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func recordID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

var _ Fetcher = (*records.Client)(nil)

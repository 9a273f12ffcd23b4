package modules

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/portico-app/portico/internal/rbac"
	"github.com/portico-app/portico/internal/shared"
	"github.com/portico-app/portico/internal/view"
)

// Handler manages module management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: mw}
}

// MountRoutes registers module routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermModulesView, shared.PermModulesEdit))
		r.Get("/", h.listModules)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermModulesEdit))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.createModule)
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.updateModule)
		r.Post("/{id}/delete", h.deleteModule)
		r.Post("/{id}/toggle", h.toggleModule)
	})
}

func (h *Handler) listModules(w http.ResponseWriter, r *http.Request) {
	mods, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list modules failed", slog.Any("error", err))
		h.render(w, r, "pages/modules_list.html", map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/modules_list.html", map[string]any{"Modules": mods}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/modules_form.html", map[string]any{"Module": &Module{IsActive: true}}, http.StatusOK)
}

func (h *Handler) createModule(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sortOrder := parseSortOrder(r.PostFormValue("sort_order"))
	_, err := h.service.Create(r.Context(),
		r.PostFormValue("name"),
		r.PostFormValue("display_name"),
		r.PostFormValue("description"),
		r.PostFormValue("icon"),
		sortOrder)
	switch {
	case errors.Is(err, shared.ErrDuplicate):
		h.redirectWithFlash(w, r, "/modules/new", "error", "A module with that name already exists")
	case err != nil:
		h.logger.Error("create module failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/modules/new", "error", shared.UserSafeMessage(err))
	default:
		h.redirectWithFlash(w, r, "/modules", "success", "Module created")
	}
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	mod, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get module failed", slog.Any("error", err))
		h.render(w, r, "pages/modules_form.html", map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/modules_form.html", map[string]any{"Module": mod}, http.StatusOK)
}

func (h *Handler) updateModule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := h.service.Update(r.Context(), id,
		r.PostFormValue("display_name"),
		r.PostFormValue("description"),
		r.PostFormValue("icon"),
		parseSortOrder(r.PostFormValue("sort_order")),
		r.PostFormValue("is_active") == "1")
	switch {
	case errors.Is(err, shared.ErrNotFound):
		http.NotFound(w, r)
	case err != nil:
		h.logger.Error("update module failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, modulePath(id)+"/edit", "error", shared.UserSafeMessage(err))
	default:
		h.redirectWithFlash(w, r, "/modules", "success", "Module updated")
	}
}

func (h *Handler) deleteModule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	err := h.service.Delete(r.Context(), id)
	switch {
	case errors.Is(err, ErrInUse):
		h.redirectWithFlash(w, r, "/modules", "error", "Remove the module's permissions before deleting it")
	case errors.Is(err, shared.ErrNotFound):
		http.NotFound(w, r)
	case err != nil:
		h.logger.Error("delete module failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/modules", "error", shared.UserSafeMessage(err))
	default:
		h.redirectWithFlash(w, r, "/modules", "success", "Module deleted")
	}
}

// toggleModule flips the active flag. Deactivated modules disappear from
// dashboards and grouped permission listings without losing any grants.
func (h *Handler) toggleModule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	err := h.service.ToggleActive(r.Context(), id)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		http.NotFound(w, r)
	case err != nil:
		h.logger.Error("toggle module failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/modules", "error", shared.UserSafeMessage(err))
	default:
		h.redirectWithFlash(w, r, "/modules", "success", "Module visibility updated")
	}
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func parseSortOrder(raw string) int32 {
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}

func modulePath(id int64) string {
	return "/modules/" + strconv.FormatInt(id, 10)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Modules", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

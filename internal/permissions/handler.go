package permissions

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/portico-app/portico/internal/modules"
	"github.com/portico-app/portico/internal/rbac"
	"github.com/portico-app/portico/internal/shared"
	"github.com/portico-app/portico/internal/view"
)

// Handler manages permission management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	modules   *modules.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, moduleService *modules.Service, templates *view.Engine, csrf *shared.CSRFManager, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, modules: moduleService, templates: templates, csrf: csrf, rbac: mw}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPermissionsView, shared.PermPermissionsEdit))
		r.Get("/", h.listPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermPermissionsEdit))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.createPermission)
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.updatePermission)
		r.Post("/{id}/delete", h.deletePermission)
	})
}

// listPermissions renders permissions grouped by active module. Modules
// without permissions still show up as empty sections.
func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListGroupedByModule(r.Context())
	if err != nil {
		h.logger.Error("grouped permissions failed", slog.Any("error", err))
		h.render(w, r, "pages/permissions_list.html", map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/permissions_list.html", map[string]any{"Groups": groups}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	mods, err := h.modules.List(r.Context())
	if err != nil {
		h.logger.Error("list modules failed", slog.Any("error", err))
	}
	h.render(w, r, "pages/permissions_form.html", map[string]any{"Permission": &Permission{}, "Modules": mods}, http.StatusOK)
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	moduleID, err := strconv.ParseInt(r.PostFormValue("module_id"), 10, 64)
	if err != nil {
		h.redirectWithFlash(w, r, "/permissions/new", "error", "Select a module for the permission")
		return
	}
	_, err = h.service.Create(r.Context(), moduleID, r.PostFormValue("name"), r.PostFormValue("description"))
	switch {
	case errors.Is(err, shared.ErrDuplicate):
		h.redirectWithFlash(w, r, "/permissions/new", "error", "That module already has a permission with that name")
	case err != nil:
		h.logger.Error("create permission failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/permissions/new", "error", shared.UserSafeMessage(err))
	default:
		h.redirectWithFlash(w, r, "/permissions", "success", "Permission created")
	}
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	perm, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get permission failed", slog.Any("error", err))
		h.render(w, r, "pages/permissions_form.html", map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	mods, err := h.modules.List(r.Context())
	if err != nil {
		h.logger.Error("list modules failed", slog.Any("error", err))
	}
	h.render(w, r, "pages/permissions_form.html", map[string]any{"Permission": perm, "Modules": mods}, http.StatusOK)
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := h.service.Update(r.Context(), id, r.PostFormValue("name"), r.PostFormValue("description"))
	switch {
	case errors.Is(err, shared.ErrDuplicate):
		h.redirectWithFlash(w, r, permissionPath(id)+"/edit", "error", "That module already has a permission with that name")
	case errors.Is(err, shared.ErrNotFound):
		http.NotFound(w, r)
	case err != nil:
		h.logger.Error("update permission failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, permissionPath(id)+"/edit", "error", shared.UserSafeMessage(err))
	default:
		h.redirectWithFlash(w, r, "/permissions", "success", "Permission updated")
	}
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	err := h.service.Delete(r.Context(), id)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		http.NotFound(w, r)
	case err != nil:
		h.logger.Error("delete permission failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/permissions", "error", shared.UserSafeMessage(err))
	default:
		h.redirectWithFlash(w, r, "/permissions", "success", "Permission deleted")
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

func permissionPath(id int64) string {
	return "/permissions/" + strconv.FormatInt(id, 10)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Permissions", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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

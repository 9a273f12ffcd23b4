package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/portico-app/portico/internal/permissions"
	"github.com/portico-app/portico/internal/rbac"
	"github.com/portico-app/portico/internal/shared"
	"github.com/portico-app/portico/internal/view"
)

// Handler manages role management endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	permissions *permissions.Service
	templates   *view.Engine
	csrf        *shared.CSRFManager
	rbac        rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, permService *permissions.Service, templates *view.Engine, csrf *shared.CSRFManager, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, permissions: permService, templates: templates, csrf: csrf, rbac: mw}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesView, shared.PermRolesEdit))
		r.Get("/", h.listRoles)
		r.Get("/{id}/permissions", h.showPermissionMatrix)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermRolesEdit))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.createRole)
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.updateRole)
		r.Post("/{id}/delete", h.deleteRole)
		r.Post("/{id}/permissions", h.savePermissionMatrix)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
		h.render(w, r, "pages/roles_list.html", map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/roles_list.html", map[string]any{"Roles": roles}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/roles_form.html", map[string]any{"Role": &Role{}}, http.StatusOK)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	role, err := h.service.Create(r.Context(), r.PostFormValue("name"), r.PostFormValue("description"))
	switch {
	case errors.Is(err, shared.ErrDuplicate):
		h.redirectWithFlash(w, r, "/roles/new", "error", "A role with that name already exists")
	case err != nil:
		h.logger.Error("create role failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/roles/new", "error", shared.UserSafeMessage(err))
	default:
		h.redirectWithFlash(w, r, rolePath(role.ID)+"/permissions", "success", "Role created")
	}
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get role failed", slog.Any("error", err))
		h.render(w, r, "pages/roles_form.html", map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	members, err := h.service.Members(r.Context(), id)
	if err != nil {
		h.logger.Error("role members failed", slog.Any("error", err))
	}
	h.render(w, r, "pages/roles_form.html", map[string]any{"Role": role, "Members": members}, http.StatusOK)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := h.service.Update(r.Context(), id, r.PostFormValue("name"), r.PostFormValue("description"))
	switch {
	case errors.Is(err, shared.ErrSystemRole):
		h.redirectWithFlash(w, r, "/roles", "error", "System roles cannot be modified")
	case errors.Is(err, shared.ErrDuplicate):
		h.redirectWithFlash(w, r, rolePath(id)+"/edit", "error", "A role with that name already exists")
	case errors.Is(err, shared.ErrNotFound):
		http.NotFound(w, r)
	case err != nil:
		h.logger.Error("update role failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, rolePath(id)+"/edit", "error", shared.UserSafeMessage(err))
	default:
		h.redirectWithFlash(w, r, "/roles", "success", "Role updated")
	}
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	err := h.service.Delete(r.Context(), id)
	switch {
	case errors.Is(err, shared.ErrSystemRole):
		h.redirectWithFlash(w, r, "/roles", "error", "System roles cannot be deleted")
	case errors.Is(err, shared.ErrNotFound):
		http.NotFound(w, r)
	case err != nil:
		h.logger.Error("delete role failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/roles", "error", shared.UserSafeMessage(err))
	default:
		h.redirectWithFlash(w, r, "/roles", "success", "Role deleted")
	}
}

// showPermissionMatrix renders the per-role grant matrix: every permission of
// every active module, with the role's current grants checked.
func (h *Handler) showPermissionMatrix(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get role failed", slog.Any("error", err))
		h.render(w, r, "pages/roles_permissions.html", map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	groups, err := h.permissions.ListGroupedByModule(r.Context())
	if err != nil {
		h.logger.Error("grouped permissions failed", slog.Any("error", err))
		h.render(w, r, "pages/roles_permissions.html", map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	granted, err := h.service.Permissions(r.Context(), id)
	if err != nil {
		h.logger.Error("role permissions failed", slog.Any("error", err))
		h.render(w, r, "pages/roles_permissions.html", map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	grantedIDs := make(map[int64]bool, len(granted))
	for _, p := range granted {
		grantedIDs[p.ID] = true
	}
	h.render(w, r, "pages/roles_permissions.html", map[string]any{
		"Role":       role,
		"Groups":     groups,
		"GrantedIDs": grantedIDs,
	}, http.StatusOK)
}

// savePermissionMatrix replaces the role's grant set with the checked boxes.
// Submitting with nothing checked clears every grant.
func (h *Handler) savePermissionMatrix(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	var permissionIDs []int64
	for _, raw := range r.PostForm["permission_ids"] {
		pid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		permissionIDs = append(permissionIDs, pid)
	}
	err := h.service.SetPermissions(r.Context(), id, permissionIDs)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		http.NotFound(w, r)
	case err != nil:
		h.logger.Error("set role permissions failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, rolePath(id)+"/permissions", "error", shared.UserSafeMessage(err))
	default:
		h.redirectWithFlash(w, r, rolePath(id)+"/permissions", "success", "Permissions updated")
	}
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func rolePath(id int64) string {
	return "/roles/" + strconv.FormatInt(id, 10)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Roles", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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

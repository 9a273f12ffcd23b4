package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/portico-app/portico/internal/rbac"
	"github.com/portico-app/portico/internal/roles"
	"github.com/portico-app/portico/internal/shared"
	"github.com/portico-app/portico/internal/view"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  *rbac.Service
	roles     *roles.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver *rbac.Service, roleService *roles.Service, templates *view.Engine, csrf *shared.CSRFManager, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, resolver: resolver, roles: roleService, templates: templates, csrf: csrf, rbac: mw}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView, shared.PermUsersEdit))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.showUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersEdit))
		r.Post("/{id}", h.updateUser)
		r.Post("/{id}/delete", h.deleteUser)
		r.Post("/{id}/roles", h.assignRole)
		r.Post("/{id}/roles/{roleID}/remove", h.removeRole)
	})
}

type formErrors map[string]string

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		h.render(w, r, "pages/users_list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/users_list.html", map[string]any{"Users": users}, http.StatusOK)
}

func (h *Handler) showUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get user failed", slog.Any("error", err))
		h.render(w, r, "pages/users_form.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	userRoles, err := h.resolver.RolesForUser(r.Context(), id)
	if err != nil {
		h.logger.Error("user roles failed", slog.Any("error", err))
	}
	allRoles, err := h.roles.List(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
	}
	h.render(w, r, "pages/users_form.html", map[string]any{
		"User":      user,
		"UserRoles": userRoles,
		"AllRoles":  allRoles,
		"Errors":    formErrors{},
	}, http.StatusOK)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := h.service.UpdateProfile(r.Context(), id, r.PostFormValue("username"), r.PostFormValue("email"))
	switch {
	case errors.Is(err, ErrEmailTaken):
		h.redirectWithFlash(w, r, userPath(id), "error", "Email already registered")
	case errors.Is(err, ErrUsernameTaken):
		h.redirectWithFlash(w, r, userPath(id), "error", "Username already taken")
	case err != nil:
		h.logger.Error("update user failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, userPath(id), "error", shared.UserSafeMessage(err))
	default:
		h.redirectWithFlash(w, r, userPath(id), "success", "Profile updated")
	}
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete user failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/users", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/users", "success", "User deleted")
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	roleID, err := strconv.ParseInt(r.PostFormValue("role_id"), 10, 64)
	if err != nil {
		h.redirectWithFlash(w, r, userPath(id), "error", "Select a role to assign")
		return
	}
	if err := h.service.AssignRole(r.Context(), id, roleID); err != nil {
		h.logger.Error("assign role failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, userPath(id), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, userPath(id), "success", "Role assigned")
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	roleID, ok := h.idParam(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.service.RemoveRole(r.Context(), id, roleID); err != nil {
		h.logger.Error("remove role failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, userPath(id), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, userPath(id), "success", "Role removed")
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func userPath(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Users", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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

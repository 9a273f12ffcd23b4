package dashboard

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/portico-app/portico/internal/modules"
	"github.com/portico-app/portico/internal/rbac"
	"github.com/portico-app/portico/internal/shared"
	"github.com/portico-app/portico/internal/view"
)

// Handler renders the signed-in landing page.
type Handler struct {
	logger    *slog.Logger
	resolver  *rbac.Service
	modules   *modules.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, resolver *rbac.Service, moduleService *modules.Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, resolver: resolver, modules: moduleService, templates: templates, csrf: csrf}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showDashboard)
}

func (h *Handler) showDashboard(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	userID, ok := sessionUserID(sess)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	roles, err := h.resolver.RolesForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("dashboard roles failed", slog.Any("error", err))
	}
	perms, err := h.resolver.PermissionsForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("dashboard permissions failed", slog.Any("error", err))
	}
	accessible, err := h.modules.AccessibleByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("dashboard modules failed", slog.Any("error", err))
	}

	username := sess.Get(shared.SessionKeyUsername)
	email := sess.Get(shared.SessionKeyEmail)

	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	data := view.TemplateData{
		Title:       "Dashboard",
		CSRFToken:   csrfToken,
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		Username:    username,
		Data: map[string]any{
			"Email":           email,
			"Roles":           roles,
			"Permissions":     perms,
			"Modules":         accessible,
			"RoleCount":       len(roles),
			"PermissionCount": len(perms),
			"ModuleCount":     len(accessible),
		},
	}
	if err := h.templates.Render(w, "pages/dashboard.html", data); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func sessionUserID(sess *shared.Session) (int64, bool) {
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

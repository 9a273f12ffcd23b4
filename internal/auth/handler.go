package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/portico-app/portico/internal/observability"
	"github.com/portico-app/portico/internal/shared"
	"github.com/portico-app/portico/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	metrics        *observability.Metrics
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
		metrics:        metrics,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type registerForm struct {
	Username        string `validate:"required,min=3,max=50"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

type registerPageData struct {
	Form    registerForm
	Errors  map[string]string
	Success bool
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthenticated(w, r) {
		return
	}
	h.renderLogin(w, r, loginPageData{}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = loginFieldMessage(fieldErr)
		}
	}

	if len(errs) == 0 {
		user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
		switch {
		case errors.Is(err, ErrAccountInactive):
			h.metrics.RecordLogin("failure")
			errs["general"] = "Your account has been deactivated. Please contact support."
		case err != nil:
			h.metrics.RecordLogin("failure")
			errs["general"] = "Invalid email or password"
		default:
			h.metrics.RecordLogin("success")
			if sess != nil {
				sess.SetUser(strconv.FormatInt(user.ID, 10))
				sess.Set(shared.SessionKeyUsername, user.Username)
				sess.Set(shared.SessionKeyEmail, user.Email)
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back, " + user.Username + "!"})
			} else {
				h.logger.Error("session missing during login")
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	h.renderLogin(w, r, loginPageData{Form: form, Errors: errs}, http.StatusBadRequest)
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthenticated(w, r) {
		return
	}
	h.renderRegister(w, r, registerPageData{}, http.StatusOK)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := registerForm{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = registerFieldMessage(fieldErr)
		}
	}

	// Best-effort availability checks so the form reports both fields at
	// once; the unique indexes still decide the race.
	if len(errs) == 0 {
		if taken, err := h.service.ExistsByEmail(r.Context(), form.Email); err == nil && taken {
			errs["Email"] = "Email already registered"
		}
		if taken, err := h.service.ExistsByUsername(r.Context(), form.Username); err == nil && taken {
			errs["Username"] = "Username already taken"
		}
	}

	if len(errs) == 0 {
		_, err := h.service.Register(r.Context(), form.Username, form.Email, form.Password)
		switch {
		case errors.Is(err, ErrEmailTaken):
			errs["Email"] = "Email already registered"
		case errors.Is(err, ErrUsernameTaken):
			errs["Username"] = "Username already taken"
		case err != nil:
			h.logger.Error("register user", slog.Any("error", err))
			errs["general"] = "Registration failed. Please try again."
		default:
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Registration successful! You can now log in."})
			}
			h.renderRegister(w, r, registerPageData{Success: true}, http.StatusOK)
			return
		}
	}

	h.renderRegister(w, r, registerPageData{Form: form, Errors: errs}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		// Restart the session under a fresh ID so the logout flash has a
		// vehicle to the login page.
		if err := h.sessionManager.Reset(r.Context(), sess); err != nil {
			h.logger.Error("reset session on logout", slog.Any("error", err))
			h.sessionManager.Destroy(sess)
		} else {
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "You have been logged out successfully."})
		}
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

// redirectIfAuthenticated sends logged-in users to the dashboard.
func (h *Handler) redirectIfAuthenticated(w http.ResponseWriter, r *http.Request) bool {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil && sess.User() != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return true
	}
	return false
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	h.renderPage(w, r, "pages/login.html", "Login", data, status)
}

func (h *Handler) renderRegister(w http.ResponseWriter, r *http.Request, data registerPageData, status int) {
	h.renderPage(w, r, "pages/register.html", "Register", data, status)
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render auth page", slog.String("template", template), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func loginFieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Email":
		return "Email is required"
	case "Password":
		return "Password is required"
	}
	return "Invalid value"
}

func registerFieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Username":
		switch fe.Tag() {
		case "min":
			return "Username must be at least 3 characters"
		case "max":
			return "Username must not exceed 50 characters"
		}
		return "Username is required"
	case "Email":
		if fe.Tag() == "email" {
			return "Invalid email format"
		}
		return "Email is required"
	case "Password":
		if fe.Tag() == "min" {
			return "Password must be at least 8 characters"
		}
		return "Password is required"
	case "ConfirmPassword":
		if fe.Tag() == "eqfield" {
			return "Passwords do not match"
		}
		return "Password confirmation is required"
	}
	return "Invalid value"
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleRegisterForTest exposes the POST handler for tests.
func (h *Handler) HandleRegisterForTest(w http.ResponseWriter, r *http.Request) {
	h.handleRegister(w, r)
}

// HandleLogoutForTest exposes the POST handler for tests.
func (h *Handler) HandleLogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogout(w, r)
}

package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dynalog-app/backend/internal/auth"
	"github.com/dynalog-app/backend/internal/middleware"
	"github.com/dynalog-app/backend/internal/telemetry/metrics"
	"github.com/dynalog-app/backend/internal/telemetry/tracing"
	"github.com/dynalog-app/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type usersRepo interface {
	Add(ctx context.Context, user User) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, params UpdateParams) (*User, error)
}

type Handler struct {
	repo         usersRepo
	authService  *auth.Service
	loginChecker auth.Checker
}

func NewHandler(repo usersRepo, authService *auth.Service, loginChecker auth.Checker) *Handler {
	return &Handler{
		repo:         repo,
		authService:  authService,
		loginChecker: loginChecker,
	}
}

func (handler *Handler) SetupAuthRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	allowedPerMin int,
	metricsManager *metrics.Manager,
) {
	authSubrouter := mainRouter.PathPrefix("/auth").Subrouter()
	authSubrouter.
		HandleFunc("/sign-up", handler.handleSignUp).
		Methods("POST", "OPTIONS").Name("sign-up")
	authSubrouter.
		HandleFunc("/sign-in", handler.handleSignIn).
		Methods("POST", "OPTIONS").Name("sign-in")
	authSubrouter.
		HandleFunc("/sign-out", handler.handleSignOut).
		Methods("POST", "OPTIONS").Name("sign-out")
	authSubrouter.
		HandleFunc("/check", handler.handleCheck).
		Methods("GET", "OPTIONS").Name("check")

	// rate limit the whole auth surface to slow down brute force
	authSubrouter.Use(middleware.RateLimit(rateLimiter, "auth", allowedPerMin, metricsManager))
	authSubrouter.Use(middleware.Cors())
}

type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (req signUpRequest) validate() error {
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return errors.New("invalid email")
	}
	if len(req.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if req.Name == "" || len(req.Name) > 100 {
		return errors.New("name must be between 1 and 100 characters")
	}
	return nil
}

func (handler *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.signup")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("sign up, unmarshal json params: %s", err)
		http.Error(w, "sign up failed", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	passwordHash, err := pkg.HashPassword(req.Password)
	if err != nil {
		log.Errorf("sign up, hash password: %s", err)
		http.Error(w, "sign up failed", http.StatusInternalServerError)
		return
	}

	user, err := handler.repo.Add(ctx, User{
		Email:        strings.ToLower(req.Email),
		PasswordHash: passwordHash,
		Name:         req.Name,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			http.Error(w, "email already taken", http.StatusConflict)
			return
		}
		log.Errorf("sign up, add user: %s", err)
		http.Error(w, "sign up failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("new user signed up: %s", user.ID)

	handler.respondWithToken(ctx, w, user, http.StatusCreated)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (handler *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.signin")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("sign in, unmarshal json params: %s", err)
		http.Error(w, "sign in failed", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "error, email or password empty", http.StatusBadRequest)
		return
	}

	user, err := handler.repo.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Tracef("[email] failed sign in attempt for: %s", req.Email)
			http.Error(w, "error, wrong credentials", http.StatusUnauthorized)
			return
		}
		log.Errorf("sign in, get user: %s", err)
		http.Error(w, "sign in failed", http.StatusInternalServerError)
		return
	}

	if !pkg.CheckPasswordHash(req.Password, user.PasswordHash) {
		log.Tracef("[password] failed sign in attempt for: %s", req.Email)
		http.Error(w, "error, wrong credentials", http.StatusUnauthorized)
		return
	}

	handler.respondWithToken(ctx, w, user, http.StatusOK)
}

func (handler *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.signout")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	token := middleware.AuthToken(r)
	if token == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if err := handler.authService.Logout(ctx, token); err != nil {
		if errors.Is(err, auth.ErrTokenNotFound) {
			http.Error(w, "no can do", http.StatusUnauthorized)
			return
		}
		log.Errorf("sign out: %s", err)
		http.Error(w, "sign out failed", http.StatusInternalServerError)
		return
	}

	handler.clearAuthCookie(w)
	pkg.WriteTextResponseOK(w, "signed-out")
}

func (handler *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.check")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	token := middleware.AuthToken(r)
	if token == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	userID, err := handler.loginChecker.UserIDForToken(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			http.Error(w, "no can do", http.StatusUnauthorized)
			return
		}
		log.Errorf("auth check: %s", err)
		http.Error(w, "auth check failed", http.StatusInternalServerError)
		return
	}

	handler.writeUser(w, ctx, userID)
}

func (handler *Handler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.getme")
	defer span.End()

	handler.writeUser(w, ctx, auth.UserIDFromContext(ctx))
}

func (handler *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.updateme")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var params UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Errorf("update profile, unmarshal json params: %s", err)
		http.Error(w, "update profile failed", http.StatusBadRequest)
		return
	}
	if err := params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID := auth.UserIDFromContext(ctx)
	user, err := handler.repo.Update(ctx, userID, params)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update profile of %s: %s", userID, err)
		http.Error(w, "update profile failed", http.StatusInternalServerError)
		return
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("failed to marshal updated user: %s", err)
		http.Error(w, "update profile failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, userJson, http.StatusOK)
}

func (handler *Handler) writeUser(w http.ResponseWriter, ctx context.Context, userID string) {
	user, err := handler.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get user %s: %s", userID, err)
		http.Error(w, "failed to get user", http.StatusInternalServerError)
		return
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("failed to marshal user: %s", err)
		http.Error(w, "failed to marshal user", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, userJson, http.StatusOK)
}

func (handler *Handler) respondWithToken(
	ctx context.Context,
	w http.ResponseWriter,
	user *User,
	status int,
) {
	token, err := handler.authService.Login(ctx, user.ID, time.Now())
	if err != nil {
		log.Errorf("sign in failed, generate token error: %s", err)
		http.Error(w, "generate token error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.DefaultTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respJson, err := json.Marshal(AuthResponse{
		User:  user,
		Token: token,
	})
	if err != nil {
		log.Errorf("failed to marshal auth response: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, status)
}

func (handler *Handler) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

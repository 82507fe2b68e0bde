package auth

import (
	"encoding/json"
	"errors"
	"hospital-management/internal/apierrors"
	"hospital-management/internal/configs"
	"hospital-management/internal/database"
	"hospital-management/internal/logging"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type httpHandler struct {
	service Service
	logger  *logrus.Logger
}

// Setup setups the routes handled by auth context and returns the service so other contexts
// can protect their routes with it.
func Setup(router chi.Router, logger *logrus.Logger, config configs.Config, dbConn database.Connection) Service {
	handler := &httpHandler{logger: logger, service: NewService(config, dbConn)}

	// public routes
	router.Group(func(group chi.Router) {
		group.Post("/api/auth/login", handler.Authenticate)
		group.Put("/api/auth/token", handler.RefreshToken)
	})

	// protected routes
	router.Group(func(group chi.Router) {
		group.Use(JwtValidator(handler.service))
		group.Get("/api/auth/me", handler.GetAuthenticatedUser)
	})

	return handler.service
}

func (h httpHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromRequest(h.logger, r).WithError(err).Warn("auth request failed")
	var unauthorized *UnauthorizedError
	if errors.As(err, &unauthorized) {
		apierrors.Write(w, apierrors.NewAPIError(apierrors.WithDetail(unauthorized.Error()), apierrors.WithHTTPStatusCode(http.StatusUnauthorized)))
		return
	}
	apierrors.Write(w, err)
}

// Authenticate handles the request to authenticate a user.
func (h httpHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	credentials := new(Credentials)
	if err := json.NewDecoder(r.Body).Decode(credentials); err != nil {
		h.writeError(w, r, apierrors.BadRequest("malformed request body"))
		return
	}
	tokens, err := h.service.Authenticate(r.Context(), *credentials)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(tokens)
}

// RefreshToken handles the request to return a new refresh token to the authenticated user.
func (h httpHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	tokens := new(Tokens)
	if err := json.NewDecoder(r.Body).Decode(tokens); err != nil {
		h.writeError(w, r, apierrors.BadRequest("malformed request body"))
		return
	}
	tokens, err := h.service.RefreshTokens(r.Context(), *tokens)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(tokens)
}

// GetAuthenticatedUser handles the request to return data about the authenticated user.
func (h httpHandler) GetAuthenticatedUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetAuthenticatedUser(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(user)
}

package reports

import (
	"encoding/json"
	"hospital-management/internal/apierrors"
	"hospital-management/internal/auth"
	"hospital-management/internal/civil"
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

// Setup setups the routes handled by reports context.
func Setup(router chi.Router, logger *logrus.Logger, authorizer auth.Authorizer, dbConn database.Connection) {
	handler := &httpHandler{logger: logger, service: NewService(dbConn)}

	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRoles(authorizer, auth.AdminRole))
		group.Get("/api/reports/summary", handler.Summary)
	})
}

func parseDate(r *http.Request, key string) (civil.Date, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return civil.Date{}, nil
	}
	date, err := civil.ParseDate(v)
	if err != nil {
		return civil.Date{}, apierrors.NewValidationError(key, "invalid date reference - e.g. 2024-08-10")
	}
	return date, nil
}

func (h httpHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	entry := logging.FromRequest(h.logger, r).WithError(err)
	if apierrors.StatusCode(err) >= http.StatusInternalServerError {
		entry.Error("report request failed")
	} else {
		entry.Info("report request rejected")
	}
	apierrors.Write(w, err)
}

func (h httpHandler) Summary(w http.ResponseWriter, r *http.Request) {
	from, err := parseDate(r, "from")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := parseDate(r, "to")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	summary, err := h.service.Summary(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(summary)
}

package patients

import (
	"encoding/json"
	"hospital-management/internal/apierrors"
	"hospital-management/internal/auth"
	"hospital-management/internal/database"
	"hospital-management/internal/logging"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type httpHandler struct {
	service Service
	logger  *logrus.Logger
}

// Setup setups the routes handled by patients context.
func Setup(router chi.Router, logger *logrus.Logger, authorizer auth.Authorizer, dbConn database.Connection) {
	handler := &httpHandler{logger: logger, service: NewService(dbConn)}

	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRoles(authorizer, auth.StaffRoles...))
		group.Get("/api/patients", handler.ListPatients)
		group.Get("/api/patients/{id}", handler.GetPatient)
	})

	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRoles(authorizer, auth.AdminRole, auth.ReceptionistRole))
		group.Post("/api/patients", handler.CreatePatient)
	})
}

func (h httpHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	entry := logging.FromRequest(h.logger, r).WithError(err)
	if apierrors.StatusCode(err) >= http.StatusInternalServerError {
		entry.Error("patient request failed")
	} else {
		entry.Info("patient request rejected")
	}
	apierrors.Write(w, err)
}

// pagination parses the limit and offset query parameters. Missing values are zero.
func pagination(r *http.Request) (int, int, error) {
	var limit, offset int
	var err error
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, apierrors.NewValidationError("limit", "must be a number")
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			return 0, 0, apierrors.NewValidationError("offset", "must be a number")
		}
	}
	return limit, offset, nil
}

func (h httpHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	patient := new(Patient)
	if err := json.NewDecoder(r.Body).Decode(patient); err != nil {
		h.writeError(w, r, apierrors.BadRequest("malformed request body"))
		return
	}
	created, err := h.service.CreatePatient(r.Context(), *patient)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(created)
}

func (h httpHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patient, err := h.service.GetPatient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(patient)
}

func (h httpHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	patients, err := h.service.ListPatients(r.Context(), r.URL.Query().Get("search"), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(patients)
}

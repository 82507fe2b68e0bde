package appointments

import (
	"encoding/json"
	"hospital-management/internal/apierrors"
	"hospital-management/internal/auth"
	"hospital-management/internal/civil"
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

// Setup setups the routes handled by appointments context.
func Setup(router chi.Router, logger *logrus.Logger, authorizer auth.Authorizer, dbConn database.Connection) {
	handler := &httpHandler{logger: logger, service: NewService(dbConn)}

	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRoles(authorizer, auth.StaffRoles...))
		group.Post("/api/appointments", handler.CreateAppointment)
		group.Get("/api/appointments", handler.ListAppointments)
		group.Get("/api/appointments/availability", handler.Availability)
		group.Get("/api/appointments/conflict-check", handler.CheckConflict)
		group.Get("/api/appointments/{id}", handler.GetAppointment)
		group.Put("/api/appointments/{id}", handler.UpdateAppointment)
		group.Patch("/api/appointments/{id}/status", handler.UpdateStatus)
	})

	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRoles(authorizer, auth.AdminRole))
		group.Delete("/api/appointments/{id}", handler.DeleteAppointment)
	})
}

func (h httpHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	entry := logging.FromRequest(h.logger, r).WithError(err)
	if apierrors.StatusCode(err) >= http.StatusInternalServerError {
		entry.Error("appointment request failed")
	} else {
		entry.Info("appointment request rejected")
	}
	apierrors.Write(w, err)
}

func queryDate(r *http.Request, key string, required bool) (civil.Date, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		if required {
			return civil.Date{}, apierrors.NewValidationError(key, "required")
		}
		return civil.Date{}, nil
	}
	date, err := civil.ParseDate(v)
	if err != nil {
		return civil.Date{}, apierrors.NewValidationError(key, ErrInvalidDate)
	}
	return date, nil
}

func queryDuration(r *http.Request) (int, error) {
	v := r.URL.Query().Get("duration")
	if v == "" {
		return 0, nil
	}
	duration, err := strconv.Atoi(v)
	if err != nil {
		return 0, apierrors.NewValidationError("duration", ErrInvalidDuration)
	}
	return duration, nil
}

func queryRequired(r *http.Request, key string) (string, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return "", apierrors.NewValidationError(key, "required")
	}
	return v, nil
}

func (h httpHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*AppointmentRequest, bool) {
	request := new(AppointmentRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		h.writeError(w, r, apierrors.BadRequest("malformed request body"))
		return nil, false
	}
	return request, true
}

func (h httpHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	request, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateAppointment(r.Context(), *request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(created)
}

func (h httpHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	request, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	updated, err := h.service.UpdateAppointment(r.Context(), chi.URLParam(r, "id"), *request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(updated)
}

func (h httpHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	request := new(StatusRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		h.writeError(w, r, apierrors.BadRequest("malformed request body"))
		return
	}
	response, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), *request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(response)
}

func (h httpHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appointment, err := h.service.GetAppointment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointment)
}

func (h httpHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r, "date", false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter := Filter{
		DoctorID:  r.URL.Query().Get("doctorId"),
		PatientID: r.URL.Query().Get("patientId"),
		Date:      date,
		Status:    Status(r.URL.Query().Get("status")),
	}
	appointments, err := h.service.ListAppointments(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointments)
}

func (h httpHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAppointment(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h httpHandler) Availability(w http.ResponseWriter, r *http.Request) {
	doctorID, err := queryRequired(r, "doctorId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	date, err := queryDate(r, "date", true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	duration, err := queryDuration(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	availability, err := h.service.Availability(r.Context(), doctorID, date, duration)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(availability)
}

func (h httpHandler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	doctorID, err := queryRequired(r, "doctorId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	date, err := queryDate(r, "date", true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := queryRequired(r, "time")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	start, err := civil.ParseClock(v)
	if err != nil {
		h.writeError(w, r, apierrors.NewValidationError("time", ErrInvalidTime))
		return
	}
	duration, err := queryDuration(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if duration == 0 {
		duration = DefaultDuration
	}
	conflict, err := h.service.HasConflict(r.Context(), doctorID, date, start, duration, r.URL.Query().Get("excludeId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(ConflictCheck{
		DoctorID: doctorID,
		Date:     date,
		Time:     start,
		Duration: duration,
		Conflict: conflict,
	})
}

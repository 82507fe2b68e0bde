package billing

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

// Setup setups the routes handled by billing context.
func Setup(router chi.Router, logger *logrus.Logger, authorizer auth.Authorizer, dbConn database.Connection) {
	handler := &httpHandler{logger: logger, service: NewService(dbConn)}

	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.AllowedRoles(authorizer, auth.AdminRole, auth.ReceptionistRole))
		group.Post("/api/invoices", handler.CreateInvoice)
		group.Get("/api/invoices", handler.ListInvoices)
		group.Get("/api/invoices/{id}", handler.GetInvoice)
		group.Patch("/api/invoices/{id}/payment", handler.ApplyPayment)
	})
}

func (h httpHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	entry := logging.FromRequest(h.logger, r).WithError(err)
	if apierrors.StatusCode(err) >= http.StatusInternalServerError {
		entry.Error("billing request failed")
	} else {
		entry.Info("billing request rejected")
	}
	apierrors.Write(w, err)
}

func (h httpHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	request := new(InvoiceRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		h.writeError(w, r, apierrors.BadRequest("malformed request body"))
		return
	}
	invoice, err := h.service.CreateInvoice(r.Context(), *request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(invoice)
}

func (h httpHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.service.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(invoice)
}

func (h httpHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var limit, offset int
	var err error
	if v := query.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			h.writeError(w, r, apierrors.NewValidationError("limit", "must be a number"))
			return
		}
	}
	if v := query.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			h.writeError(w, r, apierrors.NewValidationError("offset", "must be a number"))
			return
		}
	}
	filter := Filter{PatientID: query.Get("patientId"), Status: Status(query.Get("status"))}
	invoices, err := h.service.ListInvoices(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(invoices)
}

func (h httpHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	request := new(PaymentRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		h.writeError(w, r, apierrors.BadRequest("malformed request body"))
		return
	}
	invoice, err := h.service.ApplyPayment(r.Context(), chi.URLParam(r, "id"), *request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(invoice)
}

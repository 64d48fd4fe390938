package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/internal/notify"
	"github.com/whatsorder/whatsorder-server/internal/storage"
)

// ========== Tenant handlers ==========

// HandleListTenants lists tenants
func (s *RESTServer) HandleListTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	tenants, total, err := s.store.ListTenants(ctx, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"total":   total,
	})
}

// HandleListActiveTenants lists tenants that can receive messages
func (s *RESTServer) HandleListActiveTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.store.ListActiveTenants(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"total":   len(tenants),
	})
}

// HandleCreateTenant creates a tenant
func (s *RESTServer) HandleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BusinessName        string           `json:"businessName" validate:"required,min=2,max=100"`
		BusinessType        string           `json:"businessType" validate:"required,oneof=restaurant pharmacy retail"`
		SessionID           string           `json:"sessionId" validate:"required"`
		PhoneNumber         string           `json:"phoneNumber" validate:"required"`
		Address             string           `json:"address"`
		MonthlyMessageLimit int              `json:"monthlyMessageLimit" validate:"min=0"`
		Branding            models.Variables `json:"branding"`
		HandlerConfig       models.Variables `json:"handlerConfig"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant := &models.Tenant{
		BusinessName:        req.BusinessName,
		BusinessType:        models.BusinessType(req.BusinessType),
		Status:              models.TenantStatusTrial,
		SessionID:           req.SessionID,
		PhoneNumber:         req.PhoneNumber,
		Address:             req.Address,
		MonthlyMessageLimit: req.MonthlyMessageLimit,
		Branding:            req.Branding,
		HandlerConfig:       req.HandlerConfig,
	}

	if tenant.MonthlyMessageLimit == 0 {
		tenant.MonthlyMessageLimit = 1000
	}

	if err := s.store.CreateTenant(r.Context(), tenant); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "tenant already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, tenant)
}

// HandleGetTenant gets a tenant
func (s *RESTServer) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	tenant, err := s.store.GetTenant(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, tenant)
}

// HandleUpdateTenant updates a tenant. Cached tenant and handler entries are
// evicted so the change takes effect on the next inbound message.
func (s *RESTServer) HandleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	var req struct {
		BusinessName        string           `json:"businessName" validate:"required,min=2,max=100"`
		BusinessType        string           `json:"businessType" validate:"required,oneof=restaurant pharmacy retail"`
		Status              string           `json:"status" validate:"required,oneof=trial active suspended cancelled"`
		SessionID           string           `json:"sessionId" validate:"required"`
		PhoneNumber         string           `json:"phoneNumber" validate:"required"`
		Address             string           `json:"address"`
		MonthlyMessageLimit int              `json:"monthlyMessageLimit" validate:"min=0"`
		Branding            models.Variables `json:"branding"`
		HandlerConfig       models.Variables `json:"handlerConfig"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant, err := s.store.GetTenant(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tenant.BusinessName = req.BusinessName
	tenant.BusinessType = models.BusinessType(req.BusinessType)
	tenant.Status = models.TenantStatus(req.Status)
	tenant.SessionID = req.SessionID
	tenant.PhoneNumber = req.PhoneNumber
	tenant.Address = req.Address
	tenant.MonthlyMessageLimit = req.MonthlyMessageLimit
	tenant.Branding = req.Branding
	tenant.HandlerConfig = req.HandlerConfig

	if err := s.store.UpdateTenant(ctx, tenant); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.bot.Reload(ctx, tenant.ID)

	s.respondJSON(w, http.StatusOK, tenant)
}

// HandleDeleteTenant deletes a tenant
func (s *RESTServer) HandleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	if err := s.store.DeleteTenant(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.bot.Reload(ctx, id)

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetTenantStats returns usage aggregates for a tenant
func (s *RESTServer) HandleGetTenantStats(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	stats, err := s.store.GetTenantStats(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, stats)
}

// HandleReloadTenant evicts the tenant's cached handler and tenant entries
func (s *RESTServer) HandleReloadTenant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	s.bot.Reload(r.Context(), id)

	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "reloaded",
	})
}

// HandleSendNotification delivers an operator-authored message to a customer.
// With NATS configured the request is published to the bus; otherwise it is
// sent inline through the gateway.
func (s *RESTServer) HandleSendNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	var req struct {
		Recipient string `json:"recipient" validate:"required"`
		Text      string `json:"text" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant, err := s.store.GetTenant(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.nc != nil {
		if err := notify.PublishSendEvent(s.nc, tenant.ID, req.Recipient, req.Text); err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else {
		if err := s.dispatcher.SendText(ctx, tenant.SessionID, req.Recipient, req.Text); err != nil {
			s.respondError(w, http.StatusBadGateway, err.Error())
			return
		}
	}

	log.Info().
		Str("tenant", tenant.BusinessName).
		Str("recipient", req.Recipient).
		Msg("Notification queued")

	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "sent",
	})
}

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

// ========== Order handlers ==========

// HandleListOrders lists a tenant's orders
func (s *RESTServer) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, total, err := s.store.ListOrders(ctx, tenantID, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
	})
}

// HandleGetOrder gets an order
func (s *RESTServer) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := s.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "order not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, order)
}

// HandleUpdateOrderStatus transitions an order and notifies the customer.
// With NATS configured the notification is composed and sent by the bus
// subscriber; otherwise it is handled inline. Either way, notification
// delivery failure does not roll back the status change.
func (s *RESTServer) HandleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req struct {
		Status string `json:"status" validate:"required,oneof=pending confirmed preparing ready delivered cancelled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := models.OrderStatus(req.Status)

	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "order not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.nc != nil {
		if err := s.store.UpdateOrderStatus(ctx, id, status); err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := notify.PublishStatusEvent(s.nc, order.TenantID, id, status); err != nil {
			log.Error().Err(err).
				Str("orderNumber", order.OrderNumber).
				Msg("Failed to publish status event")
		}
	} else {
		notification, tenant, err := s.bot.UpdateOrderStatus(ctx, order.TenantID, id, status)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := s.dispatcher.SendText(ctx, tenant.SessionID, notification.Recipient, notification.Text); err != nil {
			log.Error().Err(err).
				Str("orderNumber", order.OrderNumber).
				Str("recipient", notification.Recipient).
				Msg("Failed to send status notification")
		}
	}

	order.Status = status

	log.Info().
		Str("orderNumber", order.OrderNumber).
		Str("status", req.Status).
		Msg("Order status updated")

	s.respondJSON(w, http.StatusOK, order)
}

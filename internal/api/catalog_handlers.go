package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/internal/storage"
)

// ========== Catalog handlers ==========

// HandleListCatalogItems lists a tenant's catalog
func (s *RESTServer) HandleListCatalogItems(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	items, err := s.store.ListCatalogItems(r.Context(), tenantID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

// HandleCreateCatalogItem creates a catalog item
func (s *RESTServer) HandleCreateCatalogItem(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	var req struct {
		Code        string  `json:"code" validate:"required,max=10"`
		Name        string  `json:"name" validate:"required,min=2,max=100"`
		Description string  `json:"description"`
		Price       float64 `json:"price" validate:"min=0"`
		Category    string  `json:"category"`
		Available   *bool   `json:"available"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	item := &models.CatalogItem{
		TenantID:    tenantID,
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Available:   true,
	}
	if req.Available != nil {
		item.Available = *req.Available
	}

	if err := s.store.CreateCatalogItem(r.Context(), item); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "item code already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, item)
}

// HandleGetCatalogItem gets a catalog item
func (s *RESTServer) HandleGetCatalogItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "item_id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := s.store.GetCatalogItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "item not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, item)
}

// HandleUpdateCatalogItem updates a catalog item
func (s *RESTServer) HandleUpdateCatalogItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := uuid.Parse(chi.URLParam(r, "item_id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req struct {
		Code        string  `json:"code" validate:"required,max=10"`
		Name        string  `json:"name" validate:"required,min=2,max=100"`
		Description string  `json:"description"`
		Price       float64 `json:"price" validate:"min=0"`
		Category    string  `json:"category"`
		Available   bool    `json:"available"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.store.GetCatalogItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "item not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	item.Code = req.Code
	item.Name = req.Name
	item.Description = req.Description
	item.Price = req.Price
	item.Category = req.Category
	item.Available = req.Available

	if err := s.store.UpdateCatalogItem(ctx, item); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, item)
}

// HandleDeleteCatalogItem deletes a catalog item
func (s *RESTServer) HandleDeleteCatalogItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "item_id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := s.store.DeleteCatalogItem(r.Context(), itemID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "item not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

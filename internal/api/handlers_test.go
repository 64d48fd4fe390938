package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/internal/storage"
)

func seedAdmin(t *testing.T, store storage.Store) *models.User {
	t.Helper()

	user := &models.User{
		Email:    "admin@example.com",
		Username: "admin",
		IsAdmin:  true,
		IsActive: true,
		Settings: models.Variables{"password": "letmein-123"},
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func doJSON(t *testing.T, s *RESTServer, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *RESTServer) string {
	t.Helper()

	rec := doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "letmein-123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	token, _ := resp["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestLoginAndRefresh(t *testing.T) {
	s, store, _ := newTestServer(t)
	seedAdmin(t, store)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "letmein-123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "Bearer", resp.TokenType)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": resp.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s, store, _ := newTestServer(t)
	seedAdmin(t, store)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/tenants", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/tenants", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCurrentUser(t *testing.T) {
	s, store, _ := newTestServer(t)
	seedAdmin(t, store)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, "admin@example.com", user.Email)
}

func TestTenantLifecycle(t *testing.T) {
	s, store, _ := newTestServer(t)
	seedAdmin(t, store)
	token := login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/tenants", token, map[string]interface{}{
		"businessName": "API Diner",
		"businessType": "restaurant",
		"sessionId":    "api-diner",
		"phoneNumber":  "27821112222",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var tenant models.Tenant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tenant))
	require.Equal(t, models.TenantStatusTrial, tenant.Status)
	require.Equal(t, 1000, tenant.MonthlyMessageLimit)

	// Invalid business type is rejected before it reaches the store
	rec = doJSON(t, s, http.MethodPost, "/api/v1/tenants", token, map[string]interface{}{
		"businessName": "Bad Type",
		"businessType": "barbershop",
		"sessionId":    "bad-type",
		"phoneNumber":  "27820000000",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPut, "/api/v1/tenants/"+tenant.ID.String(), token, map[string]interface{}{
		"businessName": "API Diner",
		"businessType": "restaurant",
		"status":       "active",
		"sessionId":    "api-diner",
		"phoneNumber":  "27821112222",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := store.GetTenant(context.Background(), tenant.ID)
	require.NoError(t, err)
	require.Equal(t, models.TenantStatusActive, stored.Status)

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/tenants/"+tenant.ID.String(), token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/tenants/"+tenant.ID.String(), token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogLifecycle(t *testing.T) {
	s, store, _ := newTestServer(t)
	seedAdmin(t, store)
	tenant := seedActiveTenant(t, store)
	token := login(t, s)

	base := "/api/v1/tenants/" + tenant.ID.String() + "/catalog"

	rec := doJSON(t, s, http.MethodPost, base, token, map[string]interface{}{
		"code":     "02",
		"name":     "Flat White",
		"price":    32.5,
		"category": "Drinks",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var item models.CatalogItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.True(t, item.Available)

	// Duplicate code within the tenant conflicts
	rec = doJSON(t, s, http.MethodPost, base, token, map[string]interface{}{
		"code": "02",
		"name": "Another Flat White",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, s, http.MethodPut, base+"/"+item.ID.String(), token, map[string]interface{}{
		"code":      "02",
		"name":      "Flat White",
		"price":     35.0,
		"category":  "Drinks",
		"available": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := store.GetCatalogItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, 35.0, stored.Price)
	require.False(t, stored.Available)

	rec = doJSON(t, s, http.MethodDelete, base+"/"+item.ID.String(), token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUpdateOrderStatusNotifiesInline(t *testing.T) {
	s, store, dispatcher := newTestServer(t)
	seedAdmin(t, store)
	tenant := seedActiveTenant(t, store)
	token := login(t, s)

	order := &models.Order{
		TenantID:      tenant.ID,
		CustomerPhone: "cust@c.us",
		Total:         45,
		DeliveryType:  models.DeliveryTypeDelivery,
		Status:        models.OrderStatusPending,
	}
	require.NoError(t, store.CreateOrder(context.Background(), order))

	rec := doJSON(t, s, http.MethodPut, "/api/v1/orders/"+order.ID.String()+"/status", token, map[string]string{
		"status": "confirmed",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := store.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusConfirmed, stored.Status)

	// Without a bus the notification goes straight through the gateway
	sends := dispatcher.sent()
	require.Len(t, sends, 1)
	require.Equal(t, "webhook-diner", sends[0].Session)
	require.Equal(t, "cust@c.us", sends[0].To)
	require.Contains(t, sends[0].Text, stored.OrderNumber)

	rec = doJSON(t, s, http.MethodPut, "/api/v1/orders/"+order.ID.String()+"/status", token, map[string]string{
		"status": "lost",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTenantStatsEndpoint(t *testing.T) {
	s, store, _ := newTestServer(t)
	seedAdmin(t, store)
	tenant := seedActiveTenant(t, store)
	token := login(t, s)

	require.NoError(t, store.CreateOrder(context.Background(), &models.Order{
		TenantID: tenant.ID, CustomerPhone: "a", Total: 120, Status: models.OrderStatusPending,
	}))

	rec := doJSON(t, s, http.MethodGet, "/api/v1/tenants/"+tenant.ID.String()+"/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.TenantStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, int64(1), stats.TotalOrders)
	require.Equal(t, 120.0, stats.TotalRevenue)
}

func TestSystemStatsAndClearCache(t *testing.T) {
	s, store, _ := newTestServer(t)
	seedAdmin(t, store)
	seedActiveTenant(t, store)
	token := login(t, s)

	// Prime the caches through the webhook path
	postWebhook(t, s, map[string]interface{}{
		"event":   "message",
		"session": "webhook-diner",
		"payload": map[string]interface{}{"from": "cust@c.us", "body": "menu"},
	})

	rec := doJSON(t, s, http.MethodGet, "/api/v1/system/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, float64(1), stats["cachedHandlers"])
	require.Equal(t, float64(1), stats["cachedTenants"])

	rec = doJSON(t, s, http.MethodPost, "/api/v1/system/clear-cache", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/system/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, float64(0), stats["cachedHandlers"])
}

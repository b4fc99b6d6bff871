package handlers

import (
	"net/http"
	"testing"

	"github.com/trainup/backend/internal/models"
)

func TestRolesEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	_, adminToken := createTestUser(t, env.db, "roles-admin@test.com", "password123", models.RoleUser, models.RoleAdmin)
	_, userToken := createTestUser(t, env.db, "roles-user@test.com", "password123", models.RoleUser)

	t.Run("GET /api/roles/ lists the seeded catalog", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/roles/", nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].([]any)
		if len(data) != 3 {
			t.Fatalf("expected 3 seeded roles, got %d", len(data))
		}
	})

	t.Run("non-admin is locked out of the catalog", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/roles/", nil, authHeaders(userToken))
		assertStatus(t, resp, http.StatusForbidden)
	})

	t.Run("anonymous is rejected before the role check", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/roles/", nil, nil)
		assertStatus(t, resp, http.StatusUnauthorized)
	})

	t.Run("POST /api/roles/ creates and normalizes the tag", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/roles/", map[string]any{
			"value":       "coach",
			"description": "External coaching staff",
		}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		if data["value"] != "COACH" {
			t.Fatalf("expected normalized value COACH, got %v", data["value"])
		}
	})

	t.Run("duplicate value rejected", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/roles/", map[string]any{
			"value": "COACH",
		}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "role with this value already exists")
	})

	t.Run("GET /api/roles/:value is case-insensitive", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/roles/coach", nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		if data["value"] != "COACH" {
			t.Fatalf("expected COACH, got %v", data["value"])
		}
	})

	t.Run("GET /api/roles/:value unknown returns 404", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/roles/WIZARD", nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertEnvelopeError(t, body, "role not found")
	})

	t.Run("PATCH /api/roles/:value updates the description", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPatch, "/api/roles/COACH", map[string]any{
			"description": "Updated description",
		}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		if data["description"] != "Updated description" {
			t.Fatalf("expected updated description, got %v", data["description"])
		}
	})

	t.Run("DELETE /api/roles/:value drops the role and its grants", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/roles/COACH", nil, authHeaders(adminToken))
		assertStatus(t, resp, http.StatusOK)

		resp = performRequest(t, env.app, http.MethodGet, "/api/roles/COACH", nil, authHeaders(adminToken))
		assertStatus(t, resp, http.StatusNotFound)

		var count int64
		env.db.Model(&models.Role{}).Where("value = ?", "COACH").Count(&count)
		if count != 0 {
			t.Fatal("expected role row removed")
		}
	})
}

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func preflight(path, origin string) *http.Request {
	req := httptest.NewRequest(http.MethodOptions, path, nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Custom-Header")
	return req
}

func TestCORS_AnyOriginByDefault(t *testing.T) {
	t.Parallel()

	for _, origins := range [][]string{nil, {"*"}} {
		router := newCharacterRouter(newFakeCharacters(), Options{AllowOrigins: origins})

		w := serve(router, preflight("/api/characters", "https://frontend.example"))
		assert.Less(t, w.Code, 300)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

		req := httptest.NewRequest(http.MethodGet, "/api/characters", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w = serve(router, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	t.Parallel()

	router := newCharacterRouter(newFakeCharacters(), Options{
		AllowOrigins: []string{"https://frontend.example"},
	})

	w := serve(router, preflight("/api/characters", "https://frontend.example"))
	assert.Less(t, w.Code, 300)
	assert.Equal(t, "https://frontend.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, preflight("/api/characters", "https://evil.example"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSwagger_OnlyInDevelopment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		dev      bool
		wantCode int
	}{
		{"development", true, http.StatusOK},
		{"production", false, http.StatusNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			router := newCharacterRouter(newFakeCharacters(), Options{Development: tc.dev})

			w := serve(router, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
			assert.Equal(t, tc.wantCode, w.Code)

			w = serve(router, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
			assert.Equal(t, tc.wantCode, w.Code)
			if tc.dev {
				assert.Contains(t, w.Body.String(), "/api/characters/{id}")
				assert.Contains(t, w.Body.String(), "Roster API")
			}
		})
	}
}

func TestHTTPSRedirect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		port         int
		forwarded    string
		wantCode     int
		wantLocation string
	}{
		{
			name:         "custom port",
			port:         8443,
			wantCode:     http.StatusTemporaryRedirect,
			wantLocation: "https://example.com:8443/api/characters?page=2",
		},
		{
			name:         "default https port",
			port:         443,
			wantCode:     http.StatusTemporaryRedirect,
			wantLocation: "https://example.com/api/characters?page=2",
		},
		{
			name:      "proxy terminated tls",
			port:      8443,
			forwarded: "https",
			wantCode:  http.StatusOK,
		},
		{
			name:     "disabled",
			port:     0,
			wantCode: http.StatusOK,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			router := newCharacterRouter(newFakeCharacters(), Options{HTTPSPort: tc.port})

			req := httptest.NewRequest(http.MethodGet, "http://example.com:8080/api/characters?page=2", nil)
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-Proto", tc.forwarded)
			}
			w := serve(router, req)

			assert.Equal(t, tc.wantCode, w.Code)
			assert.Equal(t, tc.wantLocation, w.Header().Get("Location"))
		})
	}
}

func TestAuthorization_WriteRoutes(t *testing.T) {
	t.Parallel()

	const secret = "test-signing-key"
	router := newCharacterRouter(newFakeCharacters(), Options{JWTSecret: secret})

	sign := func(key string, method jwt.SigningMethod) string {
		tok := jwt.NewWithClaims(method, jwt.MapClaims{
			"sub": "tester",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		s, err := tok.SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}

	body := `{"Nume":"Bard","Poza":"","Health":1,"Armor":1,"Mana":1}`

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"wrong key", "Bearer " + sign("other-key", jwt.SigningMethodHS256), http.StatusUnauthorized},
		{"wrong alg", "Bearer " + sign(secret, jwt.SigningMethodHS512), http.StatusUnauthorized},
		{"valid", "Bearer " + sign(secret, jwt.SigningMethodHS256), http.StatusCreated},
	}

	for _, tc := range tests {
		req := jsonRequest(http.MethodPost, "/api/characters", body)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := serve(router, req)
		assert.Equal(t, tc.wantCode, w.Code, tc.name)
	}

	// Reads stay open.
	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/characters", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorization_EmptySecretIsOpen(t *testing.T) {
	t.Parallel()

	engine := gin.New()
	engine.Use(Authorization(""))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := serve(engine, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())

	w = serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(requestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())
}

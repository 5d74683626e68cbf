package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"geoip/internal/ipaddr"
	"geoip/internal/model"
	"geoip/internal/rangetable"
)

type mockGeoService struct {
	lookupIPFunc func(ctx context.Context, ip string) (*model.IPResponse, error)
	stats        rangetable.Stats
	ready        bool
}

func (m *mockGeoService) LookupIP(ctx context.Context, ip string) (*model.IPResponse, error) {
	return m.lookupIPFunc(ctx, ip)
}

func (m *mockGeoService) Stats() rangetable.Stats {
	return m.stats
}

func (m *mockGeoService) Ready() bool {
	return m.ready
}

func TestHandler_LookupIP(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		mockResponse *model.IPResponse
		mockError    error
		expectedCode int
		expectedBody string
	}{
		{
			name: "success",
			path: "/api/v1/lookup/87.229.134.24",
			mockResponse: &model.IPResponse{
				IP:          "87.229.134.24",
				CountryCode: "RU",
			},
			mockError:    nil,
			expectedCode: 200,
			expectedBody: `{"ip":"87.229.134.24","country_code":"RU"}`,
		},
		{
			name:         "invalid ip",
			path:         "/api/v1/lookup/invalid",
			mockResponse: nil,
			mockError:    fmt.Errorf("invalid IP address: %w", ipaddr.ErrInvalidAddressFormat),
			expectedCode: 400,
			expectedBody: `{"message":"Invalid IP address format: invalid"}`,
		},
		{
			name: "not found",
			path: "/api/v1/lookup/1.1.1.1",
			mockResponse: &model.IPResponse{
				IP:          "1.1.1.1",
				CountryCode: model.UnknownCountry,
			},
			expectedCode: 404,
			expectedBody: `{"message":"No country information found for this IP"}`,
		},
		{
			name:         "service failure",
			path:         "/api/v1/lookup/8.8.8.8",
			mockError:    errors.New("boom"),
			expectedCode: 500,
			expectedBody: `{"message":"Failed to lookup IP address"}`,
		},
	}

	logger, _ := zap.NewDevelopment()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &mockGeoService{
				lookupIPFunc: func(ctx context.Context, ip string) (*model.IPResponse, error) {
					return tt.mockResponse, tt.mockError
				},
			}

			h := NewHandler(mockService, logger)
			app := fiber.New()
			h.RegisterRoutes(app)

			req := httptest.NewRequest("GET", tt.path, nil)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}

			if resp.StatusCode != tt.expectedCode {
				t.Errorf("expected status code %d, got %d", tt.expectedCode, resp.StatusCode)
			}

			var body map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}

			expectedBody := make(map[string]interface{})
			if err := json.Unmarshal([]byte(tt.expectedBody), &expectedBody); err != nil {
				t.Fatal(err)
			}

			if !jsonEqual(body, expectedBody) {
				t.Errorf("expected body %v, got %v", expectedBody, body)
			}
		})
	}
}

func jsonEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || v != w {
			return false
		}
	}
	return true
}

func TestHandler_HealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		ready          bool
		expectedCode   int
		expectedStatus string
	}{
		{name: "ready", ready: true, expectedCode: 200, expectedStatus: "healthy"},
		{name: "loading", ready: false, expectedCode: 503, expectedStatus: "loading"},
	}

	logger, _ := zap.NewDevelopment()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&mockGeoService{ready: tt.ready}, logger)

			app := fiber.New()
			h.RegisterRoutes(app)

			req := httptest.NewRequest("GET", "/api/v1/health", nil)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}

			if resp.StatusCode != tt.expectedCode {
				t.Errorf("expected status code %d, got %d", tt.expectedCode, resp.StatusCode)
			}

			var body map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}

			if body["status"] != tt.expectedStatus {
				t.Errorf("expected status %q, got %v", tt.expectedStatus, body["status"])
			}
		})
	}
}

func TestHandler_Stats(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	h := NewHandler(&mockGeoService{
		ready: true,
		stats: rangetable.Stats{Ranges: 5, Blocks: 8, Entries: 8, LargestBlock: 1},
	}, logger)

	app := fiber.New()
	h.RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/stats", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected status code 200, got %d", resp.StatusCode)
	}

	var stats rangetable.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Ranges != 5 || stats.Blocks != 8 || stats.Entries != 8 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestHandler_Metrics(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	h := NewHandler(&mockGeoService{ready: true}, logger)

	app := fiber.New()
	h.RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected status code 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("expected Prometheus exposition output")
	}
}

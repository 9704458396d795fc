package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/reviewlens/reviewlens/internal/chat"
	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/dashboard"
	"github.com/reviewlens/reviewlens/internal/schema"
)

type stubChat struct {
	lastQuestion string
	response     chat.Response
}

func (s *stubChat) Ask(_ context.Context, question string) chat.Response {
	s.lastQuestion = question
	return s.response
}

type stubDashboards struct {
	lastName string
	bundle   dashboard.Bundle
	err      error
}

func (s *stubDashboards) Build(_ context.Context, name string) (dashboard.Bundle, error) {
	s.lastName = name
	if s.err != nil {
		return dashboard.Bundle{}, s.err
	}
	s.bundle.Dashboard = name
	return s.bundle, nil
}

type stubInsights struct {
	text string
	err  error
}

func (s *stubInsights) Compose(_ context.Context, _ dashboard.Bundle) (string, error) {
	return s.text, s.err
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("reviewlens-api", func(key string) (string, bool) {
		if key == "REVIEWLENS_PROFILE" {
			return "test", true
		}
		return "", false
	})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestHealthReportsConnectedDatabase(t *testing.T) {
	handler := NewHandler(testConfig(t), Dependencies{
		Health: func(context.Context) error { return nil },
	})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" || body["db"] != "connected" {
		t.Fatalf("body = %v", body)
	}
}

func TestHealthStaysOKWhenDatabaseIsDown(t *testing.T) {
	handler := NewHandler(testConfig(t), Dependencies{
		Health: func(context.Context) error { return errors.New("connection refused") },
	})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "unhealthy" {
		t.Fatalf("status field = %v, want unhealthy", body["status"])
	}
	if !strings.Contains(body["error"].(string), "connection refused") {
		t.Fatalf("error field = %v", body["error"])
	}
}

func TestListTablesReturnsRegistryEntries(t *testing.T) {
	handler := NewHandler(testConfig(t), Dependencies{Registry: schema.NewRegistry()})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/tables", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var entries []tableEntry
	if err := json.Unmarshal(recorder.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("entries = %d, want 5", len(entries))
	}
	ids := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.DisplayName == "" {
			t.Errorf("entry %q missing display name", entry.ID)
		}
		ids[entry.ID] = true
	}
	if !ids[schema.TableComplaints] || !ids[schema.TableProcessedReviews] {
		t.Fatalf("core tables missing from %v", ids)
	}
}

func TestChatPassesPromptThrough(t *testing.T) {
	runner := &stubChat{response: chat.Response{Insights: "three stars trend upward"}}
	handler := NewHandler(testConfig(t), Dependencies{Chat: runner})

	request := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"prompt":"top complaints"}`))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if runner.lastQuestion != "top complaints" {
		t.Fatalf("question = %q", runner.lastQuestion)
	}
	var response chat.Response
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if response.Insights != "three stars trend upward" {
		t.Fatalf("insights = %q", response.Insights)
	}
}

func TestChatRejectsBlankPrompt(t *testing.T) {
	handler := NewHandler(testConfig(t), Dependencies{Chat: &stubChat{}})

	request := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"prompt":"  "}`))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestChatRejectsUnknownFields(t *testing.T) {
	handler := NewHandler(testConfig(t), Dependencies{Chat: &stubChat{}})

	request := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"prompt":"hi","mode":"verbose"}`))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestDashboardEndpointsSelectTheirDashboard(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/api/social-insights", dashboard.Social},
		{"/api/trend-insights", dashboard.Trend},
		{"/api/complaint-insights", dashboard.Complaint},
	}
	for _, tc := range cases {
		builder := &stubDashboards{}
		handler := NewHandler(testConfig(t), Dependencies{
			Dashboards: builder,
			Insights:   &stubInsights{text: "steady"},
		})

		request := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(`{"page_key":"page1"}`))
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		if recorder.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", tc.path, recorder.Code)
		}
		if builder.lastName != tc.want {
			t.Fatalf("%s: built %q, want %q", tc.path, builder.lastName, tc.want)
		}
		var response insightResponse
		if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
			t.Fatalf("%s: decode body: %v", tc.path, err)
		}
		if response.Insights != "steady" || response.Error != "" {
			t.Fatalf("%s: response = %+v", tc.path, response)
		}
	}
}

func TestDashboardInsightFailureReportedInBody(t *testing.T) {
	handler := NewHandler(testConfig(t), Dependencies{
		Dashboards: &stubDashboards{},
		Insights:   &stubInsights{err: errors.New("model offline")},
	})

	request := httptest.NewRequest(http.MethodPost, "/api/trend-insights", strings.NewReader(`{"page_key":"page1"}`))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var response insightResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if response.Error != "model offline" {
		t.Fatalf("error = %q", response.Error)
	}
}

func TestCORSPreflightAllowed(t *testing.T) {
	handler := NewHandler(testConfig(t), Dependencies{})

	request := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing allow-origin header")
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	handler := NewHandler(testConfig(t), Dependencies{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/metrics", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "go_") {
		t.Fatal("expected default runtime metrics in exposition")
	}
}

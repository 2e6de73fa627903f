package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/prepd/internal/config"
	"github.com/kalambet/prepd/internal/performance"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

// useClient points every command at c for the duration of the test.
func useClient(t *testing.T, c *apiClient) {
	t.Helper()
	old := newAPIClient
	newAPIClient = func() (*apiClient, error) { return c, nil }
	t.Cleanup(func() { newAPIClient = old })
}

var ctx = context.Background()

const summaryJSON = `{"record":{"interviewsCompleted":1,"testsCompleted":0,"averageAccuracy":82,"difficultyLevel":"easy","lastUpdated":"2026-01-01T00:00:00Z"},"level":"Beginner","glyph":"🌱","insight":"You've completed **1 interview**.","interviewsCompleted":1,"testsCompleted":0,"accuracy":82}`

func TestRecordInterviewCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /performance/interviews": summaryJSON,
	})
	useClient(t, ts.client())
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"record", "interview", "82"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	req := ts.requests[0]
	if req.Method != "POST" || req.Path != "/performance/interviews" {
		t.Errorf("request = %s %s, want POST /performance/interviews", req.Method, req.Path)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		t.Fatalf("invalid request body: %v", err)
	}
	if body["accuracy"] != 82.0 {
		t.Errorf("body.accuracy = %v, want 82", body["accuracy"])
	}
}

func TestRecordTestCommand_Difficulty(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /performance/tests": summaryJSON,
	})
	useClient(t, ts.client())
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"record", "test", "91.5", "--difficulty", "HARD"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("invalid request body: %v", err)
	}
	if body["accuracy"] != 91.5 {
		t.Errorf("body.accuracy = %v, want 91.5", body["accuracy"])
	}
	if body["difficulty"] != "hard" {
		t.Errorf("body.difficulty = %v, want hard", body["difficulty"])
	}
}

func TestRecordCommand_MissingArgs(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"record", "interview"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing args")
	}
	if !strings.Contains(err.Error(), "accepts 1 arg") {
		t.Errorf("error = %q, want it to mention the argument count", err.Error())
	}
}

func TestRecordCommand_ServerRejects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"error":{"message":"accuracy must be between 0 and 100","type":"invalid_request_error"}}`))
	}))
	defer ts.Close()
	useClient(t, &apiClient{baseURL: ts.URL, token: "t", httpClient: ts.Client()})
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"record", "interview", "140"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for rejected accuracy")
	}
	if !strings.Contains(err.Error(), "between 0 and 100") {
		t.Errorf("error = %q, want the server message", err.Error())
	}
}

func TestParseAccuracy(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"82", 82, false},
		{" 67.5 ", 67.5, false},
		{"90%", 90, false},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAccuracy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAccuracy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAccuracy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAdjustCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PATCH /performance": summaryJSON,
	})
	useClient(t, ts.client())
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"adjust", "--difficulty", "medium", "--interviews", "4"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("invalid request body: %v", err)
	}
	if body["difficultyLevel"] != "medium" {
		t.Errorf("body.difficultyLevel = %v, want medium", body["difficultyLevel"])
	}
	if body["interviewsCompleted"] != 4.0 {
		t.Errorf("body.interviewsCompleted = %v, want 4", body["interviewsCompleted"])
	}
	if _, ok := body["testsCompleted"]; ok {
		t.Error("unset flags must not be sent")
	}
}

func TestAttemptsSubmit_Stdin(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /coding-attempts": `{"id":"a-1","language":"go","code":"package main","status":"submitted","timestamp":"2026-01-01T00:00:00Z"}`,
	})
	useClient(t, ts.client())
	defer rootCmd.SetArgs(nil)
	defer rootCmd.SetIn(nil)

	rootCmd.SetIn(strings.NewReader("package main"))
	rootCmd.SetArgs([]string{"attempts", "submit", "--language", "go"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("invalid request body: %v", err)
	}
	if body["code"] != "package main" {
		t.Errorf("body.code = %v, want stdin contents", body["code"])
	}
	if body["language"] != "go" {
		t.Errorf("body.language = %v, want go", body["language"])
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestRenderInsight(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = false
	got := renderInsight("You've completed **3 interviews**.")
	want := "You've completed " + colorBold + "3 interviews" + colorReset + "."
	if got != want {
		t.Errorf("renderInsight = %q, want %q", got, want)
	}

	noColor = true
	if got := renderInsight("**a** and **b**"); got != "a and b" {
		t.Errorf("renderInsight without color = %q, want %q", got, "a and b")
	}

	if got := renderInsight("broken **marker"); got != "broken **marker" {
		t.Errorf("unbalanced markers should be left alone, got %q", got)
	}
}

func TestLevelColor(t *testing.T) {
	if levelColor(performance.InterviewReady) != colorGreen {
		t.Error("Interview Ready should be green")
	}
	if levelColor(performance.Beginner) != colorYellow {
		t.Error("Beginner should be yellow")
	}
}

func TestDataExportFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/performance":
			w.Write([]byte(summaryJSON))
		case "/activities":
			if r.URL.Query().Get("offset") == "0" {
				w.Write([]byte(`[{"id":"act-1","kind":"interview","accuracy":82,"created_at":"2026-01-01T00:00:00Z"}]`))
				return
			}
			w.Write([]byte(`[]`))
		case "/coding-attempts":
			w.Write([]byte(`[{"id":"a-1","language":"go","code":"x","status":"submitted","timestamp":"2026-01-01T00:00:00Z"}]`))
		default:
			w.WriteHeader(404)
		}
	}))
	defer srv.Close()

	client := &apiClient{baseURL: srv.URL, token: "t", httpClient: srv.Client()}

	var buf bytes.Buffer
	n, err := exportData(ctx, client, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("exported %d records, want 3", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 JSONL lines, got %d", len(lines))
	}

	wantTypes := []string{"performance", "activity", "coding_attempt"}
	for i, line := range lines {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("invalid JSONL line %d: %v", i, err)
		}
		if record["type"] != wantTypes[i] {
			t.Errorf("line %d type = %v, want %s", i, record["type"], wantTypes[i])
		}
		if record["data"] == nil {
			t.Errorf("line %d has no data", i)
		}
	}
}

func TestDataExport_EmptyRecordSkipped(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /performance":     `{"record":null,"level":"Beginner","glyph":"🌱","insight":"x","interviewsCompleted":0,"testsCompleted":0,"accuracy":0}`,
		"GET /activities":      `[]`,
		"GET /coding-attempts": `[]`,
	})

	var buf bytes.Buffer
	n, err := exportData(ctx, ts.client(), &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 || buf.Len() != 0 {
		t.Errorf("expected no output, got %d records: %q", n, buf.String())
	}
}

func TestAPIClientAuth(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok"}`,
	})

	client := ts.client()
	client.token = "my-secret-token"

	_, err := client.get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Auth != "Bearer my-secret-token" {
		t.Errorf("auth = %q, want 'Bearer my-secret-token'", ts.requests[0].Auth)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"unauthorized","type":"auth_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/performance")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "unauthorized") {
		t.Errorf("error = %q, want status and message", err.Error())
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4000
	cfg.Performance.Averaging = "combined"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := map[string]bool{}
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "4000" {
			found["port"] = true
		}
		if k.Key == "performance.averaging" && k.Value == "combined" {
			found["averaging"] = true
		}
	}
	if !found["port"] || !found["averaging"] {
		t.Errorf("ShowAll output missing expected keys: %v", found)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID = %q, want 01234567", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q, want abc", got)
	}
}

func TestCountLabel(t *testing.T) {
	tests := []struct {
		count, limit int
		want         string
	}{
		{5, 100, "5"},
		{0, 100, "0"},
		{100, 100, "100+"},
		{150, 100, "150+"},
	}
	for _, tt := range tests {
		got := countLabel(tt.count, tt.limit)
		if got != tt.want {
			t.Errorf("countLabel(%d, %d) = %q, want %q", tt.count, tt.limit, got, tt.want)
		}
	}
}

func TestClientSummary_NotSaved(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(503)
		w.Write([]byte(`{"error":{"message":"storage unavailable","type":"storage_error"},"record":{"interviewsCompleted":1,"testsCompleted":0,"averageAccuracy":82,"difficultyLevel":"easy","lastUpdated":"2026-01-01T00:00:00.000Z"}}`))
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, token: "t", httpClient: ts.Client()}
	s, err := client.summary(ctx, http.MethodPost, "/performance/interviews", map[string]any{"accuracy": 82})
	if !errors.Is(err, errNotSaved) {
		t.Fatalf("err = %v, want errNotSaved", err)
	}
	if s.Record == nil || s.Record.AverageAccuracy != 82 {
		t.Fatalf("summary should carry the unsaved record, got %+v", s.Record)
	}
	if s.InterviewsCompleted != 1 {
		t.Errorf("interviewsCompleted = %d, want 1", s.InterviewsCompleted)
	}
}

func TestClientSummary_RequestError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"error":{"message":"no fields to update","type":"invalid_request_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, token: "t", httpClient: ts.Client()}
	_, err := client.summary(ctx, http.MethodPatch, "/performance", map[string]any{})

	var reqErr *requestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want *requestError", err)
	}
	if reqErr.StatusCode != 400 || reqErr.Type != "invalid_request_error" {
		t.Errorf("requestError = %+v", reqErr)
	}
}

func TestNewRequestError_PlainBody(t *testing.T) {
	err := newRequestError(502, []byte("bad gateway\n"))
	if err.Error() != "server returned 502: bad gateway" {
		t.Errorf("Error() = %q", err.Error())
	}
}

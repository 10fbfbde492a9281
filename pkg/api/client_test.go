package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testConfig(url string) Config {
	return DefaultConfig().WithBaseURL(url).WithTimeout(2 * time.Second)
}

func TestDefaultConfig_BaseURLFromEnv(t *testing.T) {
	t.Setenv(BaseURLEnv, "")
	if got := DefaultConfig().BaseURL; got != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", got, DefaultBaseURL)
	}

	t.Setenv(BaseURLEnv, "http://localhost:5000")
	if got := DefaultConfig().BaseURL; got != "http://localhost:5000" {
		t.Errorf("BaseURL = %q, want env override", got)
	}
}

func TestClient_URL(t *testing.T) {
	c := NewClient(testConfig("http://example.com/"), nil)
	tests := map[string]string{
		"":                "http://example.com/",
		"/":               "http://example.com/",
		"/api/auth/login": "http://example.com/api/auth/login",
		"api/ideas":       "http://example.com/api/ideas",
	}
	for path, want := range tests {
		if got := c.URL(path); got != want {
			t.Errorf("URL(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestClient_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json content type")
		}
		if r.Header.Get("Authorization") != "Bearer abc" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":"t1","role":"user"}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL).WithDebug(true), nil)
	resp, err := c.Send(context.Background(), Request{
		Method:        http.MethodPost,
		Path:          "/api/auth/login",
		Body:          map[string]string{"email": "a@b.c"},
		Authorization: "Bearer abc",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Status != http.StatusCreated {
		t.Errorf("Status = %d, want 201", resp.Status)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := resp.Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.Token != "t1" {
		t.Errorf("Token = %q", out.Token)
	}
}

func TestClient_Send_NoAuthorization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("Authorization header should be absent")
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), nil)
	if _, err := c.Send(context.Background(), Request{Path: "/"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
}

func TestClient_Send_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid credentials"}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), nil)
	_, err := c.Send(context.Background(), Request{Method: http.MethodPost, Path: "/api/auth/login"})

	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("expected *HTTPError, got %T: %v", err, err)
	}
	if herr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", herr.StatusCode)
	}
	if herr.Message != "Invalid credentials" {
		t.Errorf("Message = %q", herr.Message)
	}
	if StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("StatusCode(err) = %d", StatusCode(err))
	}
	if IsRetryable(err) {
		t.Error("401 must not be retryable")
	}
}

func TestClient_Send_HTTPErrorWithoutJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), nil)
	_, err := c.Send(context.Background(), Request{Path: "/api/ideas"})

	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if herr.Message != "" {
		t.Errorf("Message = %q, want empty", herr.Message)
	}
	if herr.Body == "" {
		t.Error("expected raw body to be kept")
	}
}

func TestClient_Send_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewClient(testConfig(url), nil)
	_, err := c.Send(context.Background(), Request{Path: "/"})
	if !IsUnreachable(err) {
		t.Fatalf("expected unreachable error, got %T: %v", err, err)
	}
	if IsAborted(err) {
		t.Error("unreachable error must not be classified as aborted")
	}
	if !IsRetryable(err) {
		t.Error("unreachable error should be retryable")
	}
}

func TestClient_Send_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(testConfig(server.URL).WithTimeout(50*time.Millisecond), nil)
	_, err := c.Send(context.Background(), Request{Path: "/slow"})
	if !IsAborted(err) {
		t.Fatalf("expected aborted error, got %T: %v", err, err)
	}
}

func TestClient_Send_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(testConfig(server.URL), nil)
	_, err := c.Send(ctx, Request{Path: "/"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("caller cancellation must not be retryable")
	}
}

func TestResponse_Decode_ParseError(t *testing.T) {
	resp := &Response{Status: 200, Data: []byte(`<html>`)}
	var v map[string]any
	err := resp.Decode(&v)

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.StatusCode != 200 {
		t.Errorf("StatusCode = %d", perr.StatusCode)
	}
}

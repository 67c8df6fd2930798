package httpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anved/listkeeper/internal/httpclient"
)

func TestClient_SSRFProtection(t *testing.T) {
	client := httpclient.New(&httpclient.Config{
		SSRFMode:         "strict",
		TimeoutMS:        1000,
		ConnectTimeoutMS: 500,
		MaxRedirects:     3,
		MaxResponseBytes: 1048576,
	})

	tests := []struct {
		name      string
		url       string
		wantError bool
	}{
		{
			name:      "localhost blocked",
			url:       "http://localhost/test",
			wantError: true,
		},
		{
			name:      "127.0.0.1 blocked",
			url:       "http://127.0.0.1/test",
			wantError: true,
		},
		{
			name:      "loopback IPv6 blocked",
			url:       "http://[::1]/test",
			wantError: true,
		},
		{
			name:      "private 192.168 blocked",
			url:       "http://192.168.1.1/test",
			wantError: true,
		},
		{
			name:      "private 10.x blocked",
			url:       "http://10.0.0.1/test",
			wantError: true,
		},
		{
			name:      "private 172.16 blocked",
			url:       "http://172.16.0.1/test",
			wantError: true,
		},
		{
			name:      "link-local blocked",
			url:       "http://169.254.1.1/test",
			wantError: true,
		},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Get(ctx, tt.url)

			if tt.wantError {
				if err == nil {
					t.Errorf("expected SSRF error, got nil")
				} else if !httpclient.IsSSRFError(err) {
					// For some tests, connection errors are also acceptable
					// (e.g., if the network doesn't allow the connection at all)
					t.Logf("got error: %v (may be acceptable)", err)
				}
			} else {
				if httpclient.IsSSRFError(err) {
					t.Errorf("unexpected SSRF error: %v", err)
				}
			}
		})
	}
}

func TestClient_SSRFOff(t *testing.T) {
	client := httpclient.New(&httpclient.Config{
		SSRFMode:         "off",
		TimeoutMS:        1000,
		ConnectTimeoutMS: 500,
		MaxRedirects:     3,
		MaxResponseBytes: 1048576,
	})

	ctx := context.Background()

	// With SSRF off, localhost should not be blocked at the SSRF check level
	// (it will still fail to connect if nothing is listening)
	_, err := client.Get(ctx, "http://localhost:99999/test")

	// Should not be an SSRF error
	if httpclient.IsSSRFError(err) {
		t.Errorf("unexpected SSRF error when mode is off: %v", err)
	}
}

func TestClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := httpclient.New(&httpclient.Config{
		SSRFMode:         "off",
		TimeoutMS:        2000,
		ConnectTimeoutMS: 1000,
		MaxRedirects:     1,
		MaxResponseBytes: 1048576,
	})

	body, resp, err := client.GetJSON(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body %q", body)
	}
}

func TestClient_GetJSON_ResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 128))
	}))
	defer srv.Close()

	client := httpclient.New(&httpclient.Config{
		SSRFMode:         "off",
		TimeoutMS:        2000,
		ConnectTimeoutMS: 1000,
		MaxRedirects:     1,
		MaxResponseBytes: 64,
	})

	if _, _, err := client.GetJSON(context.Background(), srv.URL); err == nil {
		t.Error("expected error for oversized response")
	}
}

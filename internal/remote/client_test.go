package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(2*time.Second, zaptest.NewLogger(t))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetSendsQueryAndRequestID(t *testing.T) {
	var gotPath, gotQuery, gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("customerName")
		gotID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"Sale ID": 1}]`))
	}))
	defer server.Close()

	c := newTestClient(t)
	ctx := WithRequestID(context.Background(), "load-1")
	body, err := c.Get(ctx, server.URL+"/", Sales, url.Values{"customerName": {"Acme & Sons"}})

	require.NoError(t, err)
	assert.JSONEq(t, `[{"Sale ID": 1}]`, string(body))
	assert.Equal(t, "/sales", gotPath)
	assert.Equal(t, "Acme & Sons", gotQuery)
	assert.Equal(t, "load-1", gotID)
}

func TestNon2xxBecomesHTTPError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"error envelope", `{"error": "Customer already exists"}`, "Customer already exists"},
		{"plain body", "database is locked\n", "database is locked"},
		{"empty body", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient(t).Post(context.Background(), server.URL, Customers, map[string]string{"Customer Name": "Acme"})

			var herr *HTTPError
			require.True(t, errors.As(err, &herr), "got %v", err)
			assert.Equal(t, http.StatusConflict, herr.StatusCode)
			assert.Equal(t, http.MethodPost, herr.Method)
			assert.Equal(t, tt.message, herr.Message)
			assert.Contains(t, herr.Error(), "HTTP 409")
		})
	}
}

func TestPostSendsJSON(t *testing.T) {
	var got map[string]any
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"Customer Name": "Acme"}`))
	}))
	defer server.Close()

	body, err := newTestClient(t).Post(context.Background(), server.URL, Customers, map[string]string{"Customer Name": "Acme"})
	require.NoError(t, err)
	assert.Contains(t, contentType, "application/json")
	assert.Equal(t, "Acme", got["Customer Name"])
	assert.JSONEq(t, `{"Customer Name": "Acme"}`, string(body))
}

func TestDeleteEscapesKey(t *testing.T) {
	var method, rawPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		rawPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(t)
	require.NoError(t, c.Delete(context.Background(), server.URL, Customers, "Acme Bricks/2"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/customers/Acme%20Bricks%2F2", rawPath)

	require.NoError(t, c.Delete(context.Background(), server.URL, Logs, ""))
	assert.Equal(t, "/logs", rawPath)
}

func TestNetworkErrorIsNotHTTPError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	_, err := newTestClient(t).Get(context.Background(), base, Customers, nil)
	require.Error(t, err)
	var herr *HTTPError
	assert.False(t, errors.As(err, &herr))
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "http://h:3000/customers", Endpoint("http://h:3000/", "/customers"))
	assert.Equal(t, "http://h:3000/sales/1", Endpoint("http://h:3000", "sales/1"))
}

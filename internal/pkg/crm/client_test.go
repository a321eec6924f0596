package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qpay/quote_pay_server/config"
)

func newTestCRM(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	client := NewClient(&config.CRMConfig{
		BaseURL:        srv.URL,
		APIKey:         "test-key",
		TimeoutSeconds: 5,
		Tags:           []string{"payment"},
	})
	return client, srv
}

func TestClient_Sync_FindOrCreateThenNote(t *testing.T) {
	var notePath string
	var noteBody map[string]interface{}
	var authHeader string

	client, srv := newTestCRM(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/contacts/find-or-create":
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "c-42", "email": "alice@example.com"})
		default:
			notePath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&noteBody)
			w.WriteHeader(http.StatusOK)
		}
	})
	defer srv.Close()

	err := client.Sync(context.Background(), &SyncRequest{
		Email: "alice@example.com",
		Name:  "Alice",
		Note:  "首笔付款入账",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", authHeader)
	assert.Equal(t, "/contacts/c-42/notes", notePath)
	assert.Equal(t, "首笔付款入账", noteBody["note"])

	// 未显式指定标签时使用配置里的默认标签
	tags, ok := noteBody["tags"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, "payment", tags[0])
}

func TestClient_Sync_RequiresEmail(t *testing.T) {
	client := NewClient(&config.CRMConfig{BaseURL: "http://localhost:0"})

	err := client.Sync(context.Background(), &SyncRequest{Note: "no email"})
	assert.Error(t, err)
}

func TestClient_Sync_ContactWithoutID(t *testing.T) {
	client, srv := newTestCRM(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"email": "alice@example.com"})
	})
	defer srv.Close()

	err := client.Sync(context.Background(), &SyncRequest{Email: "alice@example.com", Note: "x"})
	assert.Error(t, err)
}

func TestClient_Sync_ServerErrorPropagates(t *testing.T) {
	client, srv := newTestCRM(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})
	defer srv.Close()

	err := client.Sync(context.Background(), &SyncRequest{Email: "alice@example.com", Note: "x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

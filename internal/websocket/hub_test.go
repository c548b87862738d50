package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/rpglife/internal/auth"
)

func asUser(id int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), id)))
	})
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublishReachesOnlyTheUser(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	alice := httptest.NewServer(asUser(1, hub))
	defer alice.Close()
	bob := httptest.NewServer(asUser(2, hub))
	defer bob.Close()

	aliceConn := dial(t, alice)
	bobConn := dial(t, bob)

	// Registration completes asynchronously, so keep publishing until the
	// first frame arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.Publish(1, "level_up", map[string]int{"level": 2})
			}
		}
	}()

	require.NoError(t, aliceConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, aliceConn.ReadJSON(&ev))
	assert.Equal(t, "level_up", ev.Type)
	assert.Equal(t, map[string]interface{}{"level": float64(2)}, ev.Payload)

	require.NoError(t, bobConn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := bobConn.ReadMessage()
	assert.Error(t, err)
}

func TestUnauthenticatedUpgradeIsRejected(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

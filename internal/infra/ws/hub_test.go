//go:build unit

package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func startHub(t *testing.T, userID uuid.UUID) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		hub.Serve(r.Context(), userID, conn)
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_PushReachesEveryConnectionOfUser(t *testing.T) {
	userID := uuid.New()
	hub, url := startHub(t, userID)

	first := dial(t, url)
	defer first.CloseNow()
	second := dial(t, url)
	defer second.CloseNow()

	require.Eventually(t, func() bool { return hub.Connections(userID) == 2 }, 2*time.Second, 10*time.Millisecond)

	queued := hub.Push(userID, Event{Type: "booking.accepted", Data: map[string]string{"status": "accepted"}})
	assert.Equal(t, 2, queued)

	for _, conn := range []*websocket.Conn{first, second} {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		var got struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}
		require.NoError(t, wsjson.Read(ctx, conn, &got))
		cancel()
		assert.Equal(t, "booking.accepted", got.Type)
		assert.Equal(t, "accepted", got.Data["status"])
	}
}

func TestHub_PushToOtherUserIsNoop(t *testing.T) {
	userID := uuid.New()
	hub, url := startHub(t, userID)

	conn := dial(t, url)
	defer conn.CloseNow()
	require.Eventually(t, func() bool { return hub.Connections(userID) == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 0, hub.Push(uuid.New(), Event{Type: "booking.created"}))
}

func TestHub_ClientCloseUnregisters(t *testing.T) {
	userID := uuid.New()
	hub, url := startHub(t, userID)

	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Connections(userID) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	assert.Eventually(t, func() bool { return hub.Connections(userID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

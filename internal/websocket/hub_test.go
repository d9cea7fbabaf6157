package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookinventory/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWsServer(t *testing.T) (*Hub, *auth.TokenIssuer, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	issuer := auth.NewTokenIssuer("ws-secret", time.Hour, time.Hour)
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, issuer, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, issuer, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestServeWsRejectsMissingOrInvalidToken(t *testing.T) {
	_, issuer, url := newWsServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	refresh, err := issuer.IssueRefresh(auth.Subject{ID: "u1", Email: "a@b.c", Role: "user"})
	require.NoError(t, err)
	_, resp, err = websocket.DefaultDialer.Dial(url+"?token="+refresh, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPublishReachesConnectedClients(t *testing.T) {
	hub, issuer, url := newWsServer(t)
	token, err := issuer.IssueAccess(auth.Subject{ID: "u1", Email: "a@b.c", Role: "user"})
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(EventStockChanged, map[string]interface{}{"book_id": "b1", "new_stock": 3})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, EventStockChanged, ev.Event)
	assert.Equal(t, "b1", ev.Data["book_id"])
	assert.EqualValues(t, 3, ev.Data["new_stock"])
}

func TestPublishOnNilHubIsNoop(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() { hub.Publish(EventStockChanged, nil) })
}

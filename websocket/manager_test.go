package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

func TestManager_NotifyDoesNotBlock(t *testing.T) {
	manager := NewManager(utils.NewNopLogger())

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBufferSize+10; i++ {
			manager.Notify(models.RunEvent{Type: models.EventStageStarted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
	assert.Len(t, manager.Broadcast, broadcastBufferSize)
}

func TestManager_BroadcastsToSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := NewManager(utils.NewNopLogger())
	go manager.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(manager.HandleConnections))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	received := make(chan models.RunEvent, 16)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var event models.RunEvent
			if json.Unmarshal(data, &event) == nil {
				received <- event
			}
		}
	}()

	// подписчик регистрируется асинхронно, поэтому событие повторяется до получения
	var got models.RunEvent
	require.Eventually(t, func() bool {
		manager.Notify(models.RunEvent{Type: models.EventStageCompleted, RunID: "run-1", Stage: models.StageSilverToGold, Violations: 2})
		select {
		case got = <-received:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, models.EventStageCompleted, got.Type)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 2, got.Violations)
}

func TestManager_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	manager := NewManager(utils.NewNopLogger())

	stopped := make(chan struct{})
	go func() {
		manager.Run(ctx)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

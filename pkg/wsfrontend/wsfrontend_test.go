package wsfrontend

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hapticsuite/buzzbridge/pkg/bridge"
	"github.com/hapticsuite/buzzbridge/pkg/engine/sim"
	"github.com/hapticsuite/buzzbridge/pkg/wire"
)

// newRelay wires a manager whose callback feeds the relay, the way the
// console host does it.
func newRelay(t *testing.T) (*bridge.Manager, *Server, *httptest.Server) {
	t.Helper()

	var front *Server
	manager := bridge.New(sim.Factory, func(payload string) { front.Publish(payload) }, bridge.Options{})
	front = New(manager, nil)

	srv := httptest.NewServer(front)
	t.Cleanup(func() {
		manager.StopJSON()
		front.Close()
		srv.Close()
	})
	return manager, front, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	require.NoError(t, err)
	return conn
}

// readEvent reads the next text frame and decodes it.
func readEvent(t *testing.T, conn *websocket.Conn) wire.Event {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var ev wire.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestServer_DeliversPublishedHistory(t *testing.T) {
	_, front, srv := newRelay(t)

	// Published before any frontend exists; a late connection still gets it.
	front.Publish(wire.Encode(wire.EngineError("early bird")))

	conn := dial(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ev := readEvent(t, conn)
	assert.Equal(t, wire.EventEngineError, ev.Type)
	assert.Equal(t, "early bird", ev.Message)
}

func TestServer_CommandRoundTrip(t *testing.T) {
	manager, _, srv := newRelay(t)

	conn := dial(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Equal(t, bridge.CodeOK, manager.StartJSON("").Code)
	ev := readEvent(t, conn)
	assert.Equal(t, wire.EventEngineStarted, ev.Type)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"op":"scan"}`)))

	ev = readEvent(t, conn)
	assert.Equal(t, wire.EventDeviceFound, ev.Type)
}

func TestServer_RejectedCommandDoesNotKillConnection(t *testing.T) {
	manager, front, srv := newRelay(t)

	conn := dial(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The bridge is not running, so the command is rejected server-side,
	// but the relay stays up and later events still flow.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"op":"scan"}`)))

	front.Publish(wire.Encode(wire.LogLine("info", "still here")))
	ev := readEvent(t, conn)
	assert.Equal(t, "still here", ev.Message)
	assert.Equal(t, "uninitialized", manager.PollState())
}

func TestServer_NewConnectionDisplacesOld(t *testing.T) {
	_, front, srv := newRelay(t)

	conn1 := dial(t, srv)
	conn2 := dial(t, srv)
	defer conn2.Close(websocket.StatusNormalClosure, "")

	// The first connection is torn down by the server.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := conn1.Read(ctx)
	require.Error(t, err)

	front.Publish(wire.Encode(wire.LogLine("info", "for the new frontend")))
	ev := readEvent(t, conn2)
	assert.Equal(t, "for the new frontend", ev.Message)
}

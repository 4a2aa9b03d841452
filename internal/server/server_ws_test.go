package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebsocketSendsInitialState(t *testing.T) {
	_, ts := newTestServer(t)

	roomID, hostID := createRoom(t, ts, "draw")
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/draw/" + roomID + "?playerId=" + hostID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	defer conn.Close()

	envelope := readWSEnvelope(t, conn, 5*time.Second)
	if envelope["type"] != "state" {
		t.Fatalf("expected first message type state, got %v", envelope["type"])
	}
	state, ok := envelope["state"].(map[string]any)
	if !ok || state["roomId"] != roomID {
		t.Fatalf("expected state for room %s, got %v", roomID, envelope["state"])
	}
}

func TestWebsocketPushesJoinEvents(t *testing.T) {
	_, ts := newTestServer(t)

	roomID, hostID := createRoom(t, ts, "timeline")
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/timeline/" + roomID + "?playerId=" + hostID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	defer conn.Close()

	if envelope := readWSEnvelope(t, conn, 5*time.Second); envelope["type"] != "state" {
		t.Fatalf("expected initial state, got %v", envelope["type"])
	}

	joinRoom(t, ts, "timeline", roomID, "Ben")

	envelope := readWSEnvelope(t, conn, 5*time.Second)
	if envelope["type"] != "player_joined" {
		t.Fatalf("expected player_joined push, got %v", envelope["type"])
	}
	state, ok := envelope["state"].(map[string]any)
	if !ok {
		t.Fatalf("expected state in push envelope")
	}
	players, _ := state["players"].([]any)
	if len(players) != 2 {
		t.Fatalf("expected 2 players in pushed state, got %d", len(players))
	}
}

func TestWebsocketRequiresPlayerID(t *testing.T) {
	_, ts := newTestServer(t)

	roomID, _ := createRoom(t, ts, "shed")
	resp := doRequest(t, ts, http.MethodGet, "/ws/shed/"+roomID, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestWebsocketUnknownRoomIs404(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/ws/draw/nope?playerId=x", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestLobbyWebsocketAnnouncesRooms(t *testing.T) {
	_, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/lobby"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	defer conn.Close()

	if envelope := readWSEnvelope(t, conn, 5*time.Second); envelope["type"] != "rooms" {
		t.Fatalf("expected initial rooms message, got %v", envelope["type"])
	}

	createRoom(t, ts, "draw")

	envelope := readWSEnvelope(t, conn, 5*time.Second)
	if envelope["type"] != "rooms" {
		t.Fatalf("expected rooms push, got %v", envelope["type"])
	}
	rooms, _ := envelope["rooms"].([]any)
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room in lobby push, got %d", len(rooms))
	}
}

func readWSEnvelope(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var envelope map[string]any
	if err := json.Unmarshal(payload, &envelope); err != nil {
		t.Fatalf("decode websocket message: %v", err)
	}
	return envelope
}

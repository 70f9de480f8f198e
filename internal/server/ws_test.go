package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, path), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

// readUntilType discards frames until one of the wanted type arrives.
// State pushes interleave with everything else, so tests can never assume
// the next frame is the one they provoked.
func readUntilType(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		frame := readFrame(t, conn)
		if frame["type"] == want {
			return frame
		}
	}
	t.Fatalf("no %q frame before deadline", want)
	return nil
}

// readUntilState waits for a state push whose payload satisfies ok.
func readUntilState(t *testing.T, conn *websocket.Conn, ok func(map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		frame := readFrame(t, conn)
		if frame["type"] != "state" {
			continue
		}
		payload := frame["payload"].(map[string]any)
		if ok(payload) {
			return payload
		}
	}
	t.Fatal("no matching state frame before deadline")
	return nil
}

// handDealt reports whether a state payload describes a live hand: blinds
// have been posted, so currentBet is non-zero.
func handDealt(payload map[string]any) bool {
	bet, _ := payload["currentBet"].(float64)
	return bet > 0
}

func playerIn(t *testing.T, payload map[string]any, userID string) map[string]any {
	t.Helper()
	players, ok := payload["players"].([]any)
	require.True(t, ok)
	for _, raw := range players {
		p := raw.(map[string]any)
		if p["userId"] == userID {
			return p
		}
	}
	t.Fatalf("player %s not in state %v", userID, payload)
	return nil
}

func TestTableSocketRequiresUserID(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	t.Cleanup(ts.Close)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/tables/t1"), nil)
	require.NoError(t, err, "the upgrade itself succeeds")
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, closeBadRequest, closeErr.Code)
}

func TestTableSocketWelcomeThenState(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts, "/ws/tables/t100?user_id=alice&display_name=Alice")

	welcome := readFrame(t, conn)
	require.Equal(t, "welcome", welcome["type"])
	assert.Equal(t, "t100", welcome["payload"].(map[string]any)["tableId"])

	state := readUntilType(t, conn, "state")
	payload := state["payload"].(map[string]any)
	assert.Equal(t, "t100", payload["tableId"])
	me := playerIn(t, payload, "alice")
	assert.Equal(t, "Alice", me["displayName"])
	assert.EqualValues(t, env.cfg.Game.StartBalance, me["stack"])

	assert.Equal(t, 1, env.hub.TableWatchers("t100"))
}

func TestTableSocketDealsHeadsUp(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	t.Cleanup(ts.Close)

	alice := dialWS(t, ts, "/ws/tables/t200?user_id=alice&display_name=Alice")
	readUntilType(t, alice, "welcome")
	bob := dialWS(t, ts, "/ws/tables/t200?user_id=bob&display_name=Bob")
	readUntilType(t, bob, "welcome")

	// The second seat triggers the first deal. An idle table already
	// reports preflop, so wait for the posted blinds instead of the stage.
	aliceView := readUntilState(t, alice, handDealt)
	assert.EqualValues(t, env.cfg.Game.BigBlind, aliceView["currentBet"])
	assert.Empty(t, aliceView["communityCards"])
	assert.NotEmpty(t, aliceView["activeUserId"])

	// Each viewer sees their own hole cards and only a count for the other.
	me := playerIn(t, aliceView, "alice")
	require.Len(t, me["cards"], 2)
	them := playerIn(t, aliceView, "bob")
	assert.Nil(t, them["cards"])
	assert.EqualValues(t, 2, them["cardCount"])

	bobView := readUntilState(t, bob, handDealt)
	require.Len(t, playerIn(t, bobView, "bob")["cards"], 2)
	assert.Nil(t, playerIn(t, bobView, "alice")["cards"])
}

func TestTableSocketFoldEndsHand(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	t.Cleanup(ts.Close)

	alice := dialWS(t, ts, "/ws/tables/t300?user_id=alice&display_name=Alice")
	bob := dialWS(t, ts, "/ws/tables/t300?user_id=bob&display_name=Bob")

	view := readUntilState(t, alice, handDealt)
	actor := view["activeUserId"].(string)
	conn := alice
	winner := "bob"
	if actor == "bob" {
		conn = bob
		winner = "alice"
	}

	require.NoError(t, conn.WriteJSON(gin.H{
		"type":    "action",
		"payload": gin.H{"command": "fold"},
	}))

	done := readUntilType(t, alice, "handComplete")
	assert.Equal(t, "fold", done["winType"])
	winners, ok := done["winners"].([]any)
	require.True(t, ok)
	require.Len(t, winners, 1)
	assert.Equal(t, winner, winners[0])
	potAmount := done["potAmount"].(float64)
	assert.EqualValues(t, env.cfg.Game.SmallBlind+env.cfg.Game.BigBlind, potAmount,
		"an instant fold leaves only the blinds in the pot")
}

func TestTableSocketPingPong(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts, "/ws/tables/t400?user_id=alice")
	readUntilType(t, conn, "welcome")

	require.NoError(t, conn.WriteJSON(gin.H{"type": "ping"}))
	readUntilType(t, conn, "pong")
}

func TestLobbySocketUnknownLobby(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts, "/ws/lobby/ZZZZZZ")
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame["type"])
	assert.Equal(t, "Lobby not found", frame["message"])

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "the server closes after the error frame")
}

func TestLobbySocketBroadcasts(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	t.Cleanup(ts.Close)

	host := initDataFor(901, "ana", "Ana")
	body := decodeBody(t, env.do(http.MethodPost, "/api/lobby/create", gin.H{"initData": host}))
	code := body["lobbyCode"].(string)

	hostWS := dialWS(t, ts, "/ws/lobby/"+code+"?user_id=901")
	state := readFrame(t, hostWS)
	require.Equal(t, "lobbyState", state["type"])
	assert.Equal(t, code, state["lobby"].(map[string]any)["lobbyCode"])

	watcher := dialWS(t, ts, "/ws/lobby/"+code)
	readUntilType(t, watcher, "lobbyState")

	// REST membership changes reach every socket in the room.
	env.do(http.MethodPost, "/api/lobby/"+code+"/join", gin.H{"initData": initDataFor(902, "bo", "Bo")})
	joined := readUntilType(t, hostWS, "playerJoined")
	assert.Equal(t, "902", joined["player"].(map[string]any)["telegramId"])
	assert.EqualValues(t, 2, joined["playerCount"])
	readUntilType(t, watcher, "playerJoined")

	// Ready toggles echo to the room with the sender's ID.
	require.NoError(t, hostWS.WriteJSON(gin.H{"type": "ready", "ready": true}))
	ready := readUntilType(t, watcher, "playerReady")
	assert.Equal(t, "901", ready["userId"])
	assert.Equal(t, true, ready["ready"])

	env.do(http.MethodPost, "/api/lobby/"+code+"/leave", gin.H{"initData": initDataFor(902, "bo", "Bo")})
	left := readUntilType(t, hostWS, "playerLeft")
	assert.Equal(t, "902", left["telegramId"])
}

func TestLobbySocketGameStarted(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	t.Cleanup(ts.Close)

	host := initDataFor(911, "ana", "Ana")
	body := decodeBody(t, env.do(http.MethodPost, "/api/lobby/create", gin.H{"initData": host}))
	code := body["lobbyCode"].(string)
	env.do(http.MethodPost, "/api/lobby/"+code+"/join", gin.H{"initData": initDataFor(912, "bo", "Bo")})

	hostWS := dialWS(t, ts, "/ws/lobby/"+code+"?user_id=911")
	readUntilType(t, hostWS, "lobbyState")

	env.do(http.MethodPost, "/api/lobby/"+code+"/start", gin.H{"initData": host})
	started := readUntilType(t, hostWS, "gameStarted")
	sessionID := started["gameSessionId"].(string)
	require.NotEmpty(t, sessionID)

	_, ok := env.tables.Get(sessionID)
	assert.True(t, ok, "the broadcast session maps to a live table")
}

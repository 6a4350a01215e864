/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/scorebox/game"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsMessage struct {
	Type  string         `json:"type"`
	State *game.Snapshot `json:"state"`
}

func dialRoom(t *testing.T, srv *testServer, c *http.Client) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{Jar: c.Jar, HandshakeTimeout: 5 * time.Second}
	conn, res, err := dialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	res.Body.Close()
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebsocketUpdates(t *testing.T) {
	srv := startTestServer(t, testConfig())
	host, guest := newClient(t), newClient(t)

	_, res := post(t, host, srv.URL+"/api/start", threePlayers+`"admin_mode":"rotating","admin_config":{"every":2}}`)
	code := res.State.GameCode
	_, _ = post(t, guest, srv.URL+"/api/join", `{"code":"`+code+`"}`)

	conn := dialRoom(t, srv, guest)

	msg := readMessage(t, conn)
	require.Equal(t, "state", msg.Type)
	assert.Equal(t, code, msg.State.GameCode)
	assert.Equal(t, 1, msg.State.RoundNumber)

	require.Eventually(t, func() bool { return srv.app.hub.count(code) == 1 }, 5*time.Second, 10*time.Millisecond)

	status, _ := post(t, host, srv.URL+"/api/round", `{"scores":{"A":4,"B":-4}}`)
	require.Equal(t, http.StatusOK, status)

	msg = readMessage(t, conn)
	require.Equal(t, "state", msg.Type)
	assert.Equal(t, 2, msg.State.RoundNumber)
	assert.Equal(t, 4, msg.State.Totals["A"])

	status, _ = post(t, host, srv.URL+"/api/undo", `{}`)
	require.Equal(t, http.StatusOK, status)

	msg = readMessage(t, conn)
	assert.Equal(t, 1, msg.State.RoundNumber)

	status, _ = post(t, host, srv.URL+"/api/reset", `{}`)
	require.Equal(t, http.StatusOK, status)

	msg = readMessage(t, conn)
	assert.Equal(t, "closed", msg.Type)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	require.Eventually(t, func() bool { return srv.app.hub.count(code) == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestWebsocketWithoutRoom(t *testing.T) {
	srv := startTestServer(t, testConfig())

	dialer := websocket.Dialer{Jar: newClient(t).Jar}
	_, res, err := dialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHubClosedOnExpiry(t *testing.T) {
	srv := startTestServer(t, testConfig())
	c := newClient(t)

	_, res := post(t, c, srv.URL+"/api/start", threePlayers+`"admin_mode":"none"}`)
	code := res.State.GameCode

	conn := dialRoom(t, srv, c)
	_ = readMessage(t, conn)
	require.Eventually(t, func() bool { return srv.app.hub.count(code) == 1 }, 5*time.Second, 10*time.Millisecond)

	srv.clock.Advance(game.DefaultTTL + time.Second)
	srv.app.svc.Registry().EvictExpired(srv.clock.Now())

	msg := readMessage(t, conn)
	assert.Equal(t, "closed", msg.Type)
}

func TestHubDropsSlowClients(t *testing.T) {
	srv := startTestServer(t, testConfig())
	hub := srv.app.hub

	slow := &Client{send: make(chan any, 1)}
	hub.register("ROOM42", slow)

	hub.Publish("ROOM42", game.Snapshot{GameCode: "ROOM42"})
	assert.Equal(t, 1, hub.count("ROOM42"))

	hub.Publish("ROOM42", game.Snapshot{GameCode: "ROOM42"})
	assert.Equal(t, 0, hub.count("ROOM42"))

	_, open := <-slow.send
	assert.True(t, open, "queued message is still delivered")
	_, open = <-slow.send
	assert.False(t, open)
}

func TestAttachToClosedRoom(t *testing.T) {
	drain := func(c *Client) []string {
		var types []string
		for msg := range c.send {
			switch m := msg.(type) {
			case StateMessage:
				types = append(types, m.Type)
			case ClosedMessage:
				types = append(types, m.Type)
			}
		}
		return types
	}

	t.Run("reset", func(t *testing.T) {
		srv := startTestServer(t, testConfig())
		c := newClient(t)

		_, res := post(t, c, srv.URL+"/api/start", threePlayers+`"admin_mode":"none"}`)
		snap := *res.State

		live := &Client{send: make(chan any, 4)}
		require.True(t, srv.app.attach(snap, live))
		assert.Equal(t, 1, srv.app.hub.count(snap.GameCode))

		_, _ = post(t, c, srv.URL+"/api/reset", `{}`)
		assert.Equal(t, []string{"state", "closed"}, drain(live))

		late := &Client{send: make(chan any, 4)}
		assert.False(t, srv.app.attach(snap, late))
		assert.Equal(t, 0, srv.app.hub.count(snap.GameCode))
		assert.Equal(t, []string{"state", "closed"}, drain(late))
	})

	t.Run("expired", func(t *testing.T) {
		srv := startTestServer(t, testConfig())
		c := newClient(t)

		_, res := post(t, c, srv.URL+"/api/start", threePlayers+`"admin_mode":"none"}`)
		snap := *res.State

		srv.clock.Advance(game.DefaultTTL + time.Second)

		late := &Client{send: make(chan any, 4)}
		assert.False(t, srv.app.attach(snap, late))
		assert.Equal(t, 0, srv.app.hub.count(snap.GameCode))
		assert.Equal(t, []string{"state", "closed"}, drain(late))
	})
}

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-cook-live/internal/domain"
)

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/cook/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": event, "data": data}))
}

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// next reads frames until one named event arrives.
func next(t *testing.T, conn *websocket.Conn, event string) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f wsFrame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Event == event {
			return f
		}
	}
}

func TestHandshake_Refused(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	stale, err := newExpiredToken()
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		code  string
	}{
		{"missing", "", "MISSING_CREDENTIAL"},
		{"garbage", "not-a-jwt", "INVALID_CREDENTIAL"},
		{"expired", stale, "EXPIRED_CREDENTIAL"},
		{"unknown user", f.token(t, "ghost"), "UNKNOWN_IDENTITY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, tt.token), nil)
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			defer resp.Body.Close()
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			var env envelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
			require.False(t, env.Success)
			require.Equal(t, tt.code, env.Error.Code)
		})
	}
	require.Zero(t, f.hub.Count())
}

func TestWebSocket_PingAndErrors(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn := dial(t, srv, f.token(t, "B"))

	send(t, conn, domain.EventPing, nil)
	next(t, conn, domain.EventPong)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var d domain.ErrorData
	require.NoError(t, json.Unmarshal(next(t, conn, domain.EventError).Data, &d))
	require.Equal(t, domain.ReasonMalformed, d.Reason)

	send(t, conn, "dance", nil)
	require.NoError(t, json.Unmarshal(next(t, conn, domain.EventError).Data, &d))
	require.Equal(t, domain.ReasonUnknownEvent, d.Reason)

	send(t, conn, domain.EventJoinRecipe, "R1")
	require.NoError(t, json.Unmarshal(next(t, conn, domain.EventError).Data, &d))
	require.Equal(t, domain.ReasonMalformed, d.Reason)
}

func TestWebSocket_RoomFlow(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	alice := dial(t, srv, f.token(t, "A"))
	bob := dial(t, srv, f.token(t, "B"))

	send(t, alice, domain.EventJoinRecipe, domain.JoinRecipeData{RecipeID: "R1"})
	var ids []string
	require.NoError(t, json.Unmarshal(next(t, alice, domain.EventRoomUsers).Data, &ids))
	require.Equal(t, []string{"A"}, ids)

	send(t, bob, domain.EventJoinRecipe, domain.JoinRecipeData{RecipeID: "R1"})
	require.NoError(t, json.Unmarshal(next(t, alice, domain.EventRoomUsers).Data, &ids))
	require.ElementsMatch(t, []string{"A", "B"}, ids)
	next(t, alice, domain.EventNewNotification)

	send(t, alice, domain.EventCookingStep, domain.CookingStepData{RecipeID: "R1", Step: "boil water"})
	var step domain.StepUpdate
	require.NoError(t, json.Unmarshal(next(t, bob, domain.EventStepUpdate).Data, &step))
	require.Equal(t, "boil water", step.Step)

	// Bob is not a chef.
	send(t, bob, domain.EventCookingStep, domain.CookingStepData{RecipeID: "R1", Step: "salt"})
	var d domain.ErrorData
	require.NoError(t, json.Unmarshal(next(t, bob, domain.EventError).Data, &d))
	require.Equal(t, domain.ReasonNotChef, d.Reason)

	require.NoError(t, bob.Close())
	require.NoError(t, json.Unmarshal(next(t, alice, domain.EventRoomUsers).Data, &ids))
	require.Equal(t, []string{"A"}, ids)
	require.Equal(t, 1, f.chatLog.StepCount())
}

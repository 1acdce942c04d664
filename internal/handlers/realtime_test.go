package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/philsca/registrar/internal/handlers/testutil"
	"github.com/philsca/registrar/internal/realtime"
)

type ticketPayload struct {
	Ticket    string    `json:"ticket"`
	ExpiresAt time.Time `json:"expires_at"`
}

func issueTicket(t *testing.T, env *testutil.Env) string {
	t.Helper()
	resp := env.Request(http.MethodGet, "/api/realtime/ticket", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var payload ticketPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &payload)
	require.NotEmpty(t, payload.Ticket)
	return payload.Ticket
}

func TestRealtimeHandler_TicketRequiresSession(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/api/realtime/ticket", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRealtimeHandler_RejectsMissingTicketAndUnknownStream(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateAdmin("registrar@philsca.edu.ph")
	env.Login(admin.Email, testutil.DefaultPassword)

	noTicket := env.Request(http.MethodGet, "/ws", nil)
	require.Equal(t, http.StatusUnauthorized, noTicket.Code)

	forged := env.Request(http.MethodGet, "/ws?ticket=forged", nil)
	require.Equal(t, http.StatusUnauthorized, forged.Code)

	unknown := env.Request(http.MethodGet, "/ws?ticket="+issueTicket(t, env)+"&streams=terminal", nil)
	require.Equal(t, http.StatusNotFound, unknown.Code)
}

func TestRealtimeHandler_StreamsFeedEvents(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateAdmin("registrar@philsca.edu.ph")
	env.Login(admin.Email, testutil.DefaultPassword)

	detach := realtime.BridgeToHub(env.Feed, env.Hub)
	defer detach()

	server := httptest.NewServer(env.Router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?ticket=" + issueTicket(t, env) + "&streams=news"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return env.Hub.Subscribers(realtime.StreamNews) == 1
	}, 2*time.Second, 10*time.Millisecond)

	env.Feed.Publish(realtime.Event{Path: realtime.NewsPath("abc123"), Op: realtime.OpCreate, Data: map[string]string{"title": "Hello"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var message realtime.Message
	require.NoError(t, conn.ReadJSON(&message))
	require.Equal(t, realtime.StreamNews, message.Stream)
	require.Equal(t, string(realtime.OpCreate), message.Event)
	require.Equal(t, "news/abc123", message.Meta["path"])
}

package game

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r, _, _ := newTestRegistry(t)
	router := gin.New()
	NewHandler(r, zerolog.Nop()).RegisterRoutes(router)
	return router, r
}

func doJSON(t *testing.T, router *gin.Engine, method, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestCreateLobbyEndpoint(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	status, body := doJSON(t, router, http.MethodPost, "/createLobby")
	require.Equal(t, http.StatusOK, status)

	code, ok := body["lobbyId"].(string)
	require.True(t, ok)
	assert.Len(t, code, codeLength)
	assert.Equal(t, "Lobby created successfully", body["message"])
}

func TestGetLobbyEndpoint(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	_, created := doJSON(t, router, http.MethodPost, "/createLobby")
	code := created["lobbyId"].(string)

	status, body := doJSON(t, router, http.MethodGet, "/api/lobby/"+code)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["exists"])

	lobby, ok := body["lobby"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, code, lobby["lobbyId"])
}

func TestGetLobbyEndpointUnknownCode(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	status, body := doJSON(t, router, http.MethodGet, "/api/lobby/NOSUCH")
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["exists"])
	assert.Equal(t, ErrLobbyNotFound.Error(), body["message"])
}

func TestListLobbiesEndpoint(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/createLobby")
	doJSON(t, router, http.MethodPost, "/createLobby")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lobbies", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []LobbyDescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

// Full transport round trip: upgrade, join over the socket, read the roster
// broadcast back out of it.
func TestWebsocketJoinRoundTrip(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/createLobby", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	var created struct {
		LobbyID string `json:"lobbyId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, dialResp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if dialResp != nil {
		dialResp.Body.Close()
	}
	defer conn.Close()

	join := fmt.Sprintf(`{"event":"join-lobby","data":{"lobbyId":%q,"playerName":"Alice"}}`, created.LobbyID)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(join)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Event string      `json:"event"`
		Data  LobbyUpdate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, EventLobbyUpdate, msg.Event)
	require.Len(t, msg.Data.Players, 1)
	assert.Equal(t, "Alice", msg.Data.Players[0].Name)
}

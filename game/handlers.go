package game

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type Handler struct {
	registry *Registry
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHandler(registry *Registry, log zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are filtered by the CORS middleware in front of this.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "http").Logger(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/createLobby", h.CreateLobbyHandler)
	r.GET("/lobbies", h.ListLobbiesHandler)
	r.GET("/api/lobby/:lobbyId", h.GetLobbyHandler)
	r.GET("/ws", h.ConnectHandler)
}

func (h *Handler) CreateLobbyHandler(ctx *gin.Context) {
	code, err := h.registry.CreateLobby(ctx.Request.Context())
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "create-lobby-failed"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"lobbyId": code,
		"message": "Lobby created successfully",
	})
}

func (h *Handler) ListLobbiesHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.registry.Lobbies(ctx.Request.Context()))
}

func (h *Handler) GetLobbyHandler(ctx *gin.Context) {
	code := ctx.Param("lobbyId")

	desc, ok := h.registry.Lookup(ctx.Request.Context(), code)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"exists": false, "message": ErrLobbyNotFound.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"exists": true, "lobby": desc})
}

func (h *Handler) ConnectHandler(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Str("ip", ctx.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	c := newClient(NewWebsocketSession(conn), h.registry, h.log)
	h.log.Info().Str("conn", c.id).Str("ip", ctx.ClientIP()).Msg("client connected")

	go c.ReadPump()
	go c.WritePump()
}

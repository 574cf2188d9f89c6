package api

import (
	"log/slog"

	"tutor-booking/internal/infra/ws"
	"tutor-booking/internal/pkg/config"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"
)

type WSHandler struct {
	hub  *ws.Hub
	opts *websocket.AcceptOptions
}

func NewWSHandler(hub *ws.Hub, cfg config.WSConfig) *WSHandler {
	return &WSHandler{
		hub: hub,
		opts: &websocket.AcceptOptions{
			OriginPatterns:     cfg.OriginPatterns,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}
}

// @Summary Live notifications
// @Description Push-only websocket carrying booking events for the caller. Pass the access token as ?token=.
// @Tags notifications
// @Param token query string true "Access token"
// @Success 101
// @Failure 401 {object} httperr.Response
// @Router /ws [get]
func (h *WSHandler) Connect(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, h.opts)
	if err != nil {
		slog.Debug("websocket accept failed", "error", err.Error())
		return // Accept already wrote the response
	}

	h.hub.Serve(c.Request.Context(), userID, conn)
}

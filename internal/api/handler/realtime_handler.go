package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/orderahead/sync-engine/internal/core/ports"
	"github.com/orderahead/sync-engine/internal/realtime"
)

// RealtimeHandler upgrades authenticated requests to websocket connections
// and reports hub statistics.
type RealtimeHandler struct {
	auth        ports.Authenticator
	hub         *realtime.Hub
	inbound     realtime.InboundSink
	upgrader    websocket.Upgrader
	client      realtime.ClientConfig
	authTimeout time.Duration
	log         zerolog.Logger
}

func NewRealtimeHandler(
	auth ports.Authenticator,
	hub *realtime.Hub,
	inbound realtime.InboundSink,
	client realtime.ClientConfig,
	authTimeout time.Duration,
	log zerolog.Logger,
) *RealtimeHandler {
	if authTimeout <= 0 {
		authTimeout = 5 * time.Second
	}
	return &RealtimeHandler{
		auth:    auth,
		hub:     hub,
		inbound: inbound,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// bearer tokens, not cookies, authenticate the socket
			CheckOrigin: func(*http.Request) bool { return true },
		},
		client:      client,
		authTimeout: authTimeout,
		log:         log,
	}
}

// Connect handles GET /v1/ws.
//
// @Summary      Open the realtime notification stream
// @Description  The credential is checked before the upgrade; a rejected credential never gets a socket.
// @Tags         realtime
// @Param        Authorization  header  string  false  "Bearer token"
// @Param        token          query   string  false  "Token, for clients that cannot set headers"
// @Success      101
// @Failure      401  {object}  errorResponse
// @Router       /v1/ws [get]
func (h *RealtimeHandler) Connect(c echo.Context) error {
	token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if token == "" {
		token = c.QueryParam("token")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.authTimeout)
	identity, err := h.auth.Authenticate(ctx, token)
	cancel()
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	client := realtime.NewClient(conn, identity, h.client, h.log)
	channels, err := h.hub.Register(client)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return nil
	}

	h.log.Info().
		Str("conn_id", client.ID()).
		Int64("subject_id", identity.SubjectID).
		Str("role", string(identity.Role)).
		Interface("channels", channels).
		Msg("realtime connection opened")

	client.Run(h.hub, h.inbound)

	h.log.Info().Str("conn_id", client.ID()).Msg("realtime connection closed")
	return nil
}

// Stats handles GET /v1/realtime/stats.
//
// @Summary      Live connection counts
// @Tags         realtime
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  realtime.Stats
// @Failure      403  {object}  errorResponse
// @Router       /v1/realtime/stats [get]
func (h *RealtimeHandler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.hub.Stats())
}

// bearerToken returns the credential of an "Authorization: Bearer" header,
// or "" when the header is absent or uses another scheme.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

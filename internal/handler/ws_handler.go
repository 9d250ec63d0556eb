package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillbase/skillbase-backend/internal/auth"
	"github.com/skillbase/skillbase-backend/internal/config"
	"github.com/skillbase/skillbase-backend/internal/middleware"
	"github.com/skillbase/skillbase-backend/internal/response"
	"github.com/skillbase/skillbase-backend/internal/service"
)

const wsKeepAliveInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live session events to org admins.
type WSHandler struct {
	rdb         *redis.Client
	assessments *service.AssessmentService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, assessments *service.AssessmentService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:         rdb,
		assessments: assessments,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// MonitorAssessment godoc
// WS /ws/v1/admin/assessments/:assessment_id/events
// Upgrades to WebSocket and forwards session lifecycle events (started,
// completed, timed out) for one assessment as they happen.
func (h *WSHandler) MonitorAssessment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok || actor.Role != auth.RoleOrgAdmin {
		response.Fail(c, http.StatusForbidden, response.ErrOrgAdminOnly)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Org scoping happens before the upgrade so outsiders get a plain 404.
	if _, err := h.assessments.GetByID(c.Request.Context(), actor, assessmentID); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("assessment_id", assessmentID.String()).
		Str("admin_id", actor.UserID.String()).
		Logger()
	wsLog.Info().Msg("Monitor connected")

	ctx := c.Request.Context()
	channel := config.CacheKey.AssessmentEventsChannel(assessmentID.String())
	pubsub := h.rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Drain reads so close frames and pings are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events := pubsub.Channel()
	keepAlive := time.NewTicker(wsKeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			wsLog.Info().Msg("Monitor disconnected")
			return
		case msg, open := <-events:
			if !open {
				wsLog.Warn().Msg("PubSub channel closed")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed, closing")
				return
			}
		case <-keepAlive.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				wsLog.Debug().Msg("Keepalive failed, closing")
				return
			}
		}
	}
}

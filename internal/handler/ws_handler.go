package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-cook-live/internal/audit"
	"github.com/weiawesome/wes-cook-live/internal/config"
	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/hub"
	"github.com/weiawesome/wes-cook-live/internal/metrics"
	"github.com/weiawesome/wes-cook-live/internal/service"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
	"github.com/weiawesome/wes-cook-live/pkg/middleware"
	"github.com/weiawesome/wes-cook-live/pkg/response"
)

// Authenticator resolves the handshake credential.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)
}

type WSHandler struct {
	hub      *hub.Hub
	service  service.CookingService
	auth     Authenticator
	wsCfg    config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, svc service.CookingService, auth Authenticator, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		auth:    auth,
		wsCfg:   wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(wsCfg.AllowedOrigins),
		},
	}
}

// originChecker allows every origin when allowed is empty.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// HandleWebSocket authenticates the handshake and only then upgrades. A
// refused handshake gets a 401 JSON body carrying the failure code.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	identity, err := h.auth.Authenticate(ctx, middleware.TokenFromRequest(c.Request))
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			audit.LogWithDetail(ctx, audit.ActionAuthFailed, "", middleware.ErrorCode(err, "UNAUTHORIZED"), "handshake refused")
			response.Error(c, http.StatusUnauthorized, middleware.ErrorCode(err, "UNAUTHORIZED"), err.Error())
			return
		}
		l.Error().Err(err).Msg("handshake authentication failed")
		response.InternalError(c, "failed to authenticate")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, *identity, h.wsCfg)
	h.hub.Register(client)

	// The connection outlives the upgrade request; keep its values, not its
	// cancellation.
	connCtx := pkglog.WithConnection(context.WithoutCancel(ctx), client.ID, identity.UserID, identity.Username)
	audit.Log(connCtx, audit.ActionAuth, identity.UserID, "connection authenticated")

	go client.WritePump()
	go func() {
		client.ReadPump(func(cl *hub.Client, message []byte) {
			h.handleMessage(connCtx, cl, message)
		})
		if err := h.service.HandleDisconnect(connCtx, client); err != nil {
			l := pkglog.Ctx(connCtx)
			l.Error().Err(err).Msg("disconnect handling failed")
		}
	}()
}

func (h *WSHandler) handleMessage(ctx context.Context, client *hub.Client, message []byte) {
	l := pkglog.Ctx(ctx)

	var env domain.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		h.reject(client, "", domain.ReasonMalformed)
		return
	}

	var err error
	switch env.Event {
	case domain.EventJoinRecipe:
		var data domain.JoinRecipeData
		if decode(env.Data, &data) != nil {
			h.reject(client, env.Event, domain.ReasonMalformed)
			return
		}
		err = h.service.HandleJoinRecipe(ctx, client, data.RecipeID)

	case domain.EventLeaveRecipe:
		var data domain.LeaveRecipeData
		if decode(env.Data, &data) != nil {
			h.reject(client, env.Event, domain.ReasonMalformed)
			return
		}
		err = h.service.HandleLeaveRecipe(ctx, client, data.RecipeID)

	case domain.EventCookingStep:
		var data domain.CookingStepData
		if decode(env.Data, &data) != nil {
			h.reject(client, env.Event, domain.ReasonMalformed)
			return
		}
		err = h.service.HandleCookingStep(ctx, client, data.RecipeID, data.Step)

	case domain.EventChatMessage:
		var data domain.ChatMessageData
		if decode(env.Data, &data) != nil {
			h.reject(client, env.Event, domain.ReasonMalformed)
			return
		}
		err = h.service.HandleChatMessage(ctx, client, data.RecipeID, data.Message)

	case domain.EventPing:
		err = client.SendMessage(domain.NewEvent(domain.EventPong, nil))

	default:
		h.reject(client, "unknown", domain.ReasonUnknownEvent)
		return
	}

	if err != nil {
		l.Warn().Err(err).Str(pkglog.FieldEvent, env.Event).Msg("event handling failed")
	}
}

func (h *WSHandler) reject(client *hub.Client, event, reason string) {
	if event == "" {
		event = "malformed"
	}
	metrics.EventsTotal.WithLabelValues(event, metrics.OutcomeRejected).Inc()
	client.SendMessage(domain.NewErrorEvent(reason))
}

// decode tolerates an absent data member.
func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/cook/ws", h.HandleWebSocket)
}

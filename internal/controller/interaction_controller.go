package controller

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"syslog-relay/config"
	"syslog-relay/internal/dto"
	"syslog-relay/internal/kafka"
	"syslog-relay/internal/model"
	"syslog-relay/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const interactionKey = "interaction"

type InteractionController struct {
	publisher kafka.TaskPublisher
	token     string
	now       func() time.Time
}

func NewInteractionController(cfg *config.Config, publisher kafka.TaskPublisher) *InteractionController {
	return &InteractionController{
		publisher: publisher,
		token:     cfg.Slack.VerificationToken,
		now:       time.Now,
	}
}

func RegisterInteractionRoutes(router *gin.Engine, controller *InteractionController) {
	router.GET("/", controller.Health)
	slack := router.Group("/slack")
	slack.Use(VerifyInteraction(controller.token))
	{
		slack.POST("/message_actions", controller.HandleAction)
	}
}

func (c *InteractionController) Health(ctx *gin.Context) {
	ctx.String(http.StatusOK, "API is Up")
}

// VerifyInteraction decodes the form encoded payload and rejects callbacks
// whose token does not match.
func VerifyInteraction(token string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw := ctx.PostForm("payload")
		if raw == "" {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewResponse("missing payload", nil))
			return
		}
		var event model.InteractionEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			log.Warn().Err(err).Msg("Malformed interaction payload")
			ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewResponse("invalid payload", nil))
			return
		}
		if token == "" || subtle.ConstantTimeCompare([]byte(event.Token), []byte(token)) != 1 {
			log.Warn().Str("client_ip", ctx.ClientIP()).Msg("Rejected interaction with bad token")
			ctx.AbortWithStatusJSON(http.StatusForbidden, dto.NewResponse("invalid token", nil))
			return
		}
		ctx.Set(interactionKey, &event)
		ctx.Next()
	}
}

// HandleAction queues ticket and chart interactions and acknowledges
// everything else untouched.
func (c *InteractionController) HandleAction(ctx *gin.Context) {
	event := ctx.MustGet(interactionKey).(*model.InteractionEvent)

	kind, ok := service.ClassifyAction(event)
	if !ok {
		log.Debug().Str("type", event.Type).Msg("Ignoring interaction")
		ctx.JSON(http.StatusOK, dto.AckResponse{Success: true})
		return
	}

	task := model.ActionTask{Kind: kind, Event: *event, EnqueuedAt: c.now().UTC()}
	if err := c.publisher.Publish(ctx.Request.Context(), task); err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to enqueue interaction")
		ctx.JSON(http.StatusInternalServerError, dto.NewResponse("failed to enqueue action", nil))
		return
	}
	log.Info().Str("kind", string(kind)).Str("channel_id", event.Channel.ID).Msg("Interaction enqueued")
	ctx.JSON(http.StatusOK, dto.AckResponse{Success: true})
}

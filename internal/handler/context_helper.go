package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/edulink/admin-api/internal/middleware"
	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/service"
	"github.com/edulink/admin-api/internal/workflow"
)

// actionsMeta advertises the lifecycle operations still legal after a
// transition, so clients render the right controls without hardcoding the
// state machine.
func actionsMeta(kind workflow.Kind, status workflow.Status) map[string]interface{} {
	return map[string]interface{}{"allowed_actions": workflow.AllowedActions(kind, status)}
}

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext builds the audit actor for the current request. UserID is
// empty on unauthenticated routes.
func actorFromContext(c *gin.Context) service.Actor {
	actor := service.Actor{
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
	if claims := claimsFromContext(c); claims != nil {
		actor.UserID = claims.UserID
	}
	return actor
}

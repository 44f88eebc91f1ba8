package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/server/http/middleware"
)

const gatewayUnavailableMessage = "payment gateway unavailable"

// CurrentUserID extracts authenticated user identifier from context.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(middleware.UserIDContextKey)
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// writeGatewayError replies with the gateway's status and body verbatim.
// A failure without a gateway response becomes 502. A body that is not JSON
// is wrapped as the error message.
func writeGatewayError(c *gin.Context, err *domainErrors.GatewayError) {
	if err.StatusCode == 0 || len(err.Body) == 0 {
		c.AbortWithStatusJSON(gatewayStatus(err), gin.H{"error": gin.H{"message": gatewayUnavailableMessage}})
		return
	}
	if !json.Valid(err.Body) {
		c.AbortWithStatusJSON(err.StatusCode, gin.H{"error": gin.H{"message": string(err.Body)}})
		return
	}
	c.Data(err.StatusCode, "application/json; charset=utf-8", err.Body)
	c.Abort()
}

// writeVerificationGatewayError merges success=false into the gateway body.
func writeVerificationGatewayError(c *gin.Context, err *domainErrors.GatewayError) {
	body := map[string]any{}
	if len(err.Body) > 0 {
		if jsonErr := json.Unmarshal(err.Body, &body); jsonErr != nil {
			body = map[string]any{"message": string(err.Body)}
		}
	}
	if err.StatusCode == 0 {
		body["message"] = gatewayUnavailableMessage
	}
	body["success"] = false
	c.AbortWithStatusJSON(gatewayStatus(err), body)
}

func gatewayStatus(err *domainErrors.GatewayError) int {
	if err.StatusCode == 0 {
		return http.StatusBadGateway
	}
	return err.StatusCode
}

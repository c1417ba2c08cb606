package http

import (
	nethttp "net/http"

	customErrors "github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/errors"
	"github.com/gin-gonic/gin"
)

// handleError is the request boundary: every error a handler sees ends here
// as a response.
func handleError(c *gin.Context, err error) {
	if ve, ok := customErrors.AsValidation(err); ok {
		c.JSON(nethttp.StatusBadRequest, ve.Messages())
		return
	}

	switch {
	case customErrors.IsInvalidArgument(err):
		c.JSON(nethttp.StatusBadRequest, gin.H{"error": err.Error()})
	case customErrors.IsInvalidCredentials(err):
		c.JSON(nethttp.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case customErrors.IsInvalidToken(err), customErrors.IsNotFound(err):
		// a token whose subject is gone is an authentication failure
		c.JSON(nethttp.StatusUnauthorized, gin.H{"error": "authentication required"})
	case customErrors.IsAlreadyExists(err):
		c.JSON(nethttp.StatusBadRequest, gin.H{"error": "already exists"})
	default:
		_ = c.Error(err)
		c.JSON(nethttp.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

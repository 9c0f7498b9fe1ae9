package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/klaus2514/Sportsafari/pkg/logger"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

var statusByKind = map[domain.Kind]int{
	domain.KindUnauthenticated: http.StatusUnauthorized,
	domain.KindUnauthorized:    http.StatusForbidden,
	domain.KindNotFound:        http.StatusNotFound,
	domain.KindConflict:        http.StatusConflict,
	domain.KindValidation:      http.StatusBadRequest,
	domain.KindStorageFailure:  http.StatusServiceUnavailable,
}

// responder writes the JSON envelopes. Internal error detail is only exposed
// in development.
type responder struct {
	dev bool
}

func (r responder) ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func (r responder) fail(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(domain.AsDomain("request", err), &de) {
		de = domain.StorageFailure("request", err)
	}
	status := statusByKind[de.Kind]
	body := gin.H{"success": false, "kind": de.Kind, "message": de.Message}
	if de.Kind == domain.KindStorageFailure {
		logger.FromGin(c).Error("storage failure", zap.Error(err))
		body["message"] = "service temporarily unavailable"
		if r.dev {
			body["error"] = err.Error()
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func (r responder) badRequest(c *gin.Context, err error) {
	body := gin.H{"success": false, "kind": domain.KindValidation, "message": "invalid request body"}
	if r.dev {
		body["error"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}

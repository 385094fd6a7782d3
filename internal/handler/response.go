package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/apperror"
	"github.com/quocanhngo/chatcore/internal/middleware"
	"github.com/quocanhngo/chatcore/internal/model"
	"go.uber.org/zap"
)

// StatusFor maps an error kind onto its HTTP status.
// A conflict is reported as 404: clients treat "already exists" and "cannot start" alike.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusUnprocessableEntity
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindConflict:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body; internal causes are logged, never returned
func respondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := StatusFor(kind)
	if status == http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, model.ErrorResponse{
		Error:   string(kind),
		Message: apperror.MessageOf(err),
	})
}

// respondBindError reports a malformed request body or query as a validation error
func respondBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, model.ErrorResponse{
		Error:   string(apperror.KindValidation),
		Message: err.Error(),
	})
}

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, model.DataResponse{Data: data})
}

// emptyData is the `{"data": []}` acknowledgement body
var emptyData = []any{}

// uuidParam parses a path parameter; a malformed id cannot name an existing row
func uuidParam(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperror.NotFound("%s not found", what))
		return uuid.Nil, false
	}
	return id, true
}

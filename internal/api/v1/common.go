package v1

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/subsync/subsync/internal/errors"
)

// pathParam returns a required path parameter, attaching a validation error when it is empty
func pathParam(c *gin.Context, name string) (string, bool) {
	value := c.Param(name)
	if value == "" {
		_ = c.Error(ierr.NewError(name+" is required").
			WithHintf("Please provide a valid %s", name).
			Mark(ierr.ErrValidation))
		return "", false
	}
	return value, true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, filter any) bool {
	if err := c.ShouldBindQuery(filter); err != nil {
		_ = c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return false
	}
	return true
}

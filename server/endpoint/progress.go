package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/pmidfetch/fetch"
)

// ProgressFunc returns the current pipeline counters.
type ProgressFunc func() fetch.ProgressSnapshot

// Progress serves the live pipeline counters.
func Progress(snapshot ProgressFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, snapshot())
	}
}

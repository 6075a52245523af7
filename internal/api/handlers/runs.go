package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/repository"
	apperrors "github.com/lnmn249/faire-lightspeed-lite/pkg/errors"
)

// HandleListRuns handles GET /v1/runs
func HandleListRuns(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if l := c.Query("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil && n >= 1 && n <= 500 {
				limit = n
			}
		}

		runs, err := repos.Run.List(c.Request.Context(), limit)
		if err != nil {
			logger.Error("Failed to list runs", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
	}
}

// HandleGetRun handles GET /v1/runs/:id
func HandleGetRun(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		report, err := repos.Run.GetByID(c.Request.Context(), id)
		if err != nil {
			var notFound *apperrors.ErrNotFound
			if stderrors.As(err, &notFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
				return
			}
			logger.Error("Failed to get run", zap.String("run_id", id.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

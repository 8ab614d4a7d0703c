package routes

import (
	"errors"
	"net/http"

	"saas-knowledge-indexer/internal/index"
	"saas-knowledge-indexer/internal/telemetry"
	"saas-knowledge-indexer/utils"

	"github.com/gin-gonic/gin"
)

type SearchRequest struct {
	Query string   `json:"query" binding:"required"`
	Tags  []string `json:"tags"`
	Limit int      `json:"limit"`
}

func SetupSearchRoutes(api *gin.RouterGroup, writer *index.Writer, metrics *telemetry.Metrics) {
	api.POST("/orgs/:orgId/rag/search", handleSearch(writer, metrics))
}

func handleSearch(writer *index.Writer, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("orgId")

		var req SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", gin.H{"error": err.Error()})
			return
		}

		results, err := writer.Search(c.Request.Context(), orgID, req.Query, req.Tags, req.Limit)
		if err != nil {
			if errors.Is(err, index.ErrNotConfigured) {
				utils.RespondWithError(c, http.StatusServiceUnavailable,
					"embeddings_not_configured",
					"Knowledge search is not available: embeddings are not configured", nil)
				return
			}
			utils.RespondWithInternalError(c, "Search failed", nil)
			return
		}

		if metrics != nil {
			metrics.RecordSearchQuery(orgID, len(results))
		}

		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

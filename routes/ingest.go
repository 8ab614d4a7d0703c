package routes

import (
	"net/http"

	"saas-knowledge-indexer/internal/queue"
	"saas-knowledge-indexer/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// Content lifecycle hooks call these endpoints after a save, publish, or
// unpublish; ingestion itself runs on the worker.

type IngestPostRequest struct {
	PostID string `json:"post_id" binding:"required"`
}

type IngestLmsRequest struct {
	EntryID      string `json:"entry_id" binding:"required"`
	PostTypeSlug string `json:"post_type_slug"`
}

func SetupIngestRoutes(api *gin.RouterGroup, client *asynq.Client) {
	api.POST("/orgs/:orgId/rag/ingest/post", handleIngestPost(client))
	api.POST("/orgs/:orgId/rag/ingest/lms", handleIngestLms(client))
}

func handleIngestPost(client *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IngestPostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", gin.H{"error": err.Error()})
			return
		}

		task, err := queue.NewIngestPostTask(req.PostID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build ingestion task", nil)
			return
		}

		info, err := client.EnqueueContext(c.Request.Context(), task)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue ingestion task", nil)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"task_id": info.ID,
			"queue":   info.Queue,
		})
	}
}

func handleIngestLms(client *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("orgId")

		var req IngestLmsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", gin.H{"error": err.Error()})
			return
		}

		task, err := queue.NewIngestLmsTask(req.EntryID, req.PostTypeSlug, orgID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build ingestion task", nil)
			return
		}

		info, err := client.EnqueueContext(c.Request.Context(), task)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue ingestion task", nil)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"task_id": info.ID,
			"queue":   info.Queue,
		})
	}
}

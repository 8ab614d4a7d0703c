package routes

import (
	"errors"
	"net/http"
	"strings"

	"saas-knowledge-indexer/internal/index"
	"saas-knowledge-indexer/models"
	"saas-knowledge-indexer/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostStatusResponse reports the indexing state of one piece of content,
// combining the audit row with its governing source config.
type PostStatusResponse struct {
	IsEnabledForPostType bool                   `json:"is_enabled_for_post_type"`
	EntryKey             string                 `json:"entry_key"`
	Status               *models.RagIndexStatus `json:"status,omitempty"`
	Config               *SourceConfigSummary   `json:"config,omitempty"`
}

type SourceConfigSummary struct {
	SourceType   string   `json:"source_type"`
	PostTypeSlug string   `json:"post_type_slug"`
	DisplayName  string   `json:"display_name"`
	Fields       []string `json:"fields"`
	IncludeTags  bool     `json:"include_tags"`
	IsEnabled    bool     `json:"is_enabled"`
}

func SetupStatusRoutes(api *gin.RouterGroup, db *mongo.Database) {
	sources := db.Collection("rag_sources")
	statuses := db.Collection("rag_index_status")

	api.GET("/orgs/:orgId/rag/status", handleListStatuses(statuses))
	api.GET("/orgs/:orgId/rag/status/:postTypeSlug/:postId", handlePostStatus(sources, statuses))
}

func handleListStatuses(statuses *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("orgId")

		filter := bson.M{"organization_id": orgID}
		if slug := c.Query("post_type_slug"); slug != "" {
			filter["post_type_slug"] = strings.ToLower(slug)
		}
		if status := c.Query("last_status"); status != "" {
			filter["last_status"] = status
		}

		cursor, err := statuses.Find(c.Request.Context(), filter,
			options.Find().SetSort(bson.D{{Key: "last_attempt_at", Value: -1}}).SetLimit(200))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list index statuses", nil)
			return
		}
		defer cursor.Close(c.Request.Context())

		rows := []models.RagIndexStatus{}
		if err := cursor.All(c.Request.Context(), &rows); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode index statuses", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"statuses": rows})
	}
}

func handlePostStatus(sources, statuses *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("orgId")
		slug := strings.ToLower(c.Param("postTypeSlug"))
		postID := c.Param("postId")

		// Two configs can exist for the same slug; the LMS one governs.
		cfg, err := findGoverningConfig(c, sources, orgID, slug)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load source config", nil)
			return
		}

		resp := PostStatusResponse{}
		sourceType := models.InferSourceType(slug)
		if cfg != nil {
			sourceType = cfg.SourceType
			resp.IsEnabledForPostType = cfg.IsEnabled
			resp.Config = &SourceConfigSummary{
				SourceType:   cfg.SourceType,
				PostTypeSlug: cfg.PostTypeSlug,
				DisplayName:  cfg.DisplayName,
				Fields:       cfg.Fields,
				IncludeTags:  cfg.IncludeTags,
				IsEnabled:    cfg.IsEnabled,
			}
		}

		if sourceType == models.SourceTypeLms {
			resp.EntryKey = index.LmsEntryKey(slug, postID)
		} else {
			resp.EntryKey = index.PostEntryKey(postID)
		}

		var row models.RagIndexStatus
		err = statuses.FindOne(c.Request.Context(), bson.M{
			"organization_id": orgID,
			"source_type":     sourceType,
			"post_type_slug":  slug,
			"post_id":         postID,
		}).Decode(&row)
		switch {
		case err == nil:
			resp.Status = &row
		case errors.Is(err, mongo.ErrNoDocuments):
			// No attempt yet, still a valid answer.
		default:
			utils.RespondWithInternalError(c, "Failed to load index status", nil)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

func findGoverningConfig(c *gin.Context, sources *mongo.Collection, orgID, slug string) (*models.RagSource, error) {
	for _, sourceType := range []string{models.SourceTypeLms, models.SourceTypePost} {
		var cfg models.RagSource
		err := sources.FindOne(c.Request.Context(), bson.M{
			"organization_id": orgID,
			"source_type":     sourceType,
			"post_type_slug":  slug,
		}).Decode(&cfg)
		if err == nil {
			return &cfg, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
	}
	return nil, nil
}

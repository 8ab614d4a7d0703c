package routes

import (
	"net/http"
	"strings"
	"time"

	"saas-knowledge-indexer/models"
	"saas-knowledge-indexer/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SaveSourceRequest is the body for creating or updating a source config.
// SourceType may be omitted; it is inferred from the slug.
type SaveSourceRequest struct {
	PostTypeSlug              string   `json:"post_type_slug" binding:"required"`
	SourceType                string   `json:"source_type"`
	Fields                    []string `json:"fields"`
	IncludeTags               bool     `json:"include_tags"`
	MetaFieldKeys             []string `json:"meta_field_keys"`
	AdditionalMetaKeys        string   `json:"additional_meta_keys"`
	DisplayName               string   `json:"display_name"`
	IsEnabled                 *bool    `json:"is_enabled"`
	UseCustomBaseInstructions bool     `json:"use_custom_base_instructions"`
	BaseInstructions          string   `json:"base_instructions"`
}

func SetupSourceRoutes(api *gin.RouterGroup, db *mongo.Database) {
	sources := db.Collection("rag_sources")

	api.GET("/orgs/:orgId/rag/sources", handleListSources(sources))
	api.POST("/orgs/:orgId/rag/sources", handleSaveSource(sources))
	api.DELETE("/orgs/:orgId/rag/sources/:sourceId", handleDeleteSource(sources))
}

func handleListSources(sources *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("orgId")

		cursor, err := sources.Find(c.Request.Context(),
			bson.M{"organization_id": orgID},
			options.Find().SetSort(bson.D{{Key: "post_type_slug", Value: 1}}))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list source configs", nil)
			return
		}
		defer cursor.Close(c.Request.Context())

		configs := []models.RagSource{}
		if err := cursor.All(c.Request.Context(), &configs); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode source configs", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"sources": configs})
	}
}

func handleSaveSource(sources *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("orgId")

		var req SaveSourceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", gin.H{"error": err.Error()})
			return
		}

		slug := strings.ToLower(strings.TrimSpace(req.PostTypeSlug))
		if slug == "" {
			utils.RespondWithBadRequest(c, "post_type_slug is required", nil)
			return
		}

		sourceType := req.SourceType
		if sourceType == "" {
			sourceType = models.InferSourceType(slug)
		}
		if sourceType != models.SourceTypePost && sourceType != models.SourceTypeLms {
			utils.RespondWithBadRequest(c, "Unknown source_type", gin.H{"source_type": sourceType})
			return
		}

		displayName := strings.TrimSpace(req.DisplayName)
		if displayName == "" {
			displayName = slug
		}

		enabled := true
		if req.IsEnabled != nil {
			enabled = *req.IsEnabled
		}

		now := time.Now()
		update := bson.M{
			"$set": bson.M{
				"fields":                       models.FilterSourceFields(req.Fields),
				"include_tags":                 req.IncludeTags,
				"meta_field_keys":              req.MetaFieldKeys,
				"additional_meta_keys":         req.AdditionalMetaKeys,
				"display_name":                 displayName,
				"is_enabled":                   enabled,
				"use_custom_base_instructions": req.UseCustomBaseInstructions,
				"base_instructions":            req.BaseInstructions,
				"updated_at":                   now,
			},
			"$setOnInsert": bson.M{
				"organization_id": orgID,
				"source_type":     sourceType,
				"post_type_slug":  slug,
				"created_at":      now,
			},
		}

		// One config per (org, sourceType, slug); existing configs are
		// patched in place.
		filter := bson.M{
			"organization_id": orgID,
			"source_type":     sourceType,
			"post_type_slug":  slug,
		}

		res, err := sources.UpdateOne(c.Request.Context(), filter, update,
			options.Update().SetUpsert(true))
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				utils.RespondWithConflict(c, "A source config for this post type already exists", filter)
				return
			}
			utils.RespondWithInternalError(c, "Failed to save source config", nil)
			return
		}

		var saved models.RagSource
		if err := sources.FindOne(c.Request.Context(), filter).Decode(&saved); err != nil {
			utils.RespondWithInternalError(c, "Failed to load saved source config", nil)
			return
		}

		status := http.StatusOK
		if res.UpsertedCount > 0 {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"source": saved})
	}
}

func handleDeleteSource(sources *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("orgId")

		sourceID, err := primitive.ObjectIDFromHex(c.Param("sourceId"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid source id", nil)
			return
		}

		res, err := sources.DeleteOne(c.Request.Context(), bson.M{
			"_id":             sourceID,
			"organization_id": orgID,
		})
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to delete source config", nil)
			return
		}
		if res.DeletedCount == 0 {
			utils.RespondWithNotFound(c, "Source config not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

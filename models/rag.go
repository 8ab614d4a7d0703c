package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Source types for index configs. A postType config covers generic CMS
// posts, an lmsPostType config covers LMS-owned entries.
const (
	SourceTypePost = "postType"
	SourceTypeLms  = "lmsPostType"
)

// Ingestible fields. Config field lists are filtered down to this trio.
var allowedSourceFields = map[string]bool{
	"title":   true,
	"excerpt": true,
	"content": true,
}

// Slugs that belong to the LMS; used to infer sourceType when a config is
// saved without one.
var lmsPostTypeSlugs = map[string]bool{
	"courses":      true,
	"lessons":      true,
	"topics":       true,
	"quizzes":      true,
	"certificates": true,
	"badges":       true,
}

// RagSource is the per-organization, per-content-type index configuration.
// At most one per (organization_id, source_type, post_type_slug).
type RagSource struct {
	ID                        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrganizationID            string             `bson:"organization_id" json:"organization_id"`
	SourceType                string             `bson:"source_type" json:"source_type"`
	PostTypeSlug              string             `bson:"post_type_slug" json:"post_type_slug"`
	Fields                    []string           `bson:"fields" json:"fields"`
	IncludeTags               bool               `bson:"include_tags" json:"include_tags"`
	MetaFieldKeys             []string           `bson:"meta_field_keys" json:"meta_field_keys"`
	AdditionalMetaKeys        string             `bson:"additional_meta_keys" json:"additional_meta_keys"`
	DisplayName               string             `bson:"display_name" json:"display_name"`
	IsEnabled                 bool               `bson:"is_enabled" json:"is_enabled"`
	UseCustomBaseInstructions bool               `bson:"use_custom_base_instructions" json:"use_custom_base_instructions"`
	BaseInstructions          string             `bson:"base_instructions" json:"base_instructions"`
	CreatedAt                 time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt                 time.Time          `bson:"updated_at" json:"updated_at"`
	LastIndexedAt             *time.Time         `bson:"last_indexed_at,omitempty" json:"last_indexed_at,omitempty"`
}

// InferSourceType picks the source type for a slug when the caller didn't
// supply one. LMS-reserved slugs map to lmsPostType, everything else is a
// plain CMS post type.
func InferSourceType(postTypeSlug string) string {
	if lmsPostTypeSlugs[strings.ToLower(postTypeSlug)] {
		return SourceTypeLms
	}
	return SourceTypePost
}

// FilterSourceFields drops anything outside title/excerpt/content, keeping
// order. A nil or empty input falls back to the default pair.
func FilterSourceFields(fields []string) []string {
	if len(fields) == 0 {
		return []string{"title", "content"}
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if allowedSourceFields[f] {
			out = append(out, f)
		}
	}
	return out
}

// RagIndexStatus is the audit row written at the end of every ingestion
// attempt. Exactly one per (organization_id, source_type, post_type_slug,
// post_id); upsert semantics, never deleted.
type RagIndexStatus struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrganizationID  string             `bson:"organization_id" json:"organization_id"`
	SourceType      string             `bson:"source_type" json:"source_type"`
	PostTypeSlug    string             `bson:"post_type_slug" json:"post_type_slug"`
	PostID          string             `bson:"post_id" json:"post_id"`
	EntryKey        string             `bson:"entry_key" json:"entry_key"`
	LastStatus      string             `bson:"last_status" json:"last_status"`
	LastAttemptAt   time.Time          `bson:"last_attempt_at" json:"last_attempt_at"`
	LastSuccessAt   *time.Time         `bson:"last_success_at,omitempty" json:"last_success_at,omitempty"`
	LastError       string             `bson:"last_error,omitempty" json:"last_error,omitempty"`
	LastEntryID     string             `bson:"last_entry_id,omitempty" json:"last_entry_id,omitempty"`
	LastEntryStatus string             `bson:"last_entry_status,omitempty" json:"last_entry_status,omitempty"`
}

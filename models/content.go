package models

import (
	"strconv"
	"time"
)

// Post lifecycle states as written by the owning CMS.
const (
	PostStatusPublished = "published"
	PostStatusDraft     = "draft"
	PostStatusArchived  = "archived"
)

// Post is one ingestible CMS content record. The pipeline only reads these;
// create/update/delete belongs to the CMS that owns the collection.
type Post struct {
	ID             string                 `bson:"_id" json:"id"`
	OrganizationID string                 `bson:"organization_id" json:"organization_id"`
	PostTypeSlug   string                 `bson:"post_type_slug" json:"post_type_slug"`
	Title          string                 `bson:"title,omitempty" json:"title,omitempty"`
	Excerpt        string                 `bson:"excerpt,omitempty" json:"excerpt,omitempty"`
	Content        string                 `bson:"content,omitempty" json:"content,omitempty"`
	Slug           string                 `bson:"slug,omitempty" json:"slug,omitempty"`
	Tags           []string               `bson:"tags,omitempty" json:"tags,omitempty"`
	Status         string                 `bson:"status" json:"status"`
	Meta           map[string]interface{} `bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt      time.Time              `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt      time.Time              `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// MetaStrings resolves the dynamic meta map into plain strings once, at load
// time. Only string, numeric and boolean values survive; everything else is
// dropped.
func (p *Post) MetaStrings() map[string]string {
	return metaToStrings(p.Meta)
}

// LmsEntry is one ingestible record owned by the LMS collaborator. Its meta
// key-values live in a separate collection and are fetched alongside.
type LmsEntry struct {
	ID             string    `bson:"_id" json:"id"`
	OrganizationID string    `bson:"organization_id,omitempty" json:"organization_id,omitempty"`
	PostTypeSlug   string    `bson:"post_type_slug" json:"post_type_slug"`
	Title          string    `bson:"title,omitempty" json:"title,omitempty"`
	Excerpt        string    `bson:"excerpt,omitempty" json:"excerpt,omitempty"`
	Content        string    `bson:"content,omitempty" json:"content,omitempty"`
	Slug           string    `bson:"slug,omitempty" json:"slug,omitempty"`
	Tags           []string  `bson:"tags,omitempty" json:"tags,omitempty"`
	Status         string    `bson:"status" json:"status"`
	UpdatedAt      time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// MetaField is one key-value pair attached to an LMS entry.
type MetaField struct {
	Key   string      `bson:"key" json:"key"`
	Value interface{} `bson:"value" json:"value"`
}

// MetaFieldsToStrings folds an LMS meta list into the same resolved string
// map shape that posts carry.
func MetaFieldsToStrings(fields []MetaField) map[string]string {
	raw := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		raw[f.Key] = f.Value
	}
	return metaToStrings(raw)
}

func metaToStrings(raw map[string]interface{}) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		if key == "" {
			continue
		}
		switch v := value.(type) {
		case string:
			out[key] = v
		case bool:
			if v {
				out[key] = "true"
			} else {
				out[key] = "false"
			}
		case int:
			out[key] = formatInt(int64(v))
		case int32:
			out[key] = formatInt(int64(v))
		case int64:
			out[key] = formatInt(v)
		case float32:
			out[key] = formatFloat(float64(v))
		case float64:
			out[key] = formatFloat(v)
		}
	}
	return out
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

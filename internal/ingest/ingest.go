// Package ingest runs the content indexing workflow: decide eligibility,
// flatten text, write the index entry, record an audit status. Every
// outcome is a status string; errors are reserved for infrastructure
// failures, which propagate to the caller's retry policy.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"saas-knowledge-indexer/internal/extract"
	"saas-knowledge-indexer/internal/index"
	"saas-knowledge-indexer/internal/logger"
	"saas-knowledge-indexer/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ingestion outcomes. Each attempt ends in exactly one of these.
const (
	StatusIndexed             = "indexed"
	StatusDisabled            = "disabled"
	StatusNotPublished        = "notPublished"
	StatusEmpty               = "empty"
	StatusMissingAPIKey       = "missingApiKey"
	StatusMissingPost         = "missingPost"
	StatusMissingOrganization = "missingOrganization"
)

// Static relevance weights. LMS content is weighted slightly higher than
// generic CMS posts.
const (
	postImportance = 0.7
	lmsImportance  = 0.8
)

// ContentStore loads CMS posts. A missing post is (nil, nil), not an error.
type ContentStore interface {
	PostForIngestion(ctx context.Context, id string) (*models.Post, error)
}

// LmsStore loads LMS entries and their meta key-values.
type LmsStore interface {
	Entry(ctx context.Context, id string) (*models.LmsEntry, error)
	EntryMeta(ctx context.Context, id string) ([]models.MetaField, error)
}

// ConfigStore loads source configs. A missing config is (nil, nil).
type ConfigStore interface {
	Source(ctx context.Context, organizationID, sourceType, postTypeSlug string) (*models.RagSource, error)
}

// StatusStore upserts audit rows, one per content identity.
type StatusStore interface {
	Upsert(ctx context.Context, status models.RagIndexStatus) error
}

// Writer is the index-side collaborator.
type Writer interface {
	Enabled() bool
	Upsert(ctx context.Context, organizationID string, e index.Entry) (index.Receipt, error)
	DeleteByKey(ctx context.Context, organizationID, entryKey string) error
	TouchIndexedAt(ctx context.Context, sourceID primitive.ObjectID) error
}

// Result is the outcome of one ingestion attempt.
type Result struct {
	Status   string `json:"status"`
	EntryKey string `json:"entry_key,omitempty"`
}

// Orchestrator wires the stores and the writer. All collaborators are
// injected so tests can substitute fakes.
type Orchestrator struct {
	content  ContentStore
	lms      LmsStore
	configs  ConfigStore
	statuses StatusStore
	writer   Writer
}

func NewOrchestrator(content ContentStore, lms LmsStore, configs ConfigStore, statuses StatusStore, writer Writer) *Orchestrator {
	return &Orchestrator{
		content:  content,
		lms:      lms,
		configs:  configs,
		statuses: statuses,
		writer:   writer,
	}
}

// IngestPost runs the pipeline for a CMS post. Idempotent: re-running with
// unchanged input converges to the same entry and status row.
func (o *Orchestrator) IngestPost(ctx context.Context, postID string) (Result, error) {
	// Credential check comes before any read or write.
	if !o.writer.Enabled() {
		return Result{Status: StatusMissingAPIKey}, nil
	}

	post, err := o.content.PostForIngestion(ctx, postID)
	if err != nil {
		return Result{}, err
	}
	if post == nil || post.OrganizationID == "" || post.PostTypeSlug == "" {
		return Result{Status: StatusMissingPost}, nil
	}

	slug := strings.ToLower(strings.TrimSpace(post.PostTypeSlug))
	entryKey := index.PostEntryKey(post.ID)

	cfg, err := o.configs.Source(ctx, post.OrganizationID, models.SourceTypePost, slug)
	if err != nil {
		return Result{}, err
	}

	ident := identity{
		organizationID: post.OrganizationID,
		sourceType:     models.SourceTypePost,
		postTypeSlug:   slug,
		postID:         post.ID,
		entryKey:       entryKey,
	}

	if cfg == nil || !cfg.IsEnabled {
		return o.reject(ctx, ident, StatusDisabled)
	}
	if post.Status != models.PostStatusPublished {
		return o.reject(ctx, ident, StatusNotPublished)
	}

	src := extract.Source{
		Title:   post.Title,
		Excerpt: post.Excerpt,
		Content: post.Content,
		Slug:    post.Slug,
		Tags:    post.Tags,
		Meta:    post.MetaStrings(),
	}
	text := extract.BuildText(src, extractConfig(cfg))
	if text == "" {
		return o.reject(ctx, ident, StatusEmpty)
	}

	title := firstNonEmpty(post.Title, cfg.DisplayName, fmt.Sprintf("%s article", slug))
	entry := index.Entry{
		EntryKey:     entryKey,
		Text:         text,
		Title:        title,
		FilterValues: []string{post.OrganizationID, entryKey},
		Metadata: index.EntryMetadata{
			EntryID: entryKey,
			Source:  fmt.Sprintf("post:%s", slug),
			Slug:    post.Slug,
		},
		Importance: postImportance,
	}

	return o.commit(ctx, ident, cfg.ID, entry)
}

// IngestLmsEntry runs the pipeline for an LMS entry. organizationID may be
// empty, in which case it is derived from the record itself.
func (o *Orchestrator) IngestLmsEntry(ctx context.Context, id, postTypeSlug, organizationID string) (Result, error) {
	if !o.writer.Enabled() {
		return Result{Status: StatusMissingAPIKey}, nil
	}

	record, err := o.lms.Entry(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if record == nil {
		return Result{Status: StatusMissingPost}, nil
	}

	orgID := organizationID
	if orgID == "" {
		orgID = record.OrganizationID
	}
	if orgID == "" {
		return Result{Status: StatusMissingOrganization}, nil
	}

	slug := strings.ToLower(strings.TrimSpace(postTypeSlug))
	if slug == "" {
		slug = strings.ToLower(strings.TrimSpace(record.PostTypeSlug))
	}
	if slug == "" {
		return Result{Status: StatusMissingPost}, nil
	}
	entryKey := index.LmsEntryKey(slug, record.ID)

	cfg, err := o.configs.Source(ctx, orgID, models.SourceTypeLms, slug)
	if err != nil {
		return Result{}, err
	}

	ident := identity{
		organizationID: orgID,
		sourceType:     models.SourceTypeLms,
		postTypeSlug:   slug,
		postID:         record.ID,
		entryKey:       entryKey,
	}

	if cfg == nil || !cfg.IsEnabled {
		return o.reject(ctx, ident, StatusDisabled)
	}
	if record.Status != models.PostStatusPublished {
		return o.reject(ctx, ident, StatusNotPublished)
	}

	meta, err := o.lms.EntryMeta(ctx, record.ID)
	if err != nil {
		return Result{}, err
	}

	src := extract.Source{
		Title:   record.Title,
		Excerpt: record.Excerpt,
		Content: record.Content,
		Slug:    record.Slug,
		Tags:    record.Tags,
		Meta:    models.MetaFieldsToStrings(meta),
	}
	text := extract.BuildText(src, extractConfig(cfg))
	if text == "" {
		return o.reject(ctx, ident, StatusEmpty)
	}

	title := firstNonEmpty(record.Title, cfg.DisplayName, fmt.Sprintf("%s article", slug))
	entry := index.Entry{
		EntryKey:     entryKey,
		Text:         text,
		Title:        title,
		FilterValues: []string{orgID, entryKey},
		Metadata: index.EntryMetadata{
			EntryID: entryKey,
			Source:  fmt.Sprintf("lms:%s", slug),
			Slug:    record.Slug,
		},
		Importance: lmsImportance,
	}

	return o.commit(ctx, ident, cfg.ID, entry)
}

type identity struct {
	organizationID string
	sourceType     string
	postTypeSlug   string
	postID         string
	entryKey       string
}

// reject handles the ineligible branches: delete any prior entry for the
// key, then record the status. The pipeline never leaves a searchable
// entry behind for ineligible content.
func (o *Orchestrator) reject(ctx context.Context, ident identity, status string) (Result, error) {
	if err := o.writer.DeleteByKey(ctx, ident.organizationID, ident.entryKey); err != nil {
		return Result{}, err
	}
	if err := o.recordStatus(ctx, ident, status, nil); err != nil {
		return Result{}, err
	}
	logger.Debug("content not indexed",
		"organization_id", ident.organizationID,
		"entry_key", ident.entryKey,
		"status", status,
	)
	return Result{Status: status, EntryKey: ident.entryKey}, nil
}

func (o *Orchestrator) commit(ctx context.Context, ident identity, sourceID primitive.ObjectID, entry index.Entry) (Result, error) {
	receipt, err := o.writer.Upsert(ctx, ident.organizationID, entry)
	if err != nil {
		return Result{}, err
	}

	if err := o.writer.TouchIndexedAt(ctx, sourceID); err != nil {
		return Result{}, err
	}
	if err := o.recordStatus(ctx, ident, StatusIndexed, &receipt); err != nil {
		return Result{}, err
	}

	logger.Info("content indexed",
		"organization_id", ident.organizationID,
		"entry_key", ident.entryKey,
		"entry_id", receipt.EntryID,
	)
	return Result{Status: StatusIndexed, EntryKey: ident.entryKey}, nil
}

func (o *Orchestrator) recordStatus(ctx context.Context, ident identity, status string, receipt *index.Receipt) error {
	now := time.Now()
	row := models.RagIndexStatus{
		OrganizationID: ident.organizationID,
		SourceType:     ident.sourceType,
		PostTypeSlug:   ident.postTypeSlug,
		PostID:         ident.postID,
		EntryKey:       ident.entryKey,
		LastStatus:     status,
		LastAttemptAt:  now,
	}
	if status == StatusIndexed {
		row.LastSuccessAt = &now
	}
	if receipt != nil {
		row.LastEntryID = receipt.EntryID
		row.LastEntryStatus = receipt.Status
	}
	return o.statuses.Upsert(ctx, row)
}

func extractConfig(cfg *models.RagSource) extract.Config {
	return extract.Config{
		Fields:             cfg.Fields,
		IncludeTags:        cfg.IncludeTags,
		MetaFieldKeys:      cfg.MetaFieldKeys,
		AdditionalMetaKeys: cfg.AdditionalMetaKeys,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

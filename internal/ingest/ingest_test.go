package ingest

import (
	"context"
	"fmt"
	"testing"

	"saas-knowledge-indexer/internal/index"
	"saas-knowledge-indexer/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fakes for the store and writer collaborators.

type fakeContent struct {
	posts map[string]*models.Post
}

func (f *fakeContent) PostForIngestion(_ context.Context, id string) (*models.Post, error) {
	return f.posts[id], nil
}

type fakeLms struct {
	entries map[string]*models.LmsEntry
	meta    map[string][]models.MetaField
}

func (f *fakeLms) Entry(_ context.Context, id string) (*models.LmsEntry, error) {
	return f.entries[id], nil
}

func (f *fakeLms) EntryMeta(_ context.Context, id string) ([]models.MetaField, error) {
	return f.meta[id], nil
}

type fakeConfigs struct {
	sources map[string]*models.RagSource
}

func configKey(org, sourceType, slug string) string {
	return fmt.Sprintf("%s|%s|%s", org, sourceType, slug)
}

func (f *fakeConfigs) Source(_ context.Context, org, sourceType, slug string) (*models.RagSource, error) {
	return f.sources[configKey(org, sourceType, slug)], nil
}

type fakeStatuses struct {
	rows map[string]models.RagIndexStatus
}

func (f *fakeStatuses) Upsert(_ context.Context, row models.RagIndexStatus) error {
	if f.rows == nil {
		f.rows = map[string]models.RagIndexStatus{}
	}
	key := fmt.Sprintf("%s|%s|%s|%s", row.OrganizationID, row.SourceType, row.PostTypeSlug, row.PostID)
	f.rows[key] = row
	return nil
}

func (f *fakeStatuses) only(t *testing.T) models.RagIndexStatus {
	t.Helper()
	if len(f.rows) != 1 {
		t.Fatalf("expected exactly 1 status row, got %d", len(f.rows))
	}
	for _, row := range f.rows {
		return row
	}
	panic("unreachable")
}

type upsertCall struct {
	org   string
	entry index.Entry
}

type fakeWriter struct {
	disabled bool
	upserts  []upsertCall
	deletes  []string
	touched  []primitive.ObjectID
}

func (f *fakeWriter) Enabled() bool { return !f.disabled }

func (f *fakeWriter) Upsert(_ context.Context, org string, e index.Entry) (index.Receipt, error) {
	f.upserts = append(f.upserts, upsertCall{org: org, entry: e})
	return index.Receipt{EntryID: "entry-1", Status: index.EntryStatusReady}, nil
}

func (f *fakeWriter) DeleteByKey(_ context.Context, org, entryKey string) error {
	f.deletes = append(f.deletes, org+"|"+entryKey)
	return nil
}

func (f *fakeWriter) TouchIndexedAt(_ context.Context, id primitive.ObjectID) error {
	f.touched = append(f.touched, id)
	return nil
}

// Fixture helpers.

func enabledConfig(org, sourceType, slug string) *models.RagSource {
	return &models.RagSource{
		ID:             primitive.NewObjectID(),
		OrganizationID: org,
		SourceType:     sourceType,
		PostTypeSlug:   slug,
		Fields:         []string{"title", "content"},
		IncludeTags:    true,
		IsEnabled:      true,
	}
}

func publishedPost(id, org, slug string) *models.Post {
	return &models.Post{
		ID:             id,
		OrganizationID: org,
		PostTypeSlug:   slug,
		Title:          "Guide",
		Content:        "Body text",
		Tags:           []string{"pdf"},
		Status:         models.PostStatusPublished,
	}
}

func newTestOrchestrator(content *fakeContent, lms *fakeLms, configs *fakeConfigs, statuses *fakeStatuses, writer *fakeWriter) *Orchestrator {
	if content == nil {
		content = &fakeContent{}
	}
	if lms == nil {
		lms = &fakeLms{}
	}
	if configs == nil {
		configs = &fakeConfigs{}
	}
	if statuses == nil {
		statuses = &fakeStatuses{}
	}
	if writer == nil {
		writer = &fakeWriter{}
	}
	return NewOrchestrator(content, lms, configs, statuses, writer)
}

func TestIngestPostHappyPath(t *testing.T) {
	cfg := enabledConfig("org1", models.SourceTypePost, "docs")
	content := &fakeContent{posts: map[string]*models.Post{"p1": publishedPost("p1", "org1", "docs")}}
	configs := &fakeConfigs{sources: map[string]*models.RagSource{configKey("org1", models.SourceTypePost, "docs"): cfg}}
	statuses := &fakeStatuses{}
	writer := &fakeWriter{}

	o := newTestOrchestrator(content, nil, configs, statuses, writer)
	res, err := o.IngestPost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("IngestPost: %v", err)
	}

	if res.Status != StatusIndexed {
		t.Errorf("status = %q, want %q", res.Status, StatusIndexed)
	}
	if res.EntryKey != "post:p1" {
		t.Errorf("entry key = %q, want post:p1", res.EntryKey)
	}

	if len(writer.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(writer.upserts))
	}
	got := writer.upserts[0]
	if got.org != "org1" {
		t.Errorf("upsert org = %q", got.org)
	}
	if got.entry.Text != "Guide\n\nBody text\n\nTags: pdf" {
		t.Errorf("entry text = %q", got.entry.Text)
	}
	if got.entry.Importance != 0.7 {
		t.Errorf("importance = %v, want 0.7", got.entry.Importance)
	}
	if got.entry.Metadata.Source != "post:docs" {
		t.Errorf("source = %q, want post:docs", got.entry.Metadata.Source)
	}

	if len(writer.touched) != 1 || writer.touched[0] != cfg.ID {
		t.Errorf("expected source config %v touched, got %v", cfg.ID, writer.touched)
	}

	row := statuses.only(t)
	if row.LastStatus != StatusIndexed {
		t.Errorf("status row = %q", row.LastStatus)
	}
	if row.LastSuccessAt == nil {
		t.Error("LastSuccessAt not set on indexed row")
	}
	if row.LastEntryID != "entry-1" || row.LastEntryStatus != index.EntryStatusReady {
		t.Errorf("receipt not recorded: %+v", row)
	}
}

func TestIngestPostMissingAPIKey(t *testing.T) {
	statuses := &fakeStatuses{}
	writer := &fakeWriter{disabled: true}

	o := newTestOrchestrator(nil, nil, nil, statuses, writer)
	res, err := o.IngestPost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("IngestPost: %v", err)
	}

	if res.Status != StatusMissingAPIKey {
		t.Errorf("status = %q, want %q", res.Status, StatusMissingAPIKey)
	}
	// Nothing written, nothing deleted, nothing recorded.
	if len(writer.upserts) != 0 || len(writer.deletes) != 0 {
		t.Error("writer touched despite missing credentials")
	}
	if len(statuses.rows) != 0 {
		t.Error("status row written despite missing credentials")
	}
}

func TestIngestPostMissing(t *testing.T) {
	tests := []struct {
		name string
		post *models.Post
	}{
		{"unknown id", nil},
		{"no organization", &models.Post{ID: "p1", PostTypeSlug: "docs", Status: models.PostStatusPublished}},
		{"no post type", &models.Post{ID: "p1", OrganizationID: "org1", Status: models.PostStatusPublished}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := &fakeContent{posts: map[string]*models.Post{}}
			if tt.post != nil {
				content.posts["p1"] = tt.post
			}
			statuses := &fakeStatuses{}
			writer := &fakeWriter{}

			o := newTestOrchestrator(content, nil, nil, statuses, writer)
			res, err := o.IngestPost(context.Background(), "p1")
			if err != nil {
				t.Fatalf("IngestPost: %v", err)
			}
			if res.Status != StatusMissingPost {
				t.Errorf("status = %q, want %q", res.Status, StatusMissingPost)
			}
			if len(writer.upserts) != 0 || len(writer.deletes) != 0 || len(statuses.rows) != 0 {
				t.Error("missing post must not write anything")
			}
		})
	}
}

func TestIngestPostDisabledDeletesStaleEntry(t *testing.T) {
	cfg := enabledConfig("org1", models.SourceTypePost, "docs")
	cfg.IsEnabled = false
	content := &fakeContent{posts: map[string]*models.Post{"p1": publishedPost("p1", "org1", "docs")}}
	configs := &fakeConfigs{sources: map[string]*models.RagSource{configKey("org1", models.SourceTypePost, "docs"): cfg}}
	statuses := &fakeStatuses{}
	writer := &fakeWriter{}

	o := newTestOrchestrator(content, nil, configs, statuses, writer)
	res, err := o.IngestPost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("IngestPost: %v", err)
	}

	if res.Status != StatusDisabled {
		t.Errorf("status = %q, want %q", res.Status, StatusDisabled)
	}
	if len(writer.deletes) != 1 || writer.deletes[0] != "org1|post:p1" {
		t.Errorf("stale entry not deleted: %v", writer.deletes)
	}
	if len(writer.upserts) != 0 {
		t.Error("disabled config must not index")
	}
	if row := statuses.only(t); row.LastStatus != StatusDisabled {
		t.Errorf("status row = %q", row.LastStatus)
	}
}

func TestIngestPostNoConfigTreatedAsDisabled(t *testing.T) {
	content := &fakeContent{posts: map[string]*models.Post{"p1": publishedPost("p1", "org1", "docs")}}
	statuses := &fakeStatuses{}
	writer := &fakeWriter{}

	o := newTestOrchestrator(content, nil, nil, statuses, writer)
	res, err := o.IngestPost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("IngestPost: %v", err)
	}
	if res.Status != StatusDisabled {
		t.Errorf("status = %q, want %q", res.Status, StatusDisabled)
	}
	if len(writer.deletes) != 1 {
		t.Errorf("expected stale-entry delete, got %v", writer.deletes)
	}
}

func TestIngestPostUnpublishedDeletesStaleEntry(t *testing.T) {
	cfg := enabledConfig("org1", models.SourceTypePost, "docs")
	post := publishedPost("p1", "org1", "docs")
	post.Status = models.PostStatusDraft
	content := &fakeContent{posts: map[string]*models.Post{"p1": post}}
	configs := &fakeConfigs{sources: map[string]*models.RagSource{configKey("org1", models.SourceTypePost, "docs"): cfg}}
	statuses := &fakeStatuses{}
	writer := &fakeWriter{}

	o := newTestOrchestrator(content, nil, configs, statuses, writer)
	res, err := o.IngestPost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("IngestPost: %v", err)
	}

	if res.Status != StatusNotPublished {
		t.Errorf("status = %q, want %q", res.Status, StatusNotPublished)
	}
	if len(writer.deletes) != 1 || writer.deletes[0] != "org1|post:p1" {
		t.Errorf("stale entry not deleted: %v", writer.deletes)
	}
	if len(writer.upserts) != 0 {
		t.Error("unpublished post must not index")
	}
}

func TestIngestPostEmptyTextShortCircuits(t *testing.T) {
	cfg := enabledConfig("org1", models.SourceTypePost, "docs")
	cfg.IncludeTags = false
	post := publishedPost("p1", "org1", "docs")
	post.Title = ""
	post.Content = "   "
	content := &fakeContent{posts: map[string]*models.Post{"p1": post}}
	configs := &fakeConfigs{sources: map[string]*models.RagSource{configKey("org1", models.SourceTypePost, "docs"): cfg}}
	statuses := &fakeStatuses{}
	writer := &fakeWriter{}

	o := newTestOrchestrator(content, nil, configs, statuses, writer)
	res, err := o.IngestPost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("IngestPost: %v", err)
	}

	if res.Status != StatusEmpty {
		t.Errorf("status = %q, want %q", res.Status, StatusEmpty)
	}
	if len(writer.upserts) != 0 {
		t.Error("empty text must not reach the writer")
	}
	if len(writer.deletes) != 1 {
		t.Error("empty text must delete any prior entry")
	}
	if row := statuses.only(t); row.LastStatus != StatusEmpty {
		t.Errorf("status row = %q", row.LastStatus)
	}
}

func TestIngestPostIdempotent(t *testing.T) {
	cfg := enabledConfig("org1", models.SourceTypePost, "docs")
	content := &fakeContent{posts: map[string]*models.Post{"p1": publishedPost("p1", "org1", "docs")}}
	configs := &fakeConfigs{sources: map[string]*models.RagSource{configKey("org1", models.SourceTypePost, "docs"): cfg}}
	statuses := &fakeStatuses{}
	writer := &fakeWriter{}

	o := newTestOrchestrator(content, nil, configs, statuses, writer)
	first, err := o.IngestPost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("first IngestPost: %v", err)
	}
	second, err := o.IngestPost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("second IngestPost: %v", err)
	}

	if first.Status != second.Status || first.EntryKey != second.EntryKey {
		t.Errorf("results diverge: %+v vs %+v", first, second)
	}
	// Same identity, same key: one status row, two writes of the same entry.
	if len(statuses.rows) != 1 {
		t.Errorf("expected 1 status row after reruns, got %d", len(statuses.rows))
	}
	if len(writer.upserts) != 2 {
		t.Fatalf("expected 2 upserts, got %d", len(writer.upserts))
	}
	if writer.upserts[0].entry.EntryKey != writer.upserts[1].entry.EntryKey {
		t.Error("reruns wrote different entry keys")
	}
}

func TestIngestLmsEntryHappyPath(t *testing.T) {
	cfg := enabledConfig("org1", models.SourceTypeLms, "lessons")
	cfg.MetaFieldKeys = []string{"duration"}
	lms := &fakeLms{
		entries: map[string]*models.LmsEntry{"l1": {
			ID:             "l1",
			OrganizationID: "org1",
			PostTypeSlug:   "lessons",
			Title:          "Lesson One",
			Content:        "Lesson body",
			Status:         models.PostStatusPublished,
		}},
		meta: map[string][]models.MetaField{"l1": {{Key: "duration", Value: "3h"}}},
	}
	configs := &fakeConfigs{sources: map[string]*models.RagSource{configKey("org1", models.SourceTypeLms, "lessons"): cfg}}
	statuses := &fakeStatuses{}
	writer := &fakeWriter{}

	o := newTestOrchestrator(nil, lms, configs, statuses, writer)
	res, err := o.IngestLmsEntry(context.Background(), "l1", "lessons", "")
	if err != nil {
		t.Fatalf("IngestLmsEntry: %v", err)
	}

	if res.Status != StatusIndexed {
		t.Errorf("status = %q, want %q", res.Status, StatusIndexed)
	}
	if res.EntryKey != "lms:lessons:l1" {
		t.Errorf("entry key = %q, want lms:lessons:l1", res.EntryKey)
	}

	if len(writer.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(writer.upserts))
	}
	entry := writer.upserts[0].entry
	if entry.Importance != 0.8 {
		t.Errorf("importance = %v, want 0.8", entry.Importance)
	}
	if entry.Metadata.Source != "lms:lessons" {
		t.Errorf("source = %q, want lms:lessons", entry.Metadata.Source)
	}
	if entry.Text != "Lesson One\n\nLesson body\n\nduration: 3h" {
		t.Errorf("entry text = %q", entry.Text)
	}
}

func TestIngestLmsEntryMissingOrganization(t *testing.T) {
	lms := &fakeLms{entries: map[string]*models.LmsEntry{"l1": {
		ID:           "l1",
		PostTypeSlug: "lessons",
		Status:       models.PostStatusPublished,
	}}}
	statuses := &fakeStatuses{}
	writer := &fakeWriter{}

	o := newTestOrchestrator(nil, lms, nil, statuses, writer)
	res, err := o.IngestLmsEntry(context.Background(), "l1", "lessons", "")
	if err != nil {
		t.Fatalf("IngestLmsEntry: %v", err)
	}

	if res.Status != StatusMissingOrganization {
		t.Errorf("status = %q, want %q", res.Status, StatusMissingOrganization)
	}
	if len(writer.upserts) != 0 || len(writer.deletes) != 0 || len(statuses.rows) != 0 {
		t.Error("missing organization must not write anything")
	}
}

func TestIngestKeysNeverCollideAcrossSources(t *testing.T) {
	postCfg := enabledConfig("org1", models.SourceTypePost, "lessons")
	lmsCfg := enabledConfig("org1", models.SourceTypeLms, "lessons")

	content := &fakeContent{posts: map[string]*models.Post{"x1": publishedPost("x1", "org1", "lessons")}}
	lms := &fakeLms{entries: map[string]*models.LmsEntry{"x1": {
		ID:             "x1",
		OrganizationID: "org1",
		PostTypeSlug:   "lessons",
		Title:          "Lesson",
		Content:        "Body",
		Status:         models.PostStatusPublished,
	}}}
	configs := &fakeConfigs{sources: map[string]*models.RagSource{
		configKey("org1", models.SourceTypePost, "lessons"): postCfg,
		configKey("org1", models.SourceTypeLms, "lessons"):  lmsCfg,
	}}
	writer := &fakeWriter{}

	o := newTestOrchestrator(content, lms, configs, &fakeStatuses{}, writer)
	postRes, err := o.IngestPost(context.Background(), "x1")
	if err != nil {
		t.Fatalf("IngestPost: %v", err)
	}
	lmsRes, err := o.IngestLmsEntry(context.Background(), "x1", "lessons", "")
	if err != nil {
		t.Fatalf("IngestLmsEntry: %v", err)
	}

	if postRes.EntryKey == lmsRes.EntryKey {
		t.Errorf("same record id produced colliding keys: %q", postRes.EntryKey)
	}
}

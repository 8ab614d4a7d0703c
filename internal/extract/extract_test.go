package extract

import "testing"

func TestBuildTextFieldOrder(t *testing.T) {
	src := Source{
		Title:   "Getting Started",
		Excerpt: "A short intro",
		Content: "Full body text",
	}

	tests := []struct {
		name   string
		fields []string
		want   string
	}{
		{
			name:   "title then content",
			fields: []string{"title", "content"},
			want:   "Getting Started\n\nFull body text",
		},
		{
			name:   "content before title",
			fields: []string{"content", "title"},
			want:   "Full body text\n\nGetting Started",
		},
		{
			name:   "all three",
			fields: []string{"title", "excerpt", "content"},
			want:   "Getting Started\n\nA short intro\n\nFull body text",
		},
		{
			name:   "unknown fields skipped",
			fields: []string{"title", "slug", "author"},
			want:   "Getting Started",
		},
		{
			name:   "no fields",
			fields: nil,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildText(src, Config{Fields: tt.fields})
			if got != tt.want {
				t.Errorf("BuildText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildTextSkipsEmptyFields(t *testing.T) {
	src := Source{Title: "  ", Content: "Body"}
	got := BuildText(src, Config{Fields: []string{"title", "content"}})
	if got != "Body" {
		t.Errorf("BuildText() = %q, want %q", got, "Body")
	}
}

func TestBuildTextTags(t *testing.T) {
	src := Source{
		Title: "Guide",
		Tags:  []string{"pdf", " export ", ""},
	}

	got := BuildText(src, Config{Fields: []string{"title"}, IncludeTags: true})
	want := "Guide\n\nTags: pdf, export"
	if got != want {
		t.Errorf("BuildText() = %q, want %q", got, want)
	}

	// Tags disabled: no tags segment even when tags exist.
	got = BuildText(src, Config{Fields: []string{"title"}})
	if got != "Guide" {
		t.Errorf("BuildText() without IncludeTags = %q, want %q", got, "Guide")
	}

	// No non-empty tags: no segment.
	got = BuildText(Source{Title: "Guide", Tags: []string{" ", ""}},
		Config{Fields: []string{"title"}, IncludeTags: true})
	if got != "Guide" {
		t.Errorf("BuildText() with blank tags = %q, want %q", got, "Guide")
	}
}

func TestBuildTextMetaKeys(t *testing.T) {
	src := Source{
		Title: "Course",
		Meta: map[string]string{
			"duration": "3h",
			"level":    "beginner",
			"price":    "",
		},
	}

	cfg := Config{
		Fields:             []string{"title"},
		MetaFieldKeys:      []string{"duration", "missing"},
		AdditionalMetaKeys: "level, price ,",
	}

	got := BuildText(src, cfg)
	want := "Course\n\nduration: 3h\n\nlevel: beginner"
	if got != want {
		t.Errorf("BuildText() = %q, want %q", got, want)
	}
}

func TestBuildTextMetaKeyListedTwice(t *testing.T) {
	// A key named in both lists is emitted twice; long-standing config
	// behavior that downstream relies on staying stable.
	src := Source{Meta: map[string]string{"duration": "3h"}}
	cfg := Config{
		MetaFieldKeys:      []string{"duration"},
		AdditionalMetaKeys: "duration",
	}

	got := BuildText(src, cfg)
	want := "duration: 3h\n\nduration: 3h"
	if got != want {
		t.Errorf("BuildText() = %q, want %q", got, want)
	}
}

func TestBuildTextDeterministic(t *testing.T) {
	src := Source{
		Title:   "Guide",
		Content: "Body",
		Tags:    []string{"a", "b"},
		Meta:    map[string]string{"k1": "v1", "k2": "v2"},
	}
	cfg := Config{
		Fields:        []string{"title", "content"},
		IncludeTags:   true,
		MetaFieldKeys: []string{"k2", "k1"},
	}

	first := BuildText(src, cfg)
	for i := 0; i < 50; i++ {
		if got := BuildText(src, cfg); got != first {
			t.Fatalf("BuildText() not deterministic: %q vs %q", got, first)
		}
	}
}

func TestBuildTextEmptyResult(t *testing.T) {
	got := BuildText(Source{}, Config{Fields: []string{"title", "content"}, IncludeTags: true})
	if got != "" {
		t.Errorf("BuildText() = %q, want empty", got)
	}
}

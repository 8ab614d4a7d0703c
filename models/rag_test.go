package models

import (
	"reflect"
	"testing"
)

func TestInferSourceType(t *testing.T) {
	tests := []struct {
		slug string
		want string
	}{
		{"courses", SourceTypeLms},
		{"lessons", SourceTypeLms},
		{"topics", SourceTypeLms},
		{"quizzes", SourceTypeLms},
		{"certificates", SourceTypeLms},
		{"badges", SourceTypeLms},
		{"Lessons", SourceTypeLms},
		{"posts", SourceTypePost},
		{"docs", SourceTypePost},
		{"course", SourceTypePost},
		{"", SourceTypePost},
	}

	for _, tt := range tests {
		if got := InferSourceType(tt.slug); got != tt.want {
			t.Errorf("InferSourceType(%q) = %q, want %q", tt.slug, got, tt.want)
		}
	}
}

func TestFilterSourceFields(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		want   []string
	}{
		{"nil falls back to default", nil, []string{"title", "content"}},
		{"empty falls back to default", []string{}, []string{"title", "content"}},
		{"keeps order", []string{"content", "title"}, []string{"content", "title"}},
		{"drops unknown", []string{"title", "author", "content", "slug"}, []string{"title", "content"}},
		{"excerpt allowed", []string{"excerpt"}, []string{"excerpt"}},
		{"all unknown yields empty", []string{"author", "slug"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterSourceFields(tt.fields)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterSourceFields(%v) = %v, want %v", tt.fields, got, tt.want)
			}
		})
	}
}

func TestMetaStrings(t *testing.T) {
	post := Post{Meta: map[string]interface{}{
		"duration":   "3h",
		"lessons":    12,
		"rating":     4.5,
		"published":  true,
		"draft":      false,
		"attachment": []string{"unsupported"},
		"nested":     map[string]interface{}{"x": 1},
		"":           "dropped",
	}}

	got := post.MetaStrings()
	want := map[string]string{
		"duration":  "3h",
		"lessons":   "12",
		"rating":    "4.5",
		"published": "true",
		"draft":     "false",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MetaStrings() = %v, want %v", got, want)
	}

	if (&Post{}).MetaStrings() != nil {
		t.Error("MetaStrings() on empty meta should be nil")
	}
}

func TestMetaFieldsToStrings(t *testing.T) {
	fields := []MetaField{
		{Key: "duration", Value: "3h"},
		{Key: "lessons", Value: int64(12)},
		{Key: "", Value: "dropped"},
		{Key: "duration", Value: "4h"}, // later value wins
	}

	got := MetaFieldsToStrings(fields)
	want := map[string]string{
		"duration": "4h",
		"lessons":  "12",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MetaFieldsToStrings() = %v, want %v", got, want)
	}
}

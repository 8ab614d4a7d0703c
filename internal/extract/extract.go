// Package extract flattens a content record into the single text blob that
// gets chunked and embedded. Everything here is pure: same inputs, same
// output, no I/O.
package extract

import "strings"

// Source is the content-side input, resolved from a CMS post or an LMS
// entry before extraction. Meta is already flattened to strings.
type Source struct {
	Title   string
	Excerpt string
	Content string
	Slug    string
	Tags    []string
	Meta    map[string]string
}

// Config is the per-content-type extraction configuration.
type Config struct {
	Fields             []string
	IncludeTags        bool
	MetaFieldKeys      []string
	AdditionalMetaKeys string
}

// BuildText assembles the indexable text for a source under a config.
// Segments appear in config order: the named fields, then tags, then meta
// keys. Empty segments are skipped; the result may be "" which means
// "nothing to index".
func BuildText(src Source, cfg Config) string {
	var segments []string

	appendSegment := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			segments = append(segments, s)
		}
	}

	for _, field := range cfg.Fields {
		switch field {
		case "title":
			appendSegment(src.Title)
		case "excerpt":
			appendSegment(src.Excerpt)
		case "content":
			appendSegment(src.Content)
		}
	}

	if cfg.IncludeTags {
		tags := make([]string, 0, len(src.Tags))
		for _, tag := range src.Tags {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				tags = append(tags, tag)
			}
		}
		if len(tags) > 0 {
			appendSegment("Tags: " + strings.Join(tags, ", "))
		}
	}

	for _, key := range resolveMetaKeys(cfg) {
		if value, ok := src.Meta[key]; ok {
			if strings.TrimSpace(value) != "" {
				appendSegment(key + ": " + value)
			}
		}
	}

	return strings.Join(segments, "\n\n")
}

// resolveMetaKeys merges the configured key list with the comma-separated
// extras, in order. Keys present in both appear twice; that duplication is
// deliberate, matching how configs have always been interpreted.
func resolveMetaKeys(cfg Config) []string {
	keys := make([]string, 0, len(cfg.MetaFieldKeys))
	keys = append(keys, cfg.MetaFieldKeys...)
	for _, token := range strings.Split(cfg.AdditionalMetaKeys, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			keys = append(keys, token)
		}
	}
	return keys
}

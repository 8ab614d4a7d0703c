package index

import "fmt"

// Entry keys correlate a content record with its index entry. Re-ingestion
// with the same key supersedes the prior entry instead of duplicating it.

// PostEntryKey keys a CMS post.
func PostEntryKey(postID string) string {
	return fmt.Sprintf("post:%s", postID)
}

// LmsEntryKey keys an LMS entry; the slug keeps LMS content types apart
// from CMS posts that share an id.
func LmsEntryKey(postTypeSlug, id string) string {
	return fmt.Sprintf("lms:%s:%s", postTypeSlug, id)
}

// NamespaceForOrganization derives the isolation namespace for an
// organization. Deterministic; no randomness.
func NamespaceForOrganization(organizationID string) string {
	return fmt.Sprintf("org-%s", organizationID)
}

package objectkey

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// globalNameSeparator joins an organization name and a local package name.
const globalNameSeparator = "--"

var (
	nonCanonicalRun    = regexp.MustCompile(`[^a-z0-9_-]+`)
	nonAlphanumericRun = regexp.MustCompile(`[^A-Za-z0-9]+`)

	// Matches the object name restrictions of the blob store.
	resourceNamePattern = regexp.MustCompile(`^[0-9A-Za-z!\-_.*'()&,$:@?+ ]+$`)
)

// CanonicalizePackageName turns a key segment into a local package name:
// lowercase, runs of unsupported characters collapsed to a single dash.
func CanonicalizePackageName(segment string) string {
	name := nonCanonicalRun.ReplaceAllString(strings.ToLower(segment), "-")
	return strings.Trim(name, "-")
}

// GlobalPackageName prefixes a local package name with its organization.
func GlobalPackageName(organization, local string) string {
	return organization + globalNameSeparator + local
}

// LocalPackageName strips the organization prefix from a global package name.
// Names without the prefix are returned unchanged.
func LocalPackageName(organization, global string) string {
	return strings.TrimPrefix(global, organization+globalNameSeparator)
}

// TitleFromPackageName derives a human title, e.g. "sync-test_1" -> "Sync Test 1".
func TitleFromPackageName(local string) string {
	words := strings.TrimSpace(nonAlphanumericRun.ReplaceAllString(local, " "))
	return cases.Title(language.Und).String(words)
}

// ValidResourceName reports whether name can be used as an object key segment.
func ValidResourceName(name string) bool {
	return resourceNamePattern.MatchString(name)
}

// Package objectkey maps blob store object keys to catalog identity.
//
// Every key format ever written must stay parseable, so formats are kept in a
// fixed table and tried from the highest version down.
//
//	v0: <org>/<package>/<resource path...>
//	v1: 1/<org>/<package>/<resource path...>
//
// A single resource path segment addresses an uploaded file. Longer paths
// address streamed data: the first segment names the stream and the last one
// is the delivered object, whose name encodes the ingestion time.
package objectkey

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloudsync/internal/domain"
)

// CurrentVersion is used when synthesizing keys for new uploads.
const CurrentVersion = 1

// Type classifies the data a key addresses.
type Type string

const (
	TypeUpload    Type = "upload"
	TypeStreaming Type = "streaming"
)

// Key is the parsed form of an object key.
type Key struct {
	Raw              string
	Version          int
	OrganizationName string
	PackageName      string
	PackageSegment   string
	ResourceName     string
	Type             Type
	Filename         string
	IngestionTime    *time.Time
}

// LocalPackageName is the package name without the organization prefix.
func (k *Key) LocalPackageName() string {
	return CanonicalizePackageName(k.PackageSegment)
}

// Components identify an uploaded resource for key construction.
type Components struct {
	OrganizationName string
	PackageSegment   string
	ResourceName     string
}

type format interface {
	version() int
	parse(raw string) (*Key, error)
	construct(c Components) string
}

// formats is ordered from the highest version to the lowest.
var formats = []format{formatV1{}, formatV0{}}

// Parse decodes raw with the first format that accepts it.
func Parse(raw string) (*Key, error) {
	for _, f := range formats {
		if key, err := f.parse(raw); err == nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedKeyFormat, raw)
}

// Construct builds the canonical upload key for the given format version.
func Construct(c Components, version int) (*Key, error) {
	f := formatFor(version)
	if f == nil {
		return nil, fmt.Errorf("%w: version %d", domain.ErrUnsupportedKeyFormat, version)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return newKey(f.construct(c), version, c.OrganizationName, c.PackageSegment, []string{c.ResourceName}, nil), nil
}

// FromResource returns the key a resource is stored under. A stored key is
// re-parsed so it keeps the version it was written with; otherwise a key is
// synthesized with CurrentVersion.
func FromResource(pkg *domain.Package, res *domain.Resource) (*Key, error) {
	if res.StorageKey != nil && *res.StorageKey != "" {
		return Parse(*res.StorageKey)
	}
	return Construct(Components{
		OrganizationName: pkg.OrganizationName,
		PackageSegment:   pkg.StorageKeySegment,
		ResourceName:     res.Name,
	}, CurrentVersion)
}

func formatFor(version int) format {
	for _, f := range formats {
		if f.version() == version {
			return f
		}
	}
	return nil
}

func (c Components) validate() error {
	if c.OrganizationName == "" || strings.Contains(c.OrganizationName, "/") {
		return fmt.Errorf("%w: organization %q", domain.ErrUnsupportedKeyFormat, c.OrganizationName)
	}
	if c.PackageSegment == "" || strings.Contains(c.PackageSegment, "/") {
		return fmt.Errorf("%w: package segment %q", domain.ErrUnsupportedKeyFormat, c.PackageSegment)
	}
	if !ValidResourceName(c.ResourceName) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidResourceName, c.ResourceName)
	}
	return nil
}

type formatV0 struct{}

func (formatV0) version() int { return 0 }

func (formatV0) parse(raw string) (*Key, error) {
	return parsePath(raw, raw, 0, false)
}

func (formatV0) construct(c Components) string {
	return c.OrganizationName + "/" + c.PackageSegment + "/" + c.ResourceName
}

type formatV1 struct{}

func (formatV1) version() int { return 1 }

func (formatV1) parse(raw string) (*Key, error) {
	prefix, path, ok := strings.Cut(raw, "/")
	if !ok {
		return nil, domain.ErrUnsupportedKeyFormat
	}
	if v, err := strconv.Atoi(prefix); err != nil || v != 1 {
		return nil, domain.ErrUnsupportedKeyFormat
	}
	return parsePath(path, raw, 1, true)
}

func (formatV1) construct(c Components) string {
	return "1/" + formatV0{}.construct(c)
}

func parsePath(path, raw string, version int, requireIngestionTime bool) (*Key, error) {
	segments := strings.Split(path, "/")
	if len(segments) < 3 {
		return nil, domain.ErrUnsupportedKeyFormat
	}
	for _, s := range segments {
		if s == "" {
			return nil, domain.ErrUnsupportedKeyFormat
		}
	}

	resourcePath := segments[2:]
	var ingestion *time.Time
	if len(resourcePath) > 1 {
		t, err := ParseIngestionTime(resourcePath[len(resourcePath)-1])
		if err != nil && requireIngestionTime {
			return nil, err
		}
		if err == nil {
			ingestion = &t
		}
	}
	return newKey(raw, version, segments[0], segments[1], resourcePath, ingestion), nil
}

func newKey(raw string, version int, org, segment string, resourcePath []string, ingestion *time.Time) *Key {
	keyType := TypeUpload
	if len(resourcePath) > 1 {
		keyType = TypeStreaming
	}
	return &Key{
		Raw:              raw,
		Version:          version,
		OrganizationName: org,
		PackageName:      GlobalPackageName(org, CanonicalizePackageName(segment)),
		PackageSegment:   segment,
		ResourceName:     resourcePath[0],
		Type:             keyType,
		Filename:         resourcePath[len(resourcePath)-1],
		IngestionTime:    ingestion,
	}
}

const (
	suffixTokens    = 5
	timestampTokens = 6
)

// ParseIngestionTime decodes the timestamp of a streamed object name:
//
//	<stream name>-YYYY-MM-DD-HH-MM-SS-<5 token random suffix>
//
// The stream name may contain dashes, so tokens are counted from the end.
func ParseIngestionTime(filename string) (time.Time, error) {
	tokens := strings.Split(filename, "-")
	if len(tokens) < suffixTokens+timestampTokens {
		return time.Time{}, fmt.Errorf("%w: no ingestion time in %q", domain.ErrUnsupportedKeyFormat, filename)
	}
	end := len(tokens) - suffixTokens
	var v [timestampTokens]int
	for i, tok := range tokens[end-timestampTokens : end] {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: no ingestion time in %q", domain.ErrUnsupportedKeyFormat, filename)
		}
		v[i] = n
	}

	t := time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v[5], 0, time.UTC)
	// time.Date normalizes out-of-range fields; reject them instead.
	if t.Year() != v[0] || int(t.Month()) != v[1] || t.Day() != v[2] ||
		t.Hour() != v[3] || t.Minute() != v[4] || t.Second() != v[5] {
		return time.Time{}, fmt.Errorf("%w: invalid ingestion time in %q", domain.ErrUnsupportedKeyFormat, filename)
	}
	return t, nil
}

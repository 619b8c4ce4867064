package objectkey_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudsync/internal/domain"
	"cloudsync/internal/objectkey"
)

const streamFile = "PUT-S3-Qj0zi-3-2023-06-26-18-42-52-3d8d51f5-0fc4-3a21-8d2e-ff614b8e9a30"

func TestParse_V0Upload(t *testing.T) {
	key, err := objectkey.Parse("test-organization/Sync Test/data.csv")
	require.NoError(t, err)

	assert.Equal(t, 0, key.Version)
	assert.Equal(t, "test-organization", key.OrganizationName)
	assert.Equal(t, "Sync Test", key.PackageSegment)
	assert.Equal(t, "test-organization--sync-test", key.PackageName)
	assert.Equal(t, "data.csv", key.ResourceName)
	assert.Equal(t, "data.csv", key.Filename)
	assert.Equal(t, objectkey.TypeUpload, key.Type)
	assert.Nil(t, key.IngestionTime)
}

func TestParse_V1Upload(t *testing.T) {
	key, err := objectkey.Parse("1/test-organization/sync-test-create-1/data.csv")
	require.NoError(t, err)

	assert.Equal(t, 1, key.Version)
	assert.Equal(t, "test-organization", key.OrganizationName)
	assert.Equal(t, "test-organization--sync-test-create-1", key.PackageName)
	assert.Equal(t, "sync-test-create-1", key.LocalPackageName())
	assert.Equal(t, objectkey.TypeUpload, key.Type)
}

func TestParse_V1Streaming(t *testing.T) {
	raw := "1/test-organization/sensors/firehose/2023/06/26/" + streamFile
	key, err := objectkey.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, 1, key.Version)
	assert.Equal(t, objectkey.TypeStreaming, key.Type)
	assert.Equal(t, "firehose", key.ResourceName)
	assert.Equal(t, streamFile, key.Filename)
	require.NotNil(t, key.IngestionTime)
	assert.Equal(t, time.Date(2023, 6, 26, 18, 42, 52, 0, time.UTC), *key.IngestionTime)
}

func TestParse_V1StreamingWithoutTimestampFallsBackToV0(t *testing.T) {
	key, err := objectkey.Parse("1/test-organization/sensors/firehose/part-0001.json")
	require.NoError(t, err)

	// Only the v0 reading accepts it, so "1" is taken as the organization.
	assert.Equal(t, 0, key.Version)
	assert.Equal(t, "1", key.OrganizationName)
	assert.Equal(t, objectkey.TypeStreaming, key.Type)
	assert.Nil(t, key.IngestionTime)
}

func TestParse_V0StreamingTimestampOptional(t *testing.T) {
	key, err := objectkey.Parse("test-organization/sensors/firehose/" + streamFile)
	require.NoError(t, err)
	assert.Equal(t, objectkey.TypeStreaming, key.Type)
	require.NotNil(t, key.IngestionTime)

	key, err = objectkey.Parse("test-organization/sensors/firehose/readme.txt")
	require.NoError(t, err)
	assert.Nil(t, key.IngestionTime)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"too few segments", "org/package"},
		{"single segment", "file.csv"},
		{"empty org", "/package/file.csv"},
		{"empty package", "org//file.csv"},
		{"empty resource", "org/package/"},
		{"empty inner segment", "1/org/package//file.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := objectkey.Parse(tt.raw)
			assert.ErrorIs(t, err, domain.ErrUnsupportedKeyFormat)
		})
	}
}

func TestParseIngestionTime(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"firehose name", streamFile, false},
		{"minimal tokens", "2023-06-26-18-42-52-a-b-c-d-e", false},
		{"ten tokens", "2023-06-26-18-42-52-a-b-c-d", true},
		{"non numeric", "s-2023-06-xx-18-42-52-a-b-c-d-e", true},
		{"month out of range", "s-2023-13-26-18-42-52-a-b-c-d-e", true},
		{"day out of range", "s-2023-02-30-18-42-52-a-b-c-d-e", true},
		{"hour out of range", "s-2023-06-26-24-42-52-a-b-c-d-e", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := objectkey.ParseIngestionTime(tt.filename)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnsupportedKeyFormat)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConstruct_RoundTrip(t *testing.T) {
	inputs := []objectkey.Components{
		{OrganizationName: "test-organization", PackageSegment: "sync-test-create-1", ResourceName: "data.csv"},
		{OrganizationName: "acme", PackageSegment: "Weather Data (2023)", ResourceName: "readings 01.json"},
		{OrganizationName: "acme", PackageSegment: "pkg", ResourceName: "a&b,c$d:e@f?g+h'i(j)k*l!m"},
	}
	for _, c := range inputs {
		for _, version := range []int{0, 1} {
			built, err := objectkey.Construct(c, version)
			require.NoError(t, err)

			parsed, err := objectkey.Parse(built.Raw)
			require.NoError(t, err)
			assert.Equal(t, built, parsed, "version %d: %s", version, built.Raw)
		}
	}
}

func TestConstruct_Rejects(t *testing.T) {
	valid := objectkey.Components{OrganizationName: "org", PackageSegment: "pkg", ResourceName: "file.csv"}

	_, err := objectkey.Construct(valid, 7)
	assert.ErrorIs(t, err, domain.ErrUnsupportedKeyFormat)

	bad := valid
	bad.ResourceName = "dir/file.csv"
	_, err = objectkey.Construct(bad, objectkey.CurrentVersion)
	assert.ErrorIs(t, err, domain.ErrInvalidResourceName)

	bad = valid
	bad.ResourceName = ""
	_, err = objectkey.Construct(bad, objectkey.CurrentVersion)
	assert.ErrorIs(t, err, domain.ErrInvalidResourceName)

	bad = valid
	bad.OrganizationName = ""
	_, err = objectkey.Construct(bad, objectkey.CurrentVersion)
	assert.ErrorIs(t, err, domain.ErrUnsupportedKeyFormat)
}

func TestFromResource(t *testing.T) {
	pkg := &domain.Package{OrganizationName: "acme", StorageKeySegment: "weather"}

	t.Run("synthesizes current version", func(t *testing.T) {
		key, err := objectkey.FromResource(pkg, &domain.Resource{Name: "data.csv"})
		require.NoError(t, err)
		assert.Equal(t, "1/acme/weather/data.csv", key.Raw)
		assert.Equal(t, objectkey.CurrentVersion, key.Version)
	})

	t.Run("keeps stored key version", func(t *testing.T) {
		stored := "acme/weather/data.csv"
		key, err := objectkey.FromResource(pkg, &domain.Resource{Name: "data.csv", StorageKey: &stored})
		require.NoError(t, err)
		assert.Equal(t, stored, key.Raw)
		assert.Equal(t, 0, key.Version)
	})
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "weather-data-2023", objectkey.CanonicalizePackageName("  Weather Data (2023)!"))
	assert.Equal(t, "a_b--c", objectkey.CanonicalizePackageName("A_B--C"))
	assert.Equal(t, "acme--weather", objectkey.GlobalPackageName("acme", "weather"))
	assert.Equal(t, "weather", objectkey.LocalPackageName("acme", "acme--weather"))
	assert.Equal(t, "other--weather", objectkey.LocalPackageName("acme", "other--weather"))
	assert.Equal(t, "Sync Test Create 1", objectkey.TitleFromPackageName("sync-test_create--1"))
	assert.True(t, objectkey.ValidResourceName("report (final).csv"))
	assert.False(t, objectkey.ValidResourceName("a/b"))
	assert.False(t, objectkey.ValidResourceName("tab\there"))
}

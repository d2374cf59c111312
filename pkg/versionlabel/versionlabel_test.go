package versionlabel_test

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/nais/kfp-deploy/pkg/versionlabel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTimestamp = time.Date(2020, time.December, 31, 12, 34, 56, 0, time.UTC)

func TestCreate(t *testing.T) {
	for _, tt := range []struct {
		name     string
		timezone string
		expected string
	}{
		{"utc", "UTC", "test-pipeline-v201231-123456"},
		{"jst alias", "JST", "test-pipeline-v201231-213456"},
		{"canonical tokyo", "Asia/Tokyo", "test-pipeline-v201231-213456"},
		{"crosses new year", "Pacific/Auckland", "test-pipeline-v210101-013456"},
		{"negative offset", "America/New_York", "test-pipeline-v201231-073456"},
		{"lower case utc", "utc", "test-pipeline-v201231-123456"},
		{"lower case zone", "asia/tokyo", "test-pipeline-v201231-213456"},
		{"mixed case zone", "AMERICA/NEW_YORK", "test-pipeline-v201231-073456"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := versionlabel.Create("test-pipeline", tt.timezone, baseTimestamp)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestCreateIsDeterministic(t *testing.T) {
	first, err := versionlabel.Create("p", "Europe/Oslo", baseTimestamp)
	require.NoError(t, err)
	second, err := versionlabel.Create("p", "Europe/Oslo", baseTimestamp)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Regexp(t, regexp.MustCompile(`^p-v\d{6}-\d{6}$`), first)
}

func TestAliasResolvesToCanonicalZone(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	alias, err := versionlabel.Create("p", "JST", ts)
	require.NoError(t, err)
	canonical, err := versionlabel.Create("p", "Asia/Tokyo", ts)
	require.NoError(t, err)
	assert.Equal(t, canonical, alias)
}

func TestCreateNow(t *testing.T) {
	actual, err := versionlabel.CreateNow("test-pipeline", "UTC")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(actual, "test-pipeline-v"))
	assert.Regexp(t, `^test-pipeline-v\d{6}-\d{6}$`, actual)
}

func TestUnknownTimezone(t *testing.T) {
	for _, tz := range []string{"Mars/Olympus", "mars/olympus", "", "Local", "local"} {
		actual, err := versionlabel.Create("p", tz, baseTimestamp)
		assert.ErrorIs(t, err, versionlabel.ErrUnknownTimezone, tz)
		assert.Empty(t, actual)
	}
}

func TestExtraAliases(t *testing.T) {
	namer := versionlabel.New(map[string]string{
		"CET": "Europe/Oslo",
		"JST": "UTC",
	})

	actual, err := namer.Create("p", "CET", baseTimestamp)
	require.NoError(t, err)
	assert.Equal(t, "p-v201231-133456", actual)

	// user entries take precedence over built-in ones
	actual, err = namer.Create("p", "JST", baseTimestamp)
	require.NoError(t, err)
	assert.Equal(t, "p-v201231-123456", actual)

	// the default table is left untouched
	assert.Equal(t, "Asia/Tokyo", versionlabel.DefaultAliases["JST"])
	assert.NotContains(t, versionlabel.DefaultAliases, "CET")
}

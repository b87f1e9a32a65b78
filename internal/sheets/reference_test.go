package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Reference
	}{
		{
			name: "edit link with fragment gid",
			raw:  "https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=123",
			want: Reference{SpreadsheetID: "1AbC-d_9", GID: "123"},
		},
		{
			name: "query gid",
			raw:  "https://docs.google.com/spreadsheets/d/XYZ/edit?usp=sharing&gid=77",
			want: Reference{SpreadsheetID: "XYZ", GID: "77"},
		},
		{
			name: "no gid selects first tab",
			raw:  "  https://docs.google.com/spreadsheets/d/XYZ/edit  ",
			want: Reference{SpreadsheetID: "XYZ", GID: DefaultGID},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseReference(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseReferenceRejectsForeignLinks(t *testing.T) {
	for _, raw := range []string{"", "https://example.com/file.csv", "https://docs.google.com/document/d/abc"} {
		_, err := ParseReference(raw)
		assert.ErrorIs(t, err, ErrInvalidReference, raw)
	}
}

func TestSourceErrorAccessDenied(t *testing.T) {
	assert.True(t, (&SourceError{Status: 404}).AccessDenied())
	assert.True(t, (&SourceError{Status: 403}).AccessDenied())
	assert.True(t, (&SourceError{Status: 200, SignIn: true}).AccessDenied())
	assert.False(t, (&SourceError{Status: 500}).AccessDenied())
	assert.ErrorIs(t, &SourceError{Status: 500}, ErrSourceUnavailable)
}

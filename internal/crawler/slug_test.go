package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlug(t *testing.T) {
	tests := []struct {
		slug    string
		ok      bool
		prefix  string
		number  string
		year    int
		regType string
	}{
		{"uu-no-13-tahun-2003", true, "uu", "13", 2003, "UU"},
		{"uu-no-6a-tahun-2023", true, "uu", "6a", 2023, "UU"},
		{"pp-no-35-tahun-2021", true, "pp", "35", 2021, "PP"},
		{"permenkumham-no-1-tahun-2020", true, "permenkumham", "1", 2020, "PERMEN"},
		{"perda-no-2-tahun-2019", true, "perda", "2", 2019, "PERDA"},
		{"tap-mpr-no-iv-mpr-1999-tahun-2004", true, "tap-mpr", "iv-mpr-1999", 2004, "TAP_MPR"},
		{"tapmpr-no-vi-mpr-2000-tahun-2000", true, "tapmpr", "vi-mpr-2000", 2000, "TAP_MPR"},
		{"uu-no--13-tahun-2003", true, "uu", "13", 2003, "UU"}, // stray dash trimmed
		{"uu-no--tahun-2003", false, "", "", 0, ""},           // empty number
		{"uu-13-2003", true, "uu", "13", 2003, "UU"}, // short form accepted on read
		{"UU-NO-13-TAHUN-2003", true, "uu", "13", 2003, "UU"},
		{"bukan-slug", false, "", "", 0, ""},
		{"", false, "", "", 0, ""},
		{"13-tahun-2003", false, "", "", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			info, ok := ParseSlug(tt.slug)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.prefix, info.Prefix)
			assert.Equal(t, tt.number, info.Number)
			assert.Equal(t, tt.year, info.Year)
			assert.Equal(t, tt.regType, info.RegType)
		})
	}
}

func TestInferRegType(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"uu", "UU"},
		{"pp", "PP"},
		{"perpres", "PERPRES"},
		{"tapmpr", "TAP_MPR"},
		{"tap-mpr", "TAP_MPR"},
		{"permenkumham", "PERMEN"},
		{"kepmenaker", "PERMEN"},
		{"perwako", "PERDA"},
		{"qanun", "PERDA"},
		{"pergub", "PERDA"},
		{"peraturan-bkpm", "PERBAN"},
		{"pojk", "PERBAN"},
		{"perka", "PERBAN"},
		{"sesuatu-lain", "PERMEN"}, // ministry regulation is the default
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, InferRegType(tt.prefix))
		})
	}
}

func TestCanonicalSlug(t *testing.T) {
	assert.Equal(t, "uu-no-13-tahun-2003", CanonicalSlug("UU", "13", 2003))
	assert.Equal(t, "uu-no-6a-tahun-2023", CanonicalSlug("uu", "6A", 2023))
}

func TestFRBRUri(t *testing.T) {
	assert.Equal(t, "/akn/id/act/uu/2003/13", FRBRUri("uu", 2003, "13"))
	assert.Equal(t, "/akn/id/act/permenkumham/2020/1", FRBRUri("PERMENKUMHAM", 2020, "1"))
}

func TestBuildTitle(t *testing.T) {
	info, ok := ParseSlug("uu-no-13-tahun-2003")
	require.True(t, ok)

	title := BuildTitle(info, "Ketenagakerjaan")
	assert.Equal(t, "Undang-Undang Nomor 13 Tahun 2003 tentang Ketenagakerjaan", title)

	bare := BuildTitle(info, "  ")
	assert.Equal(t, "Undang-Undang Nomor 13 Tahun 2003", bare)
}

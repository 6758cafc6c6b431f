package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrectOCR(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"standalone pasal l", "Pasal l\nIsi pasal.", "Pasal 1\nIsi pasal."},
		{"pasal l with digits", "Pasal l3 mengatur hal itu.", "Pasal 13 mengatur hal itu."},
		{"pasal capital I", "Pasal I3 mengatur hal itu.", "Pasal 13 mengatur hal itu."},
		{"trailing O after digit", "Nomor 1O Tahun 2020.", "Nomor 10 Tahun 2020."},
		{"pasal number ending in O", "Menurut Pasal 1O tersebut.", "Menurut Pasal 10 tersebut."},
		{"fresiden", "FRESIDEN REPUBLIK INDONESIA", "PRESIDEN REPUBLIK INDONESIA"},
		{"pres!den", "PRES!DEN REPUB!IK INDONES!A", "PRESIDEN REPUBLIK INDONESIA"},
		{"undang undang spacing", "UNDANG UNDANG REPUBLIK INDONESIA", "UNDANG-UNDANG REPUBLIK INDONESIA"},
		{"menimbang case", "MENIMBANG: bahwa perlu diatur;", "Menimbang: bahwa perlu diatur;"},
		{"ligatures", "deﬁnisi dan konﬂik", "definisi dan konflik"},
		{"non-breaking space", "Pasal\u00a05", "Pasal 5"},
		{"lone punctuation line", "baris satu\n;\nbaris dua", "baris satu\n\nbaris dua"},
		{"scan rule line", "baris satu\n-----\nbaris dua", "baris satu\n\nbaris dua"},
		{"leading l before digits", "Nomor l23 Tahun 2020", "Nomor 123 Tahun 2020"},
		{"inner l between digits", "halaman 2l3 dari 400", "halaman 213 dari 400"},
		{"blank run collapse", "satu\n\n\n\ndua", "satu\n\ndua"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CorrectOCR(tt.in))
		})
	}
}

// Correcting already-corrected text must change nothing
func TestCorrectOCRIdempotent(t *testing.T) {
	samples := []string{
		"Pasal l\n(1) Tahun 2O20.\nFRESIDEN REPUB!IK INDONES!A\nNomor l23.",
		"UNDANG UNDANG\n\n\n\nMENIMBANG: deﬁnisi l23 dan 4l5.",
		sampleLaw,
	}
	for _, s := range samples {
		once := CorrectOCR(s)
		assert.Equal(t, once, CorrectOCR(once))
	}
}

package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/pasal/internal/models"
)

const sampleLaw = `UNDANG-UNDANG REPUBLIK INDONESIA
NOMOR 1 TAHUN 2020
TENTANG CONTOH

Dengan Rahmat Tuhan Yang Maha Esa

BAB I
KETENTUAN UMUM

Pasal 1
Dalam Undang-Undang ini yang dimaksud dengan:
(1) Contoh adalah sesuatu.
(2) Peraturan adalah aturan.

BAB II
RUANG LINGKUP

Bagian Kesatu
Umum

Paragraf 1
Asas

Pasal 2
Penyelenggaraan dilakukan berdasarkan asas kepastian hukum.

Pasal 3
Ruang lingkup meliputi seluruh wilayah.
`

func TestParseNesting(t *testing.T) {
	nodes := Parse(sampleLaw)
	require.NotEmpty(t, nodes)

	require.Equal(t, models.NodePreamble, nodes[0].Type)
	assert.Contains(t, nodes[0].Content, "NOMOR 1 TAHUN 2020")

	require.Len(t, nodes, 3) // preamble + BAB I + BAB II

	bab1 := nodes[1]
	require.Equal(t, models.NodeBab, bab1.Type)
	assert.Equal(t, "I", bab1.Number)
	assert.Equal(t, "KETENTUAN UMUM", bab1.Heading)
	require.Len(t, bab1.Children, 1)

	pasal1 := bab1.Children[0]
	assert.Equal(t, models.NodePasal, pasal1.Type)
	assert.Equal(t, "1", pasal1.Number)
	require.Len(t, pasal1.Children, 2)
	assert.Equal(t, "1", pasal1.Children[0].Number)
	assert.Equal(t, "Contoh adalah sesuatu.", pasal1.Children[0].Content)

	bab2 := nodes[2]
	require.Equal(t, models.NodeBab, bab2.Type)
	require.Len(t, bab2.Children, 1)

	bagian := bab2.Children[0]
	require.Equal(t, models.NodeBagian, bagian.Type)
	assert.Equal(t, "Kesatu", bagian.Number)
	require.Len(t, bagian.Children, 1)

	paragraf := bagian.Children[0]
	require.Equal(t, models.NodeParagraf, paragraf.Type)
	assert.Equal(t, "1", paragraf.Number)
	assert.Equal(t, "Asas", paragraf.Heading)

	// Pasals after a Paragraf nest under it
	require.Len(t, paragraf.Children, 2)
	assert.Equal(t, "2", paragraf.Children[0].Number)
	assert.Equal(t, "3", paragraf.Children[1].Number)

	assert.Equal(t, 3, CountPasals(nodes))
}

// Every non-marker line of the input must survive somewhere in the tree
func TestParseLossless(t *testing.T) {
	nodes := Parse(sampleLaw)

	var b strings.Builder
	var collect func(ns []*Node)
	collect = func(ns []*Node) {
		for _, n := range ns {
			b.WriteString(n.Heading)
			b.WriteString("\n")
			b.WriteString(n.Content)
			b.WriteString("\n")
			collect(n.Children)
		}
	}
	collect(nodes)
	flat := b.String()

	for _, line := range strings.Split(sampleLaw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || boundaryRe.MatchString(line) {
			continue
		}
		assert.Contains(t, flat, line, "line lost during parse: %q", line)
	}
}

func TestParseDuplicateAyatKeepsFirst(t *testing.T) {
	text := `Pasal 1
(1) Ayat satu.
(2) Ayat dua.
(2) Duplikat karena salah pindai.
`
	nodes := Parse(text)
	require.Len(t, nodes, 1)
	pasal := nodes[0]
	require.Len(t, pasal.Children, 2)
	assert.Equal(t, "Ayat satu.", pasal.Children[0].Content)
	assert.Equal(t, "Ayat dua.", pasal.Children[1].Content)
	// The duplicate's text still lives in the pasal content
	assert.Contains(t, pasal.Content, "Duplikat")
}

func TestParseWithoutMarkers(t *testing.T) {
	nodes := Parse("Hanya teks polos tanpa struktur apa pun.")
	require.Len(t, nodes, 1)
	assert.Equal(t, models.NodePreamble, nodes[0].Type)
	assert.Equal(t, "Hanya teks polos tanpa struktur apa pun.", nodes[0].Content)
}

func TestParseAturanPeralihan(t *testing.T) {
	text := `BAB I
KETENTUAN UMUM

Pasal 1
Ketentuan umum.

ATURAN PERALIHAN

Pasal II
Segala peraturan pelaksanaan dinyatakan tetap berlaku.
`
	nodes := Parse(text)
	require.Len(t, nodes, 2)

	aturan := nodes[1]
	require.Equal(t, models.NodeAturan, aturan.Type)
	assert.Equal(t, "ATURAN PERALIHAN", aturan.Heading)

	// Roman numbering is legitimate after the ATURAN marker
	require.Len(t, aturan.Children, 1)
	assert.Equal(t, "II", aturan.Children[0].Number)
}

func TestParsePenjelasanSection(t *testing.T) {
	text := `Pasal 1
Ketentuan pertama.

Pasal 2
Ketentuan kedua.

PENJELASAN

I. UMUM
Undang-undang ini mengatur hal-hal pokok.

II. PASAL DEMI PASAL

Pasal 1
Cukup jelas.

Pasal 2
Yang dimaksud dengan ketentuan kedua adalah contoh.
`
	nodes := Parse(text)

	var umum *Node
	var perPasal []*Node
	for _, n := range nodes {
		switch n.Type {
		case models.NodePenjelasanUmum:
			if n.Heading == "Penjelasan Umum" {
				umum = n
			}
		case models.NodePenjelasanPasal:
			perPasal = append(perPasal, n)
		}
	}

	require.NotNil(t, umum)
	assert.Contains(t, umum.Content, "hal-hal pokok")
	assert.Equal(t, penjelasanSortBase, umum.SortOrder)

	require.Len(t, perPasal, 2)
	assert.Equal(t, "1", perPasal[0].Number)
	assert.Equal(t, "Cukup jelas.", perPasal[0].Content)
	assert.Equal(t, penjelasanSortBase+3, perPasal[0].SortOrder)
	assert.Equal(t, penjelasanSortBase+4, perPasal[1].SortOrder)
}

func TestFindPenjelasanStartFallback(t *testing.T) {
	// No standalone PENJELASAN line; the section header in the latter
	// half of the document still splits body from penjelasan
	body := strings.Repeat("Pasal 1\nKetentuan pertama yang cukup panjang.\n", 20)
	text := body + "\nI. UMUM\nBagian umum penjelasan.\n"

	pos := findPenjelasanStart(text)
	require.GreaterOrEqual(t, pos, 0)
	assert.Contains(t, text[pos:], "I. UMUM")
}

func TestParsePenjelasanUnstructured(t *testing.T) {
	nodes := parsePenjelasan("PENJELASAN\n\nTeks penjelasan tanpa sub-bagian.")
	require.Len(t, nodes, 1)
	assert.Equal(t, models.NodePenjelasanUmum, nodes[0].Type)
	assert.Equal(t, "Teks penjelasan tanpa sub-bagian.", nodes[0].Content)
	assert.Equal(t, penjelasanSortBase, nodes[0].SortOrder)
}

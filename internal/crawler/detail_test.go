package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/pasal/internal/models"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestFindDocumentRowPDF(t *testing.T) {
	doc := mustDoc(t, `
		<table>
			<tr><th>Judul</th><td>UU 13/2003</td></tr>
			<tr><th>Lampiran</th><td><a href="/files/lampiran.pdf">Lampiran</a></td></tr>
			<tr><th>Dokumen</th><td><a href="/files/uu-13-2003.pdf">Unduh</a></td></tr>
		</table>`)
	assert.Equal(t, "/files/uu-13-2003.pdf", findDocumentRowPDF(doc))
}

func TestFindDocumentRowPDFAbsent(t *testing.T) {
	doc := mustDoc(t, `<table><tr><th>Judul</th><td>UU 13/2003</td></tr></table>`)
	assert.Equal(t, "", findDocumentRowPDF(doc))
}

func TestFindAnyPDFLink(t *testing.T) {
	doc := mustDoc(t, `
		<a href="/id/uu-no-13-tahun-2003">Detail</a>
		<a href="/common/dokumen/2003uu013.PDF">Unduh</a>`)
	assert.Equal(t, "/common/dokumen/2003uu013.PDF", findAnyPDFLink(doc))

	filesDoc := mustDoc(t, `<a href="/files/123/download">Dokumen</a>`)
	assert.Equal(t, "/files/123/download", findAnyPDFLink(filesDoc))

	noneDoc := mustDoc(t, `<a href="/id/beranda">Beranda</a>`)
	assert.Equal(t, "", findAnyPDFLink(noneDoc))
}

func TestExtractStatus(t *testing.T) {
	tests := []struct {
		name string
		html string
		want models.WorkStatus
	}{
		{"no status row", `<table><tr><th>Judul</th><td>UU</td></tr></table>`, models.WorkStatusBerlaku},
		{"dicabut", `<table><tr><th>Status</th><td>Dicabut oleh UU 6/2023</td></tr></table>`, models.WorkStatusDicabut},
		{"diubah", `<table><tr><th>Status</th><td>Diubah dengan UU 6/2023</td></tr></table>`, models.WorkStatusDiubah},
		{"tidak berlaku", `<table><tr><th>Status</th><td>Tidak berlaku</td></tr></table>`, models.WorkStatusTidakBerlaku},
		{"berlaku", `<table><tr><th>Status</th><td>Berlaku</td></tr></table>`, models.WorkStatusBerlaku},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractStatus(mustDoc(t, tt.html)))
		})
	}
}

func TestExtractMetadata(t *testing.T) {
	doc := mustDoc(t, `
		<table>
			<tr><th>Pemrakarsa</th><td>KEMENTERIAN SEKRETARIAT NEGARA</td></tr>
			<tr><th>Tempat Penetapan</th><td>Jakarta</td></tr>
			<tr><th>Tanggal Penetapan</th><td>13 Januari 2026</td></tr>
			<tr><th>Menetapkan</th><td>PRESIDEN REPUBLIK INDONESIA</td></tr>
			<tr><th>Nomor Pengundangan</th><td>12</td></tr>
			<tr><th>Nomor Tambahan</th><td>6801</td></tr>
			<tr><th>Tanggal Pengundangan</th><td>14 Januari 2026</td></tr>
			<tr><th>Pejabat Pengundangan</th><td>MENTERI SEKRETARIS NEGARA</td></tr>
			<tr><th>Tentang</th><td>Ketenagakerjaan</td></tr>
			<tr><th>Kosong</th><td>-</td></tr>
		</table>`)

	meta := extractMetadata(doc)
	require.NotNil(t, meta)
	assert.Equal(t, "KEMENTERIAN SEKRETARIAT NEGARA", meta["pemrakarsa"])
	assert.Equal(t, "Jakarta", meta["tempat_penetapan"])
	assert.Equal(t, "2026-01-13", meta["tanggal_penetapan"])
	assert.Equal(t, "PRESIDEN REPUBLIK INDONESIA", meta["pejabat_penetap"])
	assert.Equal(t, "12", meta["nomor_pengundangan"])
	assert.Equal(t, "6801", meta["nomor_tambahan"])
	assert.Equal(t, "2026-01-14", meta["tanggal_pengundangan"])
	assert.Equal(t, "MENTERI SEKRETARIS NEGARA", meta["pejabat_pengundangan"])
	assert.Equal(t, "Ketenagakerjaan", meta["tentang"])
	assert.NotContains(t, meta, "kosong")
}

func TestExtractMetadataEmptyTable(t *testing.T) {
	doc := mustDoc(t, `<table><tr><th>Judul</th><td></td></tr></table>`)
	assert.Nil(t, extractMetadata(doc))
}

func TestParseIndonesianDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"13 Januari 2026", "2026-01-13", true},
		{"1 Agustus 1999", "1999-08-01", true},
		{"25 DESEMBER 2003", "2003-12-25", true},
		{"  5 mei 2010  ", "2010-05-05", true},
		{"32 Januari 2026", "", false},
		{"13 Smarch 2026", "", false},
		{"Januari 2026", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseIndonesianDate(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestSelectTypes(t *testing.T) {
	all := selectTypes(nil)
	require.NotEmpty(t, all)

	picked := selectTypes([]string{"uu", " PP "})
	require.Len(t, picked, 2)
	assert.Equal(t, "UU", picked[0].Code)
	assert.Equal(t, "PP", picked[1].Code)

	assert.Empty(t, selectTypes([]string{"TIDAK-ADA"}))
}

func TestParseTotal(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Ditemukan 1.674 Peraturan", 1674},
		{"245 Peraturan ditemukan", 245},
		{"Menampilkan 12.345 Peraturan dari total", 12345},
		{"tidak ada angka di sini", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseTotal(tt.text))
	}
}

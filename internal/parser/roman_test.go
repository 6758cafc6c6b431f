package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixRomanPasals(t *testing.T) {
	in := "Pasal I\nKetentuan pertama.\n\nPasal II\nKetentuan kedua.\n"
	got := fixRomanPasals(in)
	assert.Contains(t, got, "Pasal 1\n")
	assert.Contains(t, got, "Pasal 2\n")
	assert.NotContains(t, got, "Pasal I\n")
}

func TestFixRomanPasalsSkipsAmendmentLaws(t *testing.T) {
	in := "UNDANG-UNDANG TENTANG Perubahan Atas Undang-Undang Nomor 13 Tahun 2003\n\nPasal I\nBeberapa ketentuan diubah.\n"
	assert.Equal(t, in, fixRomanPasals(in))
}

func TestFixRomanPasalsStopsAtAturanPeralihan(t *testing.T) {
	in := "Pasal I\nIsi pertama.\n\nATURAN PERALIHAN\n\nPasal II\nIsi peralihan.\n"
	got := fixRomanPasals(in)
	assert.Contains(t, got, "Pasal 1\n")
	assert.Contains(t, got, "Pasal II\n")
}

func TestFixRomanPasalsUnknownNumeralUntouched(t *testing.T) {
	in := "Pasal XVI\nIsi.\n"
	assert.Equal(t, in, fixRomanPasals(in))
}

func TestIsAmendmentLaw(t *testing.T) {
	assert.True(t, isAmendmentLaw("Perubahan Kedua atas Undang-Undang"))
	assert.False(t, isAmendmentLaw("Undang-Undang tentang Ketenagakerjaan"))
}

package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/pasal/internal/models"
)

func loadSearchFixture(t *testing.T, m *Manager) string {
	t.Helper()
	ctx := context.Background()

	workID, err := m.Works.LoadWork(ctx, testWorkRow())
	require.NoError(t, err)

	nodes := []NodeInsert{
		{ParentIdx: -1, Node: models.DocumentNode{NodeType: models.NodePasal, Number: "77",
			Content: "Setiap pengusaha wajib melaksanakan ketentuan waktu kerja.", Depth: 0, SortOrder: 0}},
		{ParentIdx: 0, Node: models.DocumentNode{NodeType: models.NodeAyat, Number: "1",
			Content: "Waktu kerja tujuh jam sehari.", Depth: 1, SortOrder: 1}},
		{ParentIdx: 0, Node: models.DocumentNode{NodeType: models.NodeAyat, Number: "2",
			Content: "Waktu kerja delapan jam sehari untuk lima hari kerja.", Depth: 1, SortOrder: 2}},
		{ParentIdx: -1, Node: models.DocumentNode{NodeType: models.NodePenjelasanPasal, Number: "77",
			Content: "Yang dimaksud dengan waktu kerja adalah jam efektif.", Depth: 0, SortOrder: 90079}},
	}
	chunks := []ChunkInsert{
		{NodeIdx: 0, Chunk: models.LegalChunk{ChunkIndex: 0,
			Text: "Undang-Undang Nomor 13 Tahun 2003\nPasal 77\n\nSetiap pengusaha wajib melaksanakan ketentuan waktu kerja.",
			Metadata: models.ChunkMetadata{Type: "UU", Number: "13", Year: 2003, Pasal: "77"}}},
		{NodeIdx: 3, Chunk: models.LegalChunk{ChunkIndex: 1,
			Text: "Undang-Undang Nomor 13 Tahun 2003\nPenjelasan Pasal 77\n\nYang dimaksud dengan waktu kerja adalah jam efektif.",
			Metadata: models.ChunkMetadata{Type: "UU", Number: "13", Year: 2003, Penjelasan: "77"}}},
	}
	require.NoError(t, m.Works.ReplaceTree(ctx, workID, 4, "hash", nodes, chunks))
	return workID
}

func TestSearchChunks(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	loadSearchFixture(t, m)

	results, err := m.Search.SearchChunks(ctx, "waktu kerja", SearchFilters{}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "/akn/id/act/uu/2003/13", results[0].FRBRUri)
	assert.NotEmpty(t, results[0].Snippet)

	// Filters narrow the match set
	none, err := m.Search.SearchChunks(ctx, "waktu kerja", SearchFilters{Year: 1999}, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	typed, err := m.Search.SearchChunks(ctx, "pengusaha", SearchFilters{RegType: "UU", Year: 2003}, 10)
	require.NoError(t, err)
	assert.Len(t, typed, 1)
}

func TestSearchChunksQuotesOperators(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	loadSearchFixture(t, m)

	// FTS operator syntax in user input must not break the query
	_, err := m.Search.SearchChunks(ctx, `kerja AND OR NOT "x`, SearchFilters{}, 10)
	assert.NoError(t, err)

	empty, err := m.Search.SearchChunks(ctx, "   ", SearchFilters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetArticle(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	loadSearchFixture(t, m)

	for _, ref := range []string{"/akn/id/act/uu/2003/13", "uu-no-13-tahun-2003"} {
		article, err := m.Search.GetArticle(ctx, ref, "77")
		require.NoError(t, err, "ref %s", ref)

		assert.Equal(t, "77", article.Pasal.Number)
		require.Len(t, article.Ayat, 2)
		assert.Equal(t, "1", article.Ayat[0].Number)
		assert.Equal(t, "2", article.Ayat[1].Number)
		require.NotNil(t, article.Penjelasan)
		assert.Contains(t, article.Penjelasan.Content, "jam efektif")
	}
}

func TestGetArticleMissingPasal(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	loadSearchFixture(t, m)

	_, err := m.Search.GetArticle(ctx, "uu-no-13-tahun-2003", "999")
	assert.Error(t, err)
}

func TestGetStatusIncludesSeededRelations(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	loadSearchFixture(t, m)

	info, err := m.Search.GetStatus(ctx, "/akn/id/act/uu/2003/13")
	require.NoError(t, err)

	// The amendment graph is seeded at schema init
	require.NotEmpty(t, info.Relations)
	found := false
	for _, rel := range info.Relations {
		if rel.Relation == models.RelDiubahOleh && rel.TargetFRBR == "/akn/id/act/uu/2023/6" {
			found = true
		}
	}
	assert.True(t, found, "expected diubah_oleh edge to UU 6/2023")
}

func TestListWorks(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	loadSearchFixture(t, m)

	works, total, err := m.Search.ListWorks(ctx, ListFilter{RegType: "UU", Year: 2003}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, works, 1)
	assert.Equal(t, "13", works[0].Number)

	none, total, err := m.Search.ListWorks(ctx, ListFilter{RegType: "PP"}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}

func TestListWorksStatusAndTitleFilters(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	loadSearchFixture(t, m)

	byTitle, total, err := m.Search.ListWorks(ctx, ListFilter{TitleLike: "Ketenagakerjaan"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, byTitle, 1)

	byStatus, total, err := m.Search.ListWorks(ctx, ListFilter{Status: "berlaku"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, byStatus, 1)

	none, total, err := m.Search.ListWorks(ctx, ListFilter{Status: "dicabut"}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}

func TestListWorksTotalSpansPages(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		w := testWorkRow()
		w.ID = ""
		w.FRBRUri = "/akn/id/act/uu/2003/" + string(rune('1'+i))
		w.Number = string(rune('1' + i))
		_, err := m.Works.LoadWork(ctx, w)
		require.NoError(t, err)
	}

	page, total, err := m.Search.ListWorks(ctx, ListFilter{}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)
}

func TestPingCountsWorks(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	works, err := m.Search.Ping(ctx)
	require.NoError(t, err)
	assert.Zero(t, works)

	loadSearchFixture(t, m)
	works, err = m.Search.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, works)
}

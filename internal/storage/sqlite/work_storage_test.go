package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/pasal/internal/models"
)

func testTree() ([]NodeInsert, []ChunkInsert) {
	nodes := []NodeInsert{
		{ParentIdx: -1, Node: models.DocumentNode{NodeType: models.NodeBab, Number: "I", Heading: "KETENTUAN UMUM", Path: "bab_i", Depth: 0, SortOrder: 0}},
		{ParentIdx: 0, Node: models.DocumentNode{NodeType: models.NodePasal, Number: "1", Content: "Isi pasal satu tentang ketenagakerjaan.", Path: "bab_i.pasal_1", Depth: 1, SortOrder: 1}},
		{ParentIdx: 1, Node: models.DocumentNode{NodeType: models.NodeAyat, Number: "1", Content: "Ayat pertama.", Path: "bab_i.pasal_1.ayat_1", Depth: 2, SortOrder: 2}},
		{ParentIdx: -1, Node: models.DocumentNode{NodeType: models.NodePenjelasanPasal, Number: "1", Content: "Penjelasan pasal satu.", Path: "penjelasan_pasal_1", Depth: 0, SortOrder: 90003}},
	}
	chunks := []ChunkInsert{
		{NodeIdx: 1, Chunk: models.LegalChunk{ChunkIndex: 0, Text: "Judul\nPasal 1\n\nIsi pasal satu tentang ketenagakerjaan.",
			Metadata: models.ChunkMetadata{Type: "UU", Number: "13", Year: 2003, Pasal: "1"}}},
		{NodeIdx: 3, Chunk: models.LegalChunk{ChunkIndex: 1, Text: "Judul\nPenjelasan Pasal 1\n\nPenjelasan pasal satu.",
			Metadata: models.ChunkMetadata{Type: "UU", Number: "13", Year: 2003, Penjelasan: "1"}}},
	}
	return nodes, chunks
}

func testWorkRow() *models.Work {
	return &models.Work{
		FRBRUri: "/akn/id/act/uu/2003/13",
		RegType: "UU",
		Number:  "13",
		Year:    2003,
		Title:   "Undang-Undang Nomor 13 Tahun 2003 tentang Ketenagakerjaan",
		Slug:    "uu-no-13-tahun-2003",
	}
}

func TestLoadWorkKeepsIDOnConflict(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	id1, err := m.Works.LoadWork(ctx, testWorkRow())
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	// Loading the same FRBR URI again keeps the original id
	again := testWorkRow()
	again.Title = "Judul diperbarui"
	id2, err := m.Works.LoadWork(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	got, err := m.Works.GetWorkByRef(ctx, "/akn/id/act/uu/2003/13")
	require.NoError(t, err)
	assert.Equal(t, "Judul diperbarui", got.Title)
}

func TestReplaceTreeIdempotentReload(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	workID, err := m.Works.LoadWork(ctx, testWorkRow())
	require.NoError(t, err)

	nodes, chunks := testTree()
	require.NoError(t, m.Works.ReplaceTree(ctx, workID, 4, "hash-a", nodes, chunks))

	first, err := m.Works.CountChunks(ctx, workID)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), first)

	// Reloading the same tree leaves the same counts, no duplicates
	require.NoError(t, m.Works.ReplaceTree(ctx, workID, 4, "hash-a", nodes, chunks))

	second, err := m.Works.CountChunks(ctx, workID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var nodeCount int
	require.NoError(t, m.DB().DB().QueryRow(
		`SELECT COUNT(*) FROM document_nodes WHERE work_id = ?`, workID).Scan(&nodeCount))
	assert.Equal(t, len(nodes), nodeCount)

	// Each reload records one revision row, old ones are cleared
	var revCount int
	require.NoError(t, m.DB().DB().QueryRow(
		`SELECT COUNT(*) FROM revisions WHERE work_id = ?`, workID).Scan(&revCount))
	assert.Equal(t, 1, revCount)
}

func TestReplaceTreeWiresParents(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	workID, err := m.Works.LoadWork(ctx, testWorkRow())
	require.NoError(t, err)

	nodes, chunks := testTree()
	require.NoError(t, m.Works.ReplaceTree(ctx, workID, 4, "", nodes, chunks))

	rows, err := m.DB().DB().Query(`
		SELECT node_type, parent_id IS NULL FROM document_nodes
		WHERE work_id = ? ORDER BY sort_order`, workID)
	require.NoError(t, err)
	defer rows.Close()

	type rec struct {
		nodeType string
		rootNode bool
	}
	var got []rec
	for rows.Next() {
		var r rec
		require.NoError(t, rows.Scan(&r.nodeType, &r.rootNode))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())

	require.Len(t, got, 4)
	assert.True(t, got[0].rootNode)  // bab
	assert.False(t, got[1].rootNode) // pasal under bab
	assert.False(t, got[2].rootNode) // ayat under pasal
	assert.True(t, got[3].rootNode)  // penjelasan at root
}

func TestUpdateParseMetaAndStatus(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	workID, err := m.Works.LoadWork(ctx, testWorkRow())
	require.NoError(t, err)

	require.NoError(t, m.Works.UpdateParseMeta(ctx, workID, models.QualityBornDigital, "structure", 0.9, ""))
	require.NoError(t, m.Works.SetWorkStatus(ctx, workID, models.WorkStatusDiubah))

	got, err := m.Works.GetWorkByRef(ctx, "uu-no-13-tahun-2003")
	require.NoError(t, err)
	assert.Equal(t, models.QualityBornDigital, got.PDFQuality)
	assert.Equal(t, "structure", got.ParseMethod)
	assert.InDelta(t, 0.9, got.ParseConfidence, 0.0001)
	assert.Equal(t, models.WorkStatusDiubah, got.Status)
}

func TestLoadWorkMetadataSurvivesMetadataFreeReload(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	w := testWorkRow()
	w.Metadata = map[string]string{
		"pemrakarsa":        "KEMENTERIAN KETENAGAKERJAAN",
		"tanggal_penetapan": "2003-03-25",
	}
	_, err := m.Works.LoadWork(ctx, w)
	require.NoError(t, err)

	// Reprocessing loads the work again without detail-page metadata;
	// the stored fields must not be wiped
	_, err = m.Works.LoadWork(ctx, testWorkRow())
	require.NoError(t, err)

	got, err := m.Works.GetWorkByRef(ctx, "uu-no-13-tahun-2003")
	require.NoError(t, err)
	assert.Equal(t, "KEMENTERIAN KETENAGAKERJAAN", got.Metadata["pemrakarsa"])
	assert.Equal(t, "2003-03-25", got.Metadata["tanggal_penetapan"])
}

func TestReplaceTreePersistsPaths(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	workID, err := m.Works.LoadWork(ctx, testWorkRow())
	require.NoError(t, err)

	nodes, chunks := testTree()
	require.NoError(t, m.Works.ReplaceTree(ctx, workID, 4, "", nodes, chunks))

	rows, err := m.DB().DB().Query(`
		SELECT COALESCE(path, '') FROM document_nodes
		WHERE work_id = ? ORDER BY sort_order`, workID)
	require.NoError(t, err)
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		require.NoError(t, rows.Scan(&p))
		paths = append(paths, p)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"bab_i", "bab_i.pasal_1", "bab_i.pasal_1.ayat_1", "penjelasan_pasal_1"}, paths)
}

func TestGetWorkByRefNotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Works.GetWorkByRef(context.Background(), "/akn/id/act/uu/1900/1")
	assert.Error(t, err)
}

package excel

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/cardbot/internal/config"
	"github.com/example/cardbot/internal/database"
	"github.com/example/cardbot/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setup(t *testing.T) (*sqlx.DB, *models.User) {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	u := &models.User{TelegramID: 1}
	require.NoError(t, database.NewUserRepository(db).Upsert(context.Background(), u))
	return db, u
}

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	path := filepath.Join(t.TempDir(), "cards.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestImportFile_Excel(t *testing.T) {
	ctx := context.Background()
	db, u := setup(t)
	path := writeWorkbook(t, [][]interface{}{
		{"Front", "Back", "Tags"},
		{"mitochondria", "powerhouse of the cell", "biology"},
		{"ATP", "energy currency", "biology,chemistry"},
		{"", "orphan back"},
		{"lonely front"},
	})

	im := NewImporter(db)
	res, err := im.ImportFile(ctx, u.ID, path, DefaultImportConfig())
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalProcessed)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Skipped)
	assert.Empty(t, res.Errors)

	cards, err := database.NewFlashcardRepository(db).ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	for _, c := range cards {
		assert.Equal(t, "import", c.Source)
		assert.Equal(t, 0, c.Repetitions)
	}

	// re-import is idempotent
	res, err = im.ImportFile(ctx, u.ID, path, DefaultImportConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 4, res.Skipped)
}

func TestImport_CSVUpdatesExisting(t *testing.T) {
	ctx := context.Background()
	db, u := setup(t)
	im := NewImporter(db)

	first := "front,back\nosmosis,water moves across a membrane\n"
	res, err := im.Import(ctx, u.ID, strings.NewReader(first), ".csv", DefaultImportConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	second := "front,back,tags\nosmosis,\"passive movement of water, high to low potential\",biology\n"
	res, err = im.Import(ctx, u.ID, strings.NewReader(second), ".CSV", DefaultImportConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	card, err := database.NewFlashcardRepository(db).GetByFront(ctx, u.ID, "osmosis")
	require.NoError(t, err)
	assert.Equal(t, "passive movement of water, high to low potential", card.Back)
	assert.Equal(t, "biology", card.Tags)
}

func TestImport_Invalid(t *testing.T) {
	ctx := context.Background()
	db, u := setup(t)
	im := NewImporter(db)

	_, err := im.Import(ctx, u.ID, strings.NewReader(""), ".txt", DefaultImportConfig())
	assert.Error(t, err)

	cfg := DefaultImportConfig()
	cfg.FrontColumn = "1"
	_, err = im.Import(ctx, u.ID, strings.NewReader("a,b\n"), ".csv", cfg)
	assert.Error(t, err)

	_, err = im.ImportFile(ctx, u.ID, filepath.Join(os.TempDir(), "does-not-exist.xlsx"), DefaultImportConfig())
	assert.Error(t, err)
}

package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapNormalizesHeaders(t *testing.T) {
	table := DefaultFieldTable()
	cols := table.Map([]string{" Название ", "БРЕНД", "Цена, руб", "Unknown", "Цвет", "Страна-изготовитель", "артикул"})

	assert.Equal(t, ColumnMap{
		{Index: 0, Field: FieldName},
		{Index: 1, Field: FieldBrand},
		{Index: 2, Field: FieldPrice},
		{Index: 4, Field: "color"},
		{Index: 5, Field: "country"},
		{Index: 6, Field: "article"},
	}, cols)
}

func TestMapEnglishVariantsAreEquivalent(t *testing.T) {
	table := DefaultFieldTable()
	for _, h := range []string{"Name", " name ", "NAME", "Product Name"} {
		f, ok := table.Lookup(h)
		require.True(t, ok, h)
		assert.Equal(t, FieldName, f, h)
	}
}

func TestMapUnknownHeadersYieldEmptyMap(t *testing.T) {
	cols := DefaultFieldTable().Map([]string{"foo", "bar"})
	assert.Empty(t, cols)
	assert.Equal(t, cols, DefaultFieldTable().Map([]string{"foo", "bar"}))
}

func TestLoadFieldTableExtendsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  article: [SKU, \"код товара\"]\n  material: [материал]\n"), 0o600))

	table, err := LoadFieldTable(path)
	require.NoError(t, err)

	f, ok := table.Lookup("sku")
	require.True(t, ok)
	assert.Equal(t, Field("article"), f)
	f, ok = table.Lookup("Материал")
	require.True(t, ok)
	assert.Equal(t, Field("material"), f)
	_, ok = table.Lookup("бренд")
	assert.True(t, ok, "defaults stay")
	assert.Contains(t, table.AttributeKeys(), "material")
}

func TestLoadFieldTableRejectsReservedField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  createdAt: [created]\n"), 0o600))

	_, err := LoadFieldTable(path)
	assert.Error(t, err)
}

func TestLoadFieldTableEmptyPath(t *testing.T) {
	table, err := LoadFieldTable("")
	require.NoError(t, err)
	assert.Equal(t, []string{"article", "category", "color", "country", "description"}, table.AttributeKeys())
}

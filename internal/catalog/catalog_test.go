package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
)

func TestWriteExamples_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	catPath := filepath.Join(dir, "catalog.yaml")
	selPath := filepath.Join(dir, "selection.yaml")

	require.NoError(t, WriteExamples(catPath, selPath, false))

	cat, err := Load(catPath)
	require.NoError(t, err)
	require.Equal(t, []string{"desk"}, cat.IDs())

	desk, err := cat.Product("desk")
	require.NoError(t, err)
	require.Equal(t, "USD", desk.Currency)
	require.Equal(t, int64(49900), desk.BasePrice)
	require.Equal(t, int64(10000), desk.Options["size"]["large"])
	require.Len(t, desk.Rules, 2)

	sel, err := LoadSelection(selPath)
	require.NoError(t, err)
	require.NotNil(t, sel)
	require.Equal(t, "desk", sel.ProductID)
	require.Equal(t, "oak", sel.Selections["finish"])
	require.Equal(t, []string{"drawer"}, sel.AddOns)

	err = WriteExamples(catPath, "", false)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestCatalog_UnknownProduct(t *testing.T) {
	cat, err := Parse([]byte("products:\n  - id: a\n    currency: EUR\n"))
	require.NoError(t, err)
	_, err = cat.Product("b")
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestCatalog_Validation(t *testing.T) {
	for name, doc := range map[string]string{
		"missing id":       "products:\n  - currency: EUR\n",
		"duplicate":        "products:\n  - id: a\n    currency: EUR\n  - id: a\n    currency: EUR\n",
		"missing currency": "products:\n  - id: a\n",
		"malformed":        "products: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation), "got %v", err)
		})
	}
}

func TestParseSelection_EmptyMeansNoConfiguration(t *testing.T) {
	for _, doc := range []string{"", "  \n", "null", "~"} {
		cfg, err := ParseSelection([]byte(doc))
		require.NoError(t, err)
		require.Nil(t, cfg)
	}
}

func TestParseSelection_DefaultsQuantity(t *testing.T) {
	cfg, err := ParseSelection([]byte("product_id: desk\n"))
	require.NoError(t, err)
	require.Equal(t, 1, cfg.Quantity)

	_, err = ParseSelection([]byte("product_id: desk\nquantity: -2\n"))
	require.Error(t, err)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))

	_, err = LoadSelection(filepath.Join(t.TempDir(), "nope.yaml"))
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestLoadSelection_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("product_id: desk\nquantity: 3\n"), 0o600))
	cfg, err := LoadSelection(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Quantity)
}

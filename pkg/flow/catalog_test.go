package flow

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFlows(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
}

func TestCatalog_LoadsAndCaches(t *testing.T) {
	dir := t.TempDir()
	writeFlows(t, dir, map[string]string{
		"parcel.yaml": "id: parcel_v2\nname: Parcel Booking\nmodule: parcel\nintents: [parcel_booking]\nkeywords: [parcel, courier]\nrequires_auth: true\n",
		"order.yaml":  "id: order_v3\nname: Food Order\nmodule: food\nintents: [order_food, reorder]\n",
		"notes.txt":   "not a flow",
	})

	c := NewCatalog(dir)
	defs, err := c.Definitions()
	require.NoError(t, err)
	require.Len(t, defs, 2)

	// A new file is invisible until the cache is cleared.
	writeFlows(t, dir, map[string]string{
		"search.yaml": "id: search_v1\nintents: [search_product]\n",
	})
	defs, err = c.Definitions()
	require.NoError(t, err)
	assert.Len(t, defs, 2)

	c.ClearCache()
	defs, err = c.Definitions()
	require.NoError(t, err)
	assert.Len(t, defs, 3)
}

func TestCatalog_FindByIntent(t *testing.T) {
	dir := t.TempDir()
	writeFlows(t, dir, map[string]string{
		"parcel.yaml":     "id: parcel_v2\nmodule: parcel\nintents: [parcel_booking]\nkeywords: [courier]\n",
		"order_food.yaml": "id: order_food_v3\nmodule: food\nintents: [order_food]\n",
		"order_ecom.yaml": "id: order_ecom_v1\nmodule: ecom\nintents: [order_food]\n",
		"generic.yaml":    "id: generic_help\nintents: [help]\n",
	})
	c := NewCatalog(dir)

	def, err := c.FindByIntent("parcel_booking", "", "courier bhejna hai")
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, "parcel_v2", def.ID)

	// Module disambiguates identical intents.
	def, err = c.FindByIntent("order_food", "ecom", "order rice")
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, "order_ecom_v1", def.ID)

	// Module-agnostic definitions still match.
	def, err = c.FindByIntent("help", "food", "help")
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, "generic_help", def.ID)

	def, err = c.FindByIntent("refund_request", "", "refund")
	require.NoError(t, err)
	assert.Nil(t, def)
}

func TestCatalog_ConcurrentLoadsConverge(t *testing.T) {
	dir := t.TempDir()
	writeFlows(t, dir, map[string]string{
		"a.yaml": "id: a\nintents: [order_food]\n",
	})
	c := NewCatalog(dir)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defs, err := c.Definitions()
			assert.NoError(t, err)
			assert.Len(t, defs, 1)
		}()
	}
	wg.Wait()
}

func TestCatalog_MissingDirErrors(t *testing.T) {
	c := NewCatalog(filepath.Join(t.TempDir(), "nope"))
	_, err := c.Definitions()
	assert.Error(t, err)
}

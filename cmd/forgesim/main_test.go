package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/inventory"
	"github.com/talgya/forge-factory/internal/persistence"
)

func inventoryWithWood(t *testing.T, cat *catalog.Catalog) *inventory.Inventory {
	t.Helper()
	inv := inventory.NewUnbounded()
	require.NoError(t, inv.Add(cat.MustItem(catalog.Wood), 4))
	return inv
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "forgesim.yaml")
	body := "storage:\n  save_path: " + filepath.Join(dir, "save.txt") +
		"\n  db_path: " + filepath.Join(dir, "forge.db") + "\n"
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o644))

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestCatalogCommand(t *testing.T) {
	out := execute(t, "catalog", "--digest")
	assert.Equal(t, catalog.Default().Digest(), strings.TrimSpace(out))

	out = execute(t, "catalog")
	assert.Contains(t, out, "STEELBLOCK")
	assert.Contains(t, out, "# digest ")
}

func TestSaveInspectCommand(t *testing.T) {
	cat := catalog.Default()
	path := filepath.Join(t.TempDir(), "game.txt.zst")
	text := persistence.EncodeGame(cat, &persistence.Game{Wallet: 12345, Inventory: inventoryWithWood(t, cat)})
	require.NoError(t, persistence.WriteFile(path, []byte(text)))

	out := execute(t, "save", "inspect", path)
	assert.Contains(t, out, "12,345")
	assert.Contains(t, out, "Inventory: 4 units")
}

func TestSaveListCommand_Empty(t *testing.T) {
	out := execute(t, "save", "list")
	assert.Contains(t, out, "No save slots.")
}

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDeckYAML = `
geometry: 1d3v
cell_length: [1.0]
n_space_global: [20]
n_space_per_patch: [10]
timestep: 0.1
n_time: 5
EM_BCs:
  - ["silver-muller", "silver-muller"]
species:
  - name: e
    mass: 1.0
    charge: -1.0
    boundary_conditions:
      - ["reflective", "reflective"]
`

// TestLoadDeckParsesAndValidates mirrors gocfd's cmd/2D_test.go shape: write
// a deck to disk, parse it through the same path runDeck uses, and check
// a couple of fields came through, the way TestRun2D checks BCs/FinalTime.
func TestLoadDeckParsesAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testDeckYAML), 0o644))

	deck, err := loadDeck(path)
	require.NoError(t, err)
	assert.Equal(t, 5, deck.NTime)
	assert.Equal(t, 0.1, deck.Timestep)
	assert.Len(t, deck.Species, 1)
	assert.Equal(t, "e", deck.Species[0].Name)

	assert.NoError(t, deck.Validate())
}

func TestLoadDeckRejectsAMissingFile(t *testing.T) {
	_, err := loadDeck(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

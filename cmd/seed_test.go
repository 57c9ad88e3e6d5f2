package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeedCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadSeedCSV(t *testing.T) {
	path := writeSeedCSV(t, `name,category,description,length_mm,width_mm,height_mm,weight_g,created_by
Cereal Box,food,Standard 450g box,300,200,80,450,alice
Shoe Box,apparel,Mens size 10,330,210,120,250,bob
`)

	rows, err := readSeedCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	require.Len(t, first, 10)
	_, err = uuid.Parse(first[0].(string))
	assert.NoError(t, err)
	assert.Equal(t, "Cereal Box", first[1])
	assert.Equal(t, "food", first[2])
	assert.Equal(t, 300.0, first[4])
	assert.Equal(t, 450.0, first[7])
	// Seeded rows credit the creator as last modifier too.
	assert.Equal(t, "alice", first[8])
	assert.Equal(t, "alice", first[9])
}

func TestReadSeedCSVBadDimension(t *testing.T) {
	path := writeSeedCSV(t, `name,category,description,length_mm,width_mm,height_mm,weight_g,created_by
Cereal Box,food,desc,wide,200,80,450,alice
`)

	_, err := readSeedCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad dimension")
}

func TestReadSeedCSVWrongColumnCount(t *testing.T) {
	path := writeSeedCSV(t, `name,category,description,length_mm,width_mm,height_mm,weight_g,created_by
Cereal Box,food,desc,300,200,80,450
`)

	_, err := readSeedCSV(path)
	require.Error(t, err)
}

func TestReadSeedCSVMissingFile(t *testing.T) {
	_, err := readSeedCSV(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open csv")
}

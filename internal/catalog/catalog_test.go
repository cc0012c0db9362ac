package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLookup(t *testing.T) {
	c := Default()
	snpp, ok := c.Lookup(157)
	require.True(t, ok)
	assert.Equal(t, "snpp", snpp.Name)
	assert.Equal(t, 1020, snpp.Framing.BlockLength)
	assert.Equal(t, 4, snpp.Framing.Interleave)
}

func TestDefaultLookupMiss(t *testing.T) {
	c := Default()
	_, ok := c.Lookup(9999)
	assert.False(t, ok)
}

func TestAllReturnsEveryEntry(t *testing.T) {
	c := Default()
	all := c.All()
	assert.GreaterOrEqual(t, len(all), 5)
}

func TestLoadMergesWithBuiltin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	custom := `{
		"spacecrafts": [
			{
				"scid": 157,
				"name": "snpp-custom",
				"framing": {"blockLength": 111, "interleave": 1, "pnEnabled": false}
			},
			{
				"scid": 9000,
				"name": "test-sat",
				"framing": {"blockLength": 223, "interleave": 1, "pnEnabled": false}
			}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	// File entry for an existing SCID wins over the built-in one.
	snpp, ok := c.Lookup(157)
	require.True(t, ok)
	assert.Equal(t, "snpp-custom", snpp.Name)
	assert.Equal(t, 111, snpp.Framing.BlockLength)

	// New SCID from the file is present.
	custom9000, ok := c.Lookup(9000)
	require.True(t, ok)
	assert.Equal(t, "test-sat", custom9000.Name)

	// Untouched built-in SCIDs are still present.
	_, ok = c.Lookup(224)
	assert.True(t, ok)
}

func TestFramingASM(t *testing.T) {
	f := Framing{}
	asm, ok, err := f.ASM()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, asm)

	f.ASMOverride = "1acffc1d"
	asm, ok, err = f.ASM()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{0x1a, 0xcf, 0xfc, 0x1d}, asm)
}

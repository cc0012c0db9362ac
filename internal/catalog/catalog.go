// Package catalog provides a read-only lookup of spacecraft metadata keyed
// by spacecraft id (SCID): human-readable name and aliases, plus the
// framing parameters (block length, interleave depth, PN enable, etc.) a
// caller needs to configure internal/framing for a given mission without
// supplying every flag by hand.
//
// A small embedded JSON document is the default database, with an optional
// caller-supplied file layered on top (entries from the file take priority
// over same-SCID built-in entries).
package catalog

import (
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed data/spacecraft_db.json
var builtinFS embed.FS

const builtinPath = "data/spacecraft_db.json"

// Framing describes the CCSDS frame-synchronization and FEC parameters for
// one spacecraft's downlink.
type Framing struct {
	// BlockLength is the number of bytes following the ASM that make up
	// one synchronized codeblock.
	BlockLength int `json:"blockLength"`
	// ASMOverride is a hex-encoded attached sync marker to use instead of
	// the caller's default ASM; empty means "use the default".
	ASMOverride string `json:"asmOverride,omitempty"`
	// Interleave is the Reed-Solomon interleave depth (I=1,4,5 per CCSDS
	// 131.0-B-5).
	Interleave int `json:"interleave"`
	// VirtualFill is the number of virtual fill bytes prepended to each
	// RS message block before decoding, for spacecraft transmitting
	// shortened codewords.
	VirtualFill int `json:"virtualFill"`
	// IZoneLength is the length in bytes of the VCDU insert zone, if any.
	IZoneLength int `json:"izoneLength"`
	// TrailerLength is the length in bytes of a frame trailer (e.g. OCF),
	// if any.
	TrailerLength int `json:"trailerLength"`
	// PNEnabled reports whether this spacecraft pseudo-noise randomizes
	// its downlink.
	PNEnabled bool `json:"pnEnabled"`
}

// ASM decodes ASMOverride, returning (nil, false) when none is configured.
func (f Framing) ASM() ([]byte, bool, error) {
	if f.ASMOverride == "" {
		return nil, false, nil
	}
	b, err := hex.DecodeString(f.ASMOverride)
	if err != nil {
		return nil, false, fmt.Errorf("catalog: decode asmOverride: %w", err)
	}
	return b, true, nil
}

// Spacecraft is one entry in a spacecraft metadata database.
type Spacecraft struct {
	SCID    uint16   `json:"scid"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Framing Framing  `json:"framing"`
}

type database struct {
	Spacecrafts []Spacecraft `json:"spacecrafts"`
}

// Catalog is a read-only, in-memory spacecraft metadata database.
type Catalog struct {
	all  []Spacecraft
	byID map[uint16]Spacecraft
}

func newCatalog(db database) *Catalog {
	c := &Catalog{
		all:  db.Spacecrafts,
		byID: make(map[uint16]Spacecraft, len(db.Spacecrafts)),
	}
	for _, sc := range db.Spacecrafts {
		c.byID[sc.SCID] = sc
	}
	return c
}

func loadBuiltin() database {
	data, err := builtinFS.ReadFile(builtinPath)
	if err != nil {
		panic("catalog: built-in spacecraft db missing: " + err.Error())
	}
	var db database
	if err := json.Unmarshal(data, &db); err != nil {
		panic("catalog: built-in spacecraft db is not valid: " + err.Error())
	}
	return db
}

// Default returns a Catalog populated from the embedded built-in database.
func Default() *Catalog {
	return newCatalog(loadBuiltin())
}

// Load reads a spacecraft database from path and layers it over the
// built-in database: a SCID present in both keeps the file's entry, and
// the rest of the built-in entries are appended.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: load %s: %w", path, err)
	}
	var db database
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}

	seen := make(map[uint16]bool, len(db.Spacecrafts))
	for _, sc := range db.Spacecrafts {
		seen[sc.SCID] = true
	}
	for _, sc := range loadBuiltin().Spacecrafts {
		if seen[sc.SCID] {
			continue
		}
		db.Spacecrafts = append(db.Spacecrafts, sc)
	}

	return newCatalog(db), nil
}

// Lookup returns the spacecraft entry for scid, if known.
func (c *Catalog) Lookup(scid uint16) (Spacecraft, bool) {
	sc, ok := c.byID[scid]
	return sc, ok
}

// All returns every spacecraft entry in the catalog, in database order.
func (c *Catalog) All() []Spacecraft {
	out := make([]Spacecraft, len(c.all))
	copy(out, c.all)
	return out
}

package common

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

//go:generate go run github.com/dmarkham/enumer -json -type Collection

// Collection defines the kind of EO data collections that can be ingested
type Collection int

const (
	UnknownCollection Collection = iota
	S2L2AMAJA                    // Sentinel-2 L2A processed with the MAJA atmospheric correction
)

// Band is the semantic label of a single measurement of a collection
// (a spectral band or a quality mask)
type Band string

// Bands of the S2-L2A-MAJA collection
const (
	S2B2  Band = "S2_B2"
	S2B3  Band = "S2_B3"
	S2B4  Band = "S2_B4"
	S2B5  Band = "S2_B5"
	S2B6  Band = "S2_B6"
	S2B7  Band = "S2_B7"
	S2B8  Band = "S2_B8"
	S2B8A Band = "S2_B8A"
	S2B11 Band = "S2_B11"
	S2B12 Band = "S2_B12"
	S2CLM Band = "S2_CLM"
)

// TileSystem is the tiling grid a collection is partitioned by
type TileSystem string

const (
	// MGRS is the Military Grid Reference System (UTM grid) used by Sentinel-2
	MGRS TileSystem = "MGRS"
)

// CollectionParams is the fixed configuration record of a collection
type CollectionParams struct {
	// Name is the user-facing collection identifier
	Name string
	// BasePath of the collection relative to the archive mountpoint
	BasePath string
	// FileFormat of the band files, with leading dot
	FileFormat string
	// BandSuffixes maps each semantic band to its file-name suffix token
	BandSuffixes map[Band]string
	// MaskBand is the cloud-mask band, kept in the time series even when empty
	MaskBand Band
	// MaskDir is the scene subdirectory holding the mask files
	MaskDir string
	// TileSystem the archive is partitioned by
	TileSystem TileSystem
	// EarliestDate is the first available acquisition of the collection
	EarliestDate time.Time
	// SceneTimeLayout parses the date-time tokens of a scene directory name
	SceneTimeLayout string
}

var collectionParams = map[Collection]CollectionParams{
	S2L2AMAJA: {
		Name:       "S2-L2A-MAJA",
		BasePath:   filepath.Join("Sentinel-2", "MSI", "L2A-MAJA"),
		FileFormat: ".tif",
		BandSuffixes: map[Band]string{
			S2B2:  "FRE_B2",
			S2B3:  "FRE_B3",
			S2B4:  "FRE_B4",
			S2B5:  "FRE_B5",
			S2B6:  "FRE_B6",
			S2B7:  "FRE_B7",
			S2B8:  "FRE_B8",
			S2B8A: "FRE_B8A",
			S2B11: "FRE_B11",
			S2B12: "FRE_B12",
			S2CLM: "CLM_R1",
		},
		MaskBand:        S2CLM,
		MaskDir:         "MASKS",
		TileSystem:      MGRS,
		EarliestDate:    time.Date(2015, 7, 1, 0, 0, 0, 0, time.UTC),
		SceneTimeLayout: "20060102-150405",
	},
}

// GetCollectionFromString returns the collection from the user input
func GetCollectionFromString(input string) Collection {
	switch strings.ToLower(input) {
	case "s2-l2a-maja", "s2l2amaja":
		return S2L2AMAJA
	}
	return UnknownCollection
}

// Params returns the fixed configuration of the collection
func (c Collection) Params() CollectionParams {
	return collectionParams[c]
}

// ParseSceneDateTime extracts the acquisition timestamp from a scene directory name.
// The grammar is a date token followed by a time token, e.g.
// SENTINEL2B_20220711-103423-177_L2A_T32UNB_C_V3-0.
// The full date+time is needed: different tiles of the same day have different
// acquisition times and would otherwise collide on a single timestamp.
func (c Collection) ParseSceneDateTime(scene string) (time.Time, error) {
	tokens := strings.Split(strings.ReplaceAll(scene, "-", "_"), "_")
	if len(tokens) < 3 {
		return time.Time{}, fmt.Errorf("invalid %s scene name: %s", c.Params().Name, scene)
	}
	date, err := time.Parse(c.Params().SceneTimeLayout, tokens[1]+"-"+tokens[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s scene name %s: %w", c.Params().Name, scene, err)
	}
	return date, nil
}

// Archive defines the EO archives a collection can be read from
type Archive int

const (
	UnknownArchive Archive = iota
	Eolab
)

// GetArchiveFromString returns the archive from the user input
func GetArchiveFromString(input string) Archive {
	if strings.ToLower(input) == "eolab" {
		return Eolab
	}
	return UnknownArchive
}

func (a Archive) String() string {
	if a == Eolab {
		return "eolab"
	}
	return "unknown"
}

// Package catalog discovers the archive scenes relevant to the current
// region of interest and date range.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/airbusgeo/eoarchive-ingester/common"
	"github.com/airbusgeo/eoarchive-ingester/service"
	"github.com/airbusgeo/eoarchive-ingester/service/log"
)

// Scene is one acquisition found in the archive: one tile at one timestamp,
// bundling the files of the requested bands. Immutable once built.
type Scene struct {
	// Name of the scene directory
	Name string
	// Path is the absolute path of the scene directory
	Path string
	// Date is the acquisition timestamp, precise to the second
	Date time.Time
	// BandPaths maps each requested band to its file, relative to Path.
	// A band without a matching file has no entry.
	BandPaths map[common.Band]string
}

// Browse walks the archive's year/month/day/scene hierarchy and returns the
// scenes within the date range whose name contains one of the tiles.
// Only tile-matching scene directories of qualifying days are inspected, the
// rest of the archive is skipped without listing file contents.
// An empty result is not an error at this level.
func Browse(ctx context.Context, collection common.Collection, bands []common.Band, mountpoint string, dates common.DateRange, tiles service.StringSet) ([]Scene, error) {
	params := collection.Params()
	basepath := filepath.Join(mountpoint, params.BasePath)

	// band resolution works from file suffix to band name
	suffixes := map[string]common.Band{}
	for _, band := range bands {
		suffix, ok := params.BandSuffixes[band]
		if !ok {
			return nil, fmt.Errorf("Browse: band %s is not part of collection %s", band, params.Name)
		}
		suffixes[suffix] = band
	}

	years, err := os.ReadDir(basepath)
	if err != nil {
		return nil, fmt.Errorf("Browse[%s]: %w", basepath, err)
	}

	var scenes []Scene
	for _, year := range years {
		if !year.IsDir() {
			continue
		}
		months, err := os.ReadDir(filepath.Join(basepath, year.Name()))
		if err != nil {
			return nil, fmt.Errorf("Browse: %w", err)
		}
		for _, month := range months {
			if !month.IsDir() {
				continue
			}
			days, err := os.ReadDir(filepath.Join(basepath, year.Name(), month.Name()))
			if err != nil {
				return nil, fmt.Errorf("Browse: %w", err)
			}
			for _, day := range days {
				if !day.IsDir() {
					continue
				}
				folderDate, ok := folderDate(ctx, year.Name(), month.Name(), day.Name())
				if !ok || !dates.Contains(folderDate) {
					continue
				}
				dayPath := filepath.Join(basepath, year.Name(), month.Name(), day.Name())
				entries, err := os.ReadDir(dayPath)
				if err != nil {
					return nil, fmt.Errorf("Browse: %w", err)
				}
				for _, entry := range entries {
					if !entry.IsDir() || !matchesTile(entry.Name(), tiles) {
						continue
					}
					scene, err := browseScene(collection, suffixes, dayPath, entry.Name())
					if err != nil {
						return nil, fmt.Errorf("Browse: %w", err)
					}
					scenes = append(scenes, scene)
				}
			}
		}
	}
	return scenes, nil
}

// browseScene resolves the acquisition timestamp and the band files of one
// scene directory
func browseScene(collection common.Collection, suffixes map[string]common.Band, dayPath, name string) (Scene, error) {
	params := collection.Params()
	scenePath := filepath.Join(dayPath, name)
	date, err := collection.ParseSceneDateTime(name)
	if err != nil {
		return Scene{}, err
	}
	scene := Scene{
		Name:      name,
		Path:      scenePath,
		Date:      date,
		BandPaths: map[common.Band]string{},
	}

	sceneFiles, err := bandFiles(scenePath, params.FileFormat)
	if err != nil {
		return Scene{}, err
	}
	var maskFiles []string
	if _, ok := suffixes[params.BandSuffixes[params.MaskBand]]; ok {
		if maskFiles, err = bandFiles(filepath.Join(scenePath, params.MaskDir), params.FileFormat); err != nil {
			return Scene{}, err
		}
	}

	for suffix, band := range suffixes {
		// match the full <suffix><format> token to rule out confusions
		// between e.g. B8 and B8A
		token := suffix + params.FileFormat
		if band == params.MaskBand {
			for _, file := range maskFiles {
				if strings.Contains(file, token) {
					scene.BandPaths[band] = filepath.Join(params.MaskDir, file)
				}
			}
			continue
		}
		for _, file := range sceneFiles {
			if strings.Contains(file, token) {
				scene.BandPaths[band] = file
			}
		}
	}
	return scene, nil
}

func bandFiles(dir, format string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), format) {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

func matchesTile(scene string, tiles service.StringSet) bool {
	for tile := range tiles {
		if strings.Contains(scene, tile) {
			return true
		}
	}
	return false
}

// folderDate parses a year/month/day directory triple. Stray non-numeric
// entries are skipped rather than aborting the traversal.
func folderDate(ctx context.Context, year, month, day string) (time.Time, bool) {
	y, erry := strconv.Atoi(year)
	m, errm := strconv.Atoi(month)
	d, errd := strconv.Atoi(day)
	if erry != nil || errm != nil || errd != nil {
		log.Logger(ctx).Sugar().Debugf("skipping non-date folder %s/%s/%s", year, month, day)
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), true
}

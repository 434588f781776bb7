// Package timeseries assembles imported rasters into a band-labeled raster
// time series.
package timeseries

import (
	"context"
	"fmt"
	"os"

	"github.com/airbusgeo/eoarchive-ingester/common"
	"github.com/airbusgeo/eoarchive-ingester/importer"
	"github.com/airbusgeo/eoarchive-ingester/interface/gis"
	"github.com/airbusgeo/eoarchive-ingester/service/log"
	"go.uber.org/zap"
)

// registerTimeLayout is the timestamp format of a registration manifest line
const registerTimeLayout = "2006-01-02 15:04:05"

// Assembler creates the output time series and registers the retained
// rasters in it.
type Assembler struct {
	TS gis.TimeSeries
}

// Assemble creates the `output` time series and registers every retained
// result in it at its acquisition timestamp. An empty raster is retained
// only if it carries the collection's mask band: a fully-clouded or
// cloud-free mask is meaningful, an empty reflectance raster is not.
// The names of the discarded rasters are returned so the caller can remove
// them.
func (a Assembler) Assemble(ctx context.Context, results []importer.Result, output string, collection common.Collection) ([]string, error) {
	params := collection.Params()
	title := fmt.Sprintf("%s_%s", params.Name, output)
	if err := a.TS.Create(ctx, output, title, title); err != nil {
		return nil, fmt.Errorf("Assemble.%w", err)
	}

	var retained []importer.Result
	var orphans []string
	for _, result := range results {
		if !result.Empty || result.Label == params.MaskBand {
			retained = append(retained, result)
		} else {
			orphans = append(orphans, result.Name)
		}
	}
	log.Logger(ctx).Info("registering rasters",
		zap.String("strds", output), zap.Int("rasters", len(retained)), zap.Int("discarded", len(orphans)))

	manifest, err := writeManifest(retained)
	if err != nil {
		return nil, fmt.Errorf("Assemble.%w", err)
	}
	defer os.Remove(manifest)

	if err := a.TS.RegisterFile(ctx, output, manifest); err != nil {
		return nil, fmt.Errorf("Assemble.%w", err)
	}
	return orphans, nil
}

// writeManifest writes the `raster|timestamp` registration manifest to a
// temporary file and returns its path. The caller removes it.
func writeManifest(results []importer.Result) (string, error) {
	file, err := os.CreateTemp("", "strds_register_*.txt")
	if err != nil {
		return "", fmt.Errorf("writeManifest: %w", err)
	}
	for _, result := range results {
		if _, err := fmt.Fprintf(file, "%s|%s\n", result.Name, result.Date.Format(registerTimeLayout)); err != nil {
			file.Close()
			os.Remove(file.Name())
			return "", fmt.Errorf("writeManifest: %w", err)
		}
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("writeManifest: %w", err)
	}
	return file.Name(), nil
}

// Package ingester orchestrates one archive ingestion run: tile resolution,
// archive browsing, parallel import and time-series registration.
package ingester

import (
	"context"
	"errors"
	"fmt"

	"github.com/airbusgeo/eoarchive-ingester/catalog"
	"github.com/airbusgeo/eoarchive-ingester/common"
	"github.com/airbusgeo/eoarchive-ingester/importer"
	"github.com/airbusgeo/eoarchive-ingester/interface/gis"
	"github.com/airbusgeo/eoarchive-ingester/interface/grid"
	"github.com/airbusgeo/eoarchive-ingester/resource"
	"github.com/airbusgeo/eoarchive-ingester/service/log"
	"github.com/airbusgeo/eoarchive-ingester/timeseries"
	"go.uber.org/zap"
)

// ErrNoScenes is returned when nothing in the archive matches the spatial
// and temporal filter. The run created no output container.
var ErrNoScenes = errors.New("No scenes matching the spatial and temporal filter found. Exiting...")

// Config of one ingestion run
type Config struct {
	// Output is the name of the raster time series to create
	Output string
	// Collection to ingest
	Collection common.Collection
	// Archive hosting the collection
	Archive common.Archive
	// Mountpoint of the archive filesystem
	Mountpoint string
	// Bands to import
	Bands []common.Band
	// Dates filters the acquisitions (start inclusive, end exclusive)
	Dates common.DateRange
	// Workers is the requested number of import workers
	// (resource.AllButOne for all cores but one)
	Workers int
	// MemoryMB is the total memory budget, split across workers
	MemoryMB int
}

// Services are the external dependencies of a run
type Services struct {
	Session    gis.Session
	Engine     gis.Importer
	Labeler    gis.Labeler
	TimeSeries gis.TimeSeries
	Cleaner    gis.Cleaner
	Grid       grid.TileResolver
}

// Run performs one ingestion: it resolves the tiles intersecting the current
// region, browses the archive for matching scenes, imports the band files in
// parallel and registers the retained rasters in the output time series.
// Temporary objects are removed on every exit path.
func Run(ctx context.Context, cfg Config, svc Services, status *Status) (err error) {
	teardown := gis.NewTeardown(svc.Cleaner)
	defer func() {
		if err != nil {
			status.SetPhase(PhaseFailed)
		}
		// release even when ctx was cancelled
		teardown.Release(context.WithoutCancel(ctx))
	}()

	cores, memoryMB := resource.Negotiate(ctx, cfg.Workers, cfg.MemoryMB)
	perWorkerMB := memoryMB / cores
	if perWorkerMB < 1 {
		perWorkerMB = 1
	}
	log.Logger(ctx).Info("starting ingestion", zap.String("output", cfg.Output),
		zap.String("collection", cfg.Collection.String()), zap.String("archive", cfg.Archive.String()),
		zap.Int("workers", cores), zap.Int("memoryMB", memoryMB))

	status.SetPhase(PhaseResolving)
	tiles, err := catalog.ResolveTiles(ctx, svc.Session, svc.Grid, teardown)
	if err != nil {
		return fmt.Errorf("Run.%w", err)
	}
	status.SetTiles(len(tiles))

	status.SetPhase(PhaseBrowsing)
	scenes, err := catalog.Browse(ctx, cfg.Collection, cfg.Bands, cfg.Mountpoint, cfg.Dates, tiles)
	if err != nil {
		return fmt.Errorf("Run.%w", err)
	}
	if len(scenes) == 0 {
		return ErrNoScenes
	}
	tasks := importer.Tasks(scenes, perWorkerMB)
	status.SetScenes(len(scenes), len(tasks))
	log.Logger(ctx).Info("scenes found", zap.Int("scenes", len(scenes)), zap.Int("rasters", len(tasks)))

	status.SetPhase(PhaseImporting)
	imp := importer.Importer{Engine: svc.Engine, Labeler: svc.Labeler, OnDone: status.TaskDone}
	results, err := imp.Run(ctx, tasks, cores)
	if err != nil {
		return fmt.Errorf("Run.%w", err)
	}

	status.SetPhase(PhaseRegister)
	orphans, err := timeseries.Assembler{TS: svc.TimeSeries}.Assemble(ctx, results, cfg.Output, cfg.Collection)
	if err != nil {
		return fmt.Errorf("Run.%w", err)
	}
	teardown.Rasters(orphans...)

	status.SetPhase(PhaseDone)
	log.Logger(ctx).Info("ingestion done", zap.String("strds", cfg.Output),
		zap.Int("registered", len(results)-len(orphans)), zap.Int("discarded", len(orphans)))
	return nil
}

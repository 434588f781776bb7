// Package importer runs the per-band import tasks of a batch on a pool of
// workers and labels the resulting rasters.
package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/airbusgeo/eoarchive-ingester/catalog"
	"github.com/airbusgeo/eoarchive-ingester/common"
	"github.com/airbusgeo/eoarchive-ingester/interface/gis"
	"github.com/airbusgeo/eoarchive-ingester/service/log"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is one raster to import: one band file of one scene.
type Task struct {
	// Source is the absolute path of the band file
	Source string
	// Name of the raster to create
	Name string
	// MemoryMB is the per-worker memory budget handed to the engine
	MemoryMB int
	// Label is the band label to attach after the import
	Label common.Band
	// Date is the acquisition timestamp of the scene
	Date time.Time
}

// Result is the outcome of one task. Empty rasters are reported, not
// dropped: the caller decides which of them to keep.
type Result struct {
	Name  string
	Date  time.Time
	Empty bool
	Label common.Band
}

// Importer imports a batch of tasks through a GIS engine.
type Importer struct {
	Engine  gis.Importer
	Labeler gis.Labeler
	// OnDone, if set, is called after each finished task
	OnDone func()
}

// Tasks builds the import tasks of a scene manifest. The raster name is the
// band file's base name with the extension stripped and dashes replaced so
// that it is a valid map name.
func Tasks(scenes []catalog.Scene, memoryMB int) []Task {
	var tasks []Task
	for _, scene := range scenes {
		for band, path := range scene.BandPaths {
			source := filepath.Join(scene.Path, path)
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			name = strings.ReplaceAll(name, "-", "_")
			tasks = append(tasks, Task{
				Source:   source,
				Name:     name,
				MemoryMB: memoryMB,
				Label:    band,
				Date:     scene.Date,
			})
		}
	}
	return tasks
}

// Run imports the tasks on `workers` parallel workers and returns one result
// per task, in task order. The first import failure cancels the batch.
func (imp *Importer) Run(ctx context.Context, tasks []Task, workers int) ([]Result, error) {
	results := make([]Result, len(tasks))
	jobs := make(chan int)

	wg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		wg.Go(func() error {
			for i := range jobs {
				result, err := imp.importOne(ctx, tasks[i])
				if err != nil {
					return err
				}
				results[i] = result
				if imp.OnDone != nil {
					imp.OnDone()
				}
			}
			return nil
		})
	}

	for i := range tasks {
		select {
		case <-ctx.Done():
			close(jobs)
			return nil, fmt.Errorf("Run: %w", wg.Wait())
		case jobs <- i:
		}
	}
	close(jobs)

	if err := wg.Wait(); err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}
	return results, nil
}

func (imp *Importer) importOne(ctx context.Context, task Task) (Result, error) {
	output, err := imp.Engine.Import(ctx, gis.ImportArgs{
		Source:   task.Source,
		Name:     task.Name,
		MemoryMB: task.MemoryMB,
	})

	// the engine exits non-zero on an empty raster; sniff the output before
	// trusting the exit status
	empty := EmptyOutput(task.Name, output)
	if err != nil && !empty {
		return Result{}, fmt.Errorf("import %s: %w", task.Name, err)
	}
	if empty {
		log.Logger(ctx).Warn("Only no-data values found in current region for input raster "+task.Source,
			zap.String("raster", task.Name))
	}

	if err := imp.Labeler.AddLabel(ctx, task.Name, string(task.Label)); err != nil {
		return Result{}, fmt.Errorf("label %s: %w", task.Name, err)
	}

	return Result{Name: task.Name, Date: task.Date, Empty: empty, Label: task.Label}, nil
}

// EmptyOutput reports whether the engine output of an import denotes an
// empty raster (no pixel of the source intersects the current region).
func EmptyOutput(name, output string) bool {
	return strings.Contains(output, fmt.Sprintf("<%s> is empty", name)) ||
		strings.Contains(output, "Input raster does not overlap current computational region")
}

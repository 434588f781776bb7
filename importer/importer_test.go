package importer

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/airbusgeo/eoarchive-ingester/catalog"
	"github.com/airbusgeo/eoarchive-ingester/common"
	"github.com/airbusgeo/eoarchive-ingester/interface/gis"
)

type fakeEngine struct {
	mu      sync.Mutex
	imports []string
	// emptyRasters exit non-zero with the engine's empty-raster message
	emptyRasters map[string]bool
	// failRasters exit non-zero with an unrelated message
	failRasters map[string]bool
	labels      map[string]string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		emptyRasters: map[string]bool{},
		failRasters:  map[string]bool{},
		labels:       map[string]string{},
	}
}

func (e *fakeEngine) Import(ctx context.Context, args gis.ImportArgs) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.imports = append(e.imports, args.Name)
	if e.emptyRasters[args.Name] {
		return fmt.Sprintf("WARNING: Raster map <%s> is empty", args.Name), fmt.Errorf("exit status 1")
	}
	if e.failRasters[args.Name] {
		return "ERROR: Unable to open source", fmt.Errorf("exit status 1")
	}
	return "", nil
}

func (e *fakeEngine) AddLabel(ctx context.Context, raster, label string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.labels[raster] = label
	return nil
}

func testTasks(n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{
			Source:   fmt.Sprintf("/archive/scene_%d_FRE_B4.tif", i),
			Name:     fmt.Sprintf("scene_%d_FRE_B4", i),
			MemoryMB: 300,
			Label:    common.S2B4,
			Date:     time.Date(2022, 7, 5, 10, 34, 23, 0, time.UTC),
		}
	}
	return tasks
}

func TestRun(t *testing.T) {
	for _, workers := range []int{1, runtime.NumCPU()} {
		engine := newFakeEngine()
		imp := Importer{Engine: engine, Labeler: engine}
		tasks := testTasks(12)

		results, err := imp.Run(context.Background(), tasks, workers)
		if err != nil {
			t.Fatalf("Run(workers=%d): %v", workers, err)
		}
		if len(results) != len(tasks) {
			t.Fatalf("expecting %d results, got %d", len(tasks), len(results))
		}
		for i, result := range results {
			if result.Name != tasks[i].Name {
				t.Errorf("results must keep task order: %s at %d", result.Name, i)
			}
			if result.Empty {
				t.Errorf("unexpected empty result %s", result.Name)
			}
			if engine.labels[result.Name] != string(common.S2B4) {
				t.Errorf("raster %s must be labeled", result.Name)
			}
		}
	}
}

func TestRunEmptyRaster(t *testing.T) {
	engine := newFakeEngine()
	tasks := testTasks(4)
	engine.emptyRasters[tasks[2].Name] = true
	imp := Importer{Engine: engine, Labeler: engine}

	results, err := imp.Run(context.Background(), tasks, 2)
	if err != nil {
		t.Fatalf("an empty raster is not a failure: %v", err)
	}
	if !results[2].Empty {
		t.Errorf("result 2 must be flagged empty")
	}
	// empty rasters are labeled like any other
	if engine.labels[tasks[2].Name] != string(common.S2B4) {
		t.Errorf("empty raster must still be labeled")
	}
}

func TestRunFailureAbortsBatch(t *testing.T) {
	engine := newFakeEngine()
	tasks := testTasks(8)
	engine.failRasters[tasks[1].Name] = true
	imp := Importer{Engine: engine, Labeler: engine}

	if _, err := imp.Run(context.Background(), tasks, 2); err == nil {
		t.Fatalf("an import failure must abort the batch")
	}
}

func TestRunProgress(t *testing.T) {
	engine := newFakeEngine()
	var mu sync.Mutex
	done := 0
	imp := Importer{Engine: engine, Labeler: engine, OnDone: func() {
		mu.Lock()
		done++
		mu.Unlock()
	}}

	if _, err := imp.Run(context.Background(), testTasks(5), 3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if done != 5 {
		t.Errorf("expecting 5 progress calls, got %d", done)
	}
}

func TestTasks(t *testing.T) {
	scenes := []catalog.Scene{{
		Name: "SENTINEL2B_20220705-103423-177_L2A_T32UNB_C_V3-0",
		Path: "/codede/Sentinel-2/MSI/L2A-MAJA/2022/07/05/SENTINEL2B_20220705-103423-177_L2A_T32UNB_C_V3-0",
		Date: time.Date(2022, 7, 5, 10, 34, 23, 0, time.UTC),
		BandPaths: map[common.Band]string{
			common.S2B4:  "SENTINEL2B_20220705-103423-177_L2A_T32UNB_C_V3-0_FRE_B4.tif",
			common.S2CLM: "MASKS/SENTINEL2B_20220705-103423-177_L2A_T32UNB_C_V3-0_CLM_R1.tif",
		},
	}}

	tasks := Tasks(scenes, 300)
	if len(tasks) != 2 {
		t.Fatalf("expecting 2 tasks, got %d", len(tasks))
	}
	byLabel := map[common.Band]Task{}
	for _, task := range tasks {
		byLabel[task.Label] = task
	}
	b4 := byLabel[common.S2B4]
	if b4.Name != "SENTINEL2B_20220705_103423_177_L2A_T32UNB_C_V3_0_FRE_B4" {
		t.Errorf("raster names must be dash-free and extension-free, got %s", b4.Name)
	}
	if b4.Source != scenes[0].Path+"/SENTINEL2B_20220705-103423-177_L2A_T32UNB_C_V3-0_FRE_B4.tif" {
		t.Errorf("unexpected source %s", b4.Source)
	}
	clm := byLabel[common.S2CLM]
	if clm.Source != scenes[0].Path+"/MASKS/SENTINEL2B_20220705-103423-177_L2A_T32UNB_C_V3-0_CLM_R1.tif" {
		t.Errorf("mask source must include the MASKS subdirectory, got %s", clm.Source)
	}
	if b4.MemoryMB != 300 || !b4.Date.Equal(scenes[0].Date) {
		t.Errorf("unexpected task %+v", b4)
	}
}

func TestEmptyOutput(t *testing.T) {
	if !EmptyOutput("r1", "WARNING: Raster map <r1> is empty") {
		t.Errorf("empty-map warning must be detected")
	}
	if !EmptyOutput("r1", "ERROR: Input raster does not overlap current computational region") {
		t.Errorf("non-overlap error must be detected")
	}
	if EmptyOutput("r1", "WARNING: Raster map <r2> is empty") {
		t.Errorf("the message must name the raster at hand")
	}
	if EmptyOutput("r1", "ERROR: Unable to open source") {
		t.Errorf("an unrelated error is not an empty raster")
	}
}

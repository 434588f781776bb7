// Package gis defines the contracts of the external geospatial engine:
// the single-file reprojecting import engine, the semantic labeler, the
// time-series container and the coordinate-reference-system workspace.
package gis

import (
	"context"
)

// ImportArgs are the arguments of a single raster import
type ImportArgs struct {
	// Source file to import
	Source string
	// Name of the imported raster
	Name string
	// MemoryMB is the advisory memory budget of the import, in megabytes
	MemoryMB int
}

// Importer is a single-file import engine that reprojects the source into the
// active region. Import returns the engine's textual output: the engine does
// not expose a structured empty/non-empty return code, so the output is the
// only way to detect an all-nodata import (see importer.EmptyOutput).
type Importer interface {
	Import(ctx context.Context, args ImportArgs) (string, error)
}

// Labeler attaches a semantic label to a raster by name. Idempotent.
type Labeler interface {
	AddLabel(ctx context.Context, raster, label string) error
}

// TimeSeries drives the external raster time-series container
type TimeSeries interface {
	// Create an empty container
	Create(ctx context.Context, name, title, description string) error
	// RegisterFile bulk-registers the rasters listed in the manifest file
	// ("name|YYYY-MM-DD HH:MM:SS" lines). All-or-nothing from the caller's
	// perspective.
	RegisterFile(ctx context.Context, name, manifest string) error
}

// Cleaner removes temporary spatial objects
type Cleaner interface {
	RemoveRasters(ctx context.Context, names []string) error
	RemoveVectors(ctx context.Context, names []string) error
}

// Workspace is a disposable location in a fixed reference system, used to
// reproject the current region without mutating the caller's working context.
type Workspace interface {
	// ReprojectVector pulls the named vector from the caller's location into
	// the workspace and aligns the workspace region on it
	ReprojectVector(ctx context.Context, name string) error
	// ExportWKT returns the WKT geometry of the named vector
	ExportWKT(ctx context.Context, name string) (string, error)
	// Close removes the workspace. Idempotent; the caller's context is never
	// mutated, so there is nothing to restore.
	Close(ctx context.Context) error
}

// Session is the caller's working context in the external engine
type Session interface {
	// SnapshotRegion saves the current computational region as a named vector
	SnapshotRegion(ctx context.Context, name string) error
	// OpenWorkspace creates a disposable workspace in the given EPSG.
	// The returned workspace is verified against the requested code.
	OpenWorkspace(ctx context.Context, epsg int) (Workspace, error)
}

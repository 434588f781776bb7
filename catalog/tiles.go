package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/airbusgeo/eoarchive-ingester/interface/gis"
	"github.com/airbusgeo/eoarchive-ingester/interface/grid"
	"github.com/airbusgeo/eoarchive-ingester/service"
	"github.com/airbusgeo/eoarchive-ingester/service/log"
	"github.com/google/uuid"
	"github.com/paulsmith/gogeos/geos"
)

// GridEPSG is the fixed reference system of the tiling-grid service
const GridEPSG = 4326

// ResolveTiles converts the current region of interest into the set of
// tiling-grid cells it intersects. The region is snapshot as a vector,
// reprojected into the grid's reference system through a disposable
// workspace, and its convex hull is sent to the grid service.
// The workspace is closed before returning (no import task may observe the
// transient context) and registered on the teardown as a safety net; the
// snapshot vector is removed by the teardown.
// A workspace creation or verification failure is fatal: continuing would
// silently produce an empty or wrong tile set.
func ResolveTiles(ctx context.Context, session gis.Session, resolver grid.TileResolver, teardown *gis.Teardown) (service.StringSet, error) {
	name := "tmp_region_grid_" + strings.ReplaceAll(uuid.New().String(), "-", "_")
	if err := session.SnapshotRegion(ctx, name); err != nil {
		return nil, fmt.Errorf("ResolveTiles.%w", err)
	}
	teardown.Vectors(name)

	workspace, err := session.OpenWorkspace(ctx, GridEPSG)
	if err != nil {
		return nil, service.MakeFatal(fmt.Errorf("ResolveTiles.%w", err))
	}
	teardown.Func(workspace.Close)

	if err := workspace.ReprojectVector(ctx, name); err != nil {
		return nil, fmt.Errorf("ResolveTiles.%w", err)
	}
	regionWKT, err := workspace.ExportWKT(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("ResolveTiles.%w", err)
	}

	hullWKT, err := convexHullWKT(regionWKT)
	if err != nil {
		return nil, fmt.Errorf("ResolveTiles.%w", err)
	}

	tiles, err := resolver.IntersectingTiles(ctx, hullWKT)
	if err != nil {
		return nil, fmt.Errorf("ResolveTiles.%w", err)
	}
	log.Logger(ctx).Sugar().Debugf("%d tiles intersect the region", len(tiles))

	// restore the caller's working context before any import starts
	if err := workspace.Close(ctx); err != nil {
		return nil, fmt.Errorf("ResolveTiles.%w", err)
	}
	return tiles, nil
}

func convexHullWKT(wkt string) (string, error) {
	geometry, err := geos.FromWKT(wkt)
	if err != nil {
		return "", fmt.Errorf("FromWKT: %w", err)
	}
	hull, err := geometry.ConvexHull()
	if err != nil {
		return "", fmt.Errorf("ConvexHull: %w", err)
	}
	hullWKT, err := hull.ToWKT()
	if err != nil {
		return "", fmt.Errorf("ToWKT: %w", err)
	}
	return hullWKT, nil
}

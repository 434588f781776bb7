// Package grid defines the contract of the external tiling-grid service.
package grid

import (
	"context"

	"github.com/airbusgeo/eoarchive-ingester/service"
)

// TileResolver returns the identifiers of the grid cells intersecting a
// polygon expressed in the grid's fixed reference system.
type TileResolver interface {
	IntersectingTiles(ctx context.Context, polygonWKT string) (service.StringSet, error)
}

// Package wfs queries a Web Feature Service for the tiling-grid cells
// intersecting an area of interest.
package wfs

import (
	"context"
	"encoding/json"
	"fmt"
	neturl "net/url"
	"strings"

	"github.com/airbusgeo/eoarchive-ingester/service"
	"github.com/airbusgeo/eoarchive-ingester/service/log"
	"github.com/go-spatial/geom/encoding/geojson"
)

const (
	// DefaultURL is the public MGRS grid service
	DefaultURL = "https://geoserver.mundialis.de/geoserver/sentinel/wfs?"
	// DefaultLayer is the MGRS layer name on the default service
	DefaultLayer = "sentinel:mgrs"
)

// Client queries a WFS layer of tiling-grid cells
type Client struct {
	// URL of the WFS endpoint
	URL string
	// Layer (typeName) holding the grid cells
	Layer string
	// TileProperty is the feature attribute holding the cell identifier (default "name")
	TileProperty string
	// GeometryName is the feature geometry attribute (default "the_geom")
	GeometryName string
	// SRID of the layer (default 4326)
	SRID int
}

type rawFeature struct {
	ID         string                 `json:"id"`
	Geometry   geojson.Geometry       `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// IntersectingTiles implements grid.TileResolver: it returns the distinct
// cell identifiers of the features intersecting the polygon (WKT, in the
// layer's reference system).
func (c *Client) IntersectingTiles(ctx context.Context, polygonWKT string) (service.StringSet, error) {
	tileProperty := c.TileProperty
	if tileProperty == "" {
		tileProperty = "name"
	}
	geometryName := c.GeometryName
	if geometryName == "" {
		geometryName = "the_geom"
	}
	srid := c.SRID
	if srid == 0 {
		srid = 4326
	}

	params := neturl.Values{}
	params.Set("service", "WFS")
	params.Set("version", "2.0.0")
	params.Set("request", "GetFeature")
	params.Set("typeNames", c.Layer)
	params.Set("outputFormat", "application/json")
	params.Set("srsName", fmt.Sprintf("EPSG:%d", srid))
	params.Set("cql_filter", fmt.Sprintf("INTERSECTS(%s, %s)", geometryName, polygonWKT))
	url := strings.TrimSuffix(c.URL, "?") + "?" + params.Encode()

	body, err := service.GetBodyRetry(url, 3)
	if err != nil {
		return nil, fmt.Errorf("IntersectingTiles.GetBodyRetry: %w", err)
	}

	results := struct {
		Features []rawFeature `json:"features"`
	}{}
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("IntersectingTiles.Unmarshal: %w (response: %s)", err, body)
	}

	tiles := service.StringSet{}
	for _, f := range results.Features {
		name, ok := f.Properties[tileProperty].(string)
		if !ok {
			log.Logger(ctx).Sugar().Debugf("feature %s has no %s property", f.ID, tileProperty)
			continue
		}
		tiles.Push(name)
	}
	log.Logger(ctx).Sugar().Debugf("%d grid cells found", len(tiles))

	return tiles, nil
}

package wfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const featureCollection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "mgrs.1",
      "geometry": {"type": "Polygon", "coordinates": [[[8,51],[9,51],[9,52],[8,52],[8,51]]]},
      "properties": {"name": "32UNB"}
    },
    {
      "type": "Feature",
      "id": "mgrs.2",
      "geometry": {"type": "Polygon", "coordinates": [[[7,51],[8,51],[8,52],[7,52],[7,51]]]},
      "properties": {"name": "32UMB"}
    },
    {
      "type": "Feature",
      "id": "mgrs.3",
      "geometry": {"type": "Polygon", "coordinates": [[[8,51],[9,51],[9,52],[8,52],[8,51]]]},
      "properties": {"name": "32UNB"}
    }
  ]
}`

func TestIntersectingTiles(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(featureCollection))
	}))
	defer server.Close()

	client := Client{URL: server.URL + "?", Layer: "sentinel:mgrs"}
	tiles, err := client.IntersectingTiles(context.Background(), "POLYGON((8.1 51.1, 8.9 51.1, 8.9 51.9, 8.1 51.9, 8.1 51.1))")
	if err != nil {
		t.Fatalf("IntersectingTiles: %v", err)
	}

	if len(tiles) != 2 {
		t.Errorf("expecting 2 distinct tiles, got %d (%v)", len(tiles), tiles.Slice())
	}
	if !tiles.Exists("32UNB") || !tiles.Exists("32UMB") {
		t.Errorf("unexpected tiles: %v", tiles.Slice())
	}

	if got := gotQuery["typeNames"]; len(got) != 1 || got[0] != "sentinel:mgrs" {
		t.Errorf("unexpected typeNames: %v", got)
	}
	if got := gotQuery["srsName"]; len(got) != 1 || got[0] != "EPSG:4326" {
		t.Errorf("unexpected srsName: %v", got)
	}
	if got := gotQuery["cql_filter"]; len(got) != 1 || !strings.HasPrefix(got[0], "INTERSECTS(the_geom, POLYGON") {
		t.Errorf("unexpected cql_filter: %v", got)
	}
}

func TestIntersectingTilesEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type": "FeatureCollection", "features": []}`))
	}))
	defer server.Close()

	client := Client{URL: server.URL + "?", Layer: "sentinel:mgrs"}
	tiles, err := client.IntersectingTiles(context.Background(), "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))")
	if err != nil {
		t.Fatalf("IntersectingTiles: %v", err)
	}
	if len(tiles) != 0 {
		t.Errorf("expecting no tiles, got %v", tiles.Slice())
	}
}

func TestIntersectingTilesBadResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<ows:ExceptionReport/>`))
	}))
	defer server.Close()

	client := Client{URL: server.URL + "?", Layer: "sentinel:mgrs"}
	if _, err := client.IntersectingTiles(context.Background(), "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))"); err == nil {
		t.Errorf("expected error for a non-json response")
	}
}

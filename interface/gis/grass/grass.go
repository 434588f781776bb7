// Package grass drives a GRASS GIS installation through its command line
// modules. It implements the gis interfaces for sessions started inside a
// GRASS environment (GISRC set, modules on PATH).
package grass

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/eoarchive-ingester/interface/gis"
	"github.com/airbusgeo/eoarchive-ingester/service/log"
	"go.uber.org/zap/zapcore"
)

// Session is the caller's GRASS location/mapset. It implements gis.Session,
// gis.Importer, gis.Labeler, gis.TimeSeries and gis.Cleaner.
type Session struct {
	Gisdbase string
	Location string
	Mapset   string
}

// New reads the active GRASS environment
func New(ctx context.Context) (*Session, error) {
	out, err := capture(ctx, nil, "g.gisenv", "-n")
	if err != nil {
		return nil, fmt.Errorf("grass.New: not inside a GRASS session: %w", err)
	}
	s := Session{}
	for _, line := range strings.Split(out, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		switch key {
		case "GISDBASE":
			s.Gisdbase = value
		case "LOCATION_NAME":
			s.Location = value
		case "MAPSET":
			s.Mapset = value
		}
	}
	if s.Gisdbase == "" || s.Location == "" || s.Mapset == "" {
		return nil, fmt.Errorf("grass.New: incomplete GRASS environment: %q", out)
	}
	return &s, nil
}

// SnapshotRegion implements gis.Session
func (s *Session) SnapshotRegion(ctx context.Context, name string) error {
	if err := run(ctx, nil, "v.in.region", "--quiet", "output="+name); err != nil {
		return fmt.Errorf("SnapshotRegion[%s]: %w", name, err)
	}
	return nil
}

// OpenWorkspace implements gis.Session: it creates a disposable location in
// the given EPSG and verifies the projection actually matches the request.
func (s *Session) OpenWorkspace(ctx context.Context, epsg int) (gis.Workspace, error) {
	location := fmt.Sprintf("tmp_import_location_%d", os.Getpid())

	gisrc, err := os.CreateTemp("", "gisrc_")
	if err != nil {
		return nil, fmt.Errorf("OpenWorkspace: %w", err)
	}
	fmt.Fprintf(gisrc, "MAPSET: PERMANENT\nGISDBASE: %s\nLOCATION_NAME: %s\nGUI: text\n", s.Gisdbase, location)
	if err := gisrc.Close(); err != nil {
		return nil, fmt.Errorf("OpenWorkspace: %w", err)
	}

	log.Logger(ctx).Sugar().Debugf("creating temporary location with EPSG:%d", epsg)
	if err := run(ctx, nil, "g.proj", "--quiet", "-c", fmt.Sprintf("epsg=%d", epsg), "location="+location); err != nil {
		os.Remove(gisrc.Name())
		return nil, fmt.Errorf("OpenWorkspace: create location %s: %w", location, err)
	}

	ws := &workspace{session: s, location: location, gisrc: gisrc.Name()}
	if err := ws.verify(ctx, epsg); err != nil {
		ws.Close(ctx)
		return nil, fmt.Errorf("OpenWorkspace: %w", err)
	}
	return ws, nil
}

type workspace struct {
	session  *Session
	location string
	gisrc    string
	closed   bool
}

func (w *workspace) env() []string {
	return []string{"GISRC=" + w.gisrc}
}

func (w *workspace) verify(ctx context.Context, epsg int) error {
	out, err := capture(ctx, w.env(), "g.proj", "-g")
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	for _, line := range strings.Split(out, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		// newer versions report srid=EPSG:<code> instead of epsg=<code>
		if key == "epsg" && value == fmt.Sprintf("%d", epsg) {
			return nil
		}
		if key == "srid" && value == fmt.Sprintf("EPSG:%d", epsg) {
			return nil
		}
	}
	return fmt.Errorf("verify: location %s does not match EPSG:%d", w.location, epsg)
}

// ReprojectVector implements gis.Workspace
func (w *workspace) ReprojectVector(ctx context.Context, name string) error {
	if err := run(ctx, w.env(), "v.proj", "--quiet",
		"location="+w.session.Location, "mapset="+w.session.Mapset,
		"input="+name, "output="+name); err != nil {
		return fmt.Errorf("ReprojectVector[%s]: %w", name, err)
	}
	if err := run(ctx, w.env(), "g.region", "--quiet", "vector="+name); err != nil {
		return fmt.Errorf("ReprojectVector[%s]: %w", name, err)
	}
	return nil
}

// ExportWKT implements gis.Workspace
func (w *workspace) ExportWKT(ctx context.Context, name string) (string, error) {
	out, err := capture(ctx, w.env(), "v.out.ascii", "--quiet", "input="+name, "format=wkt")
	if err != nil {
		return "", fmt.Errorf("ExportWKT[%s]: %w", name, err)
	}
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("ExportWKT[%s]: empty output", name)
}

// Close implements gis.Workspace. The caller's context was never mutated
// (every command runs with a private GISRC), so closing only removes the
// temporary location.
func (w *workspace) Close(ctx context.Context) error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := os.Remove(w.gisrc)
	if rerr := os.RemoveAll(filepath.Join(w.session.Gisdbase, w.location)); rerr != nil {
		err = rerr
	}
	if err != nil {
		return fmt.Errorf("workspace.Close: %w", err)
	}
	return nil
}

// Import implements gis.Importer with r.import. The combined output is
// returned so the caller can detect an all-nodata import: r.import reports it
// as text only.
func (s *Session) Import(ctx context.Context, args gis.ImportArgs) (string, error) {
	memory := importMemory(args.MemoryMB)
	// -n is required because of a r.proj auto-resize bug on empty results,
	// see https://github.com/OSGeo/grass/issues/2609
	cmd := exec.CommandContext(ctx, "r.import", "--quiet",
		"input="+args.Source, "output="+args.Name, fmt.Sprintf("memory=%d", memory),
		"extent=region", "resample=bilinear", "resolution=estimated", "-n")
	out, err := cmd.CombinedOutput()
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			log.Logger(ctx).Debug(line)
		}
	}
	return string(out), err
}

// importMemory converts the budget to the value passed to r.import.
// From 100000 on, GDAL interprets the raw value as bytes instead of MB, so it
// is scaled to stay a megabyte count.
func importMemory(memoryMB int) int {
	if memoryMB >= 100000 {
		return memoryMB * 1000000
	}
	return memoryMB
}

// AddLabel implements gis.Labeler with r.semantic.label
func (s *Session) AddLabel(ctx context.Context, raster, label string) error {
	if err := run(ctx, nil, "r.semantic.label", "map="+raster, "semantic_label="+label, "operation=add"); err != nil {
		return fmt.Errorf("AddLabel[%s]: %w", raster, err)
	}
	return nil
}

// Create implements gis.TimeSeries with t.create
func (s *Session) Create(ctx context.Context, name, title, description string) error {
	if err := run(ctx, nil, "t.create", "output="+name, "type=strds",
		"title="+title, "description="+description); err != nil {
		return fmt.Errorf("Create[%s]: %w", name, err)
	}
	return nil
}

// RegisterFile implements gis.TimeSeries with t.register
func (s *Session) RegisterFile(ctx context.Context, name, manifest string) error {
	if err := run(ctx, nil, "t.register", "input="+name, "type=raster", "file="+manifest); err != nil {
		return fmt.Errorf("RegisterFile[%s]: %w", name, err)
	}
	return nil
}

// RemoveRasters implements gis.Cleaner
func (s *Session) RemoveRasters(ctx context.Context, names []string) error {
	return s.remove(ctx, "raster", names)
}

// RemoveVectors implements gis.Cleaner
func (s *Session) RemoveVectors(ctx context.Context, names []string) error {
	return s.remove(ctx, "vector", names)
}

func (s *Session) remove(ctx context.Context, kind string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if err := run(ctx, nil, "g.remove", "--quiet", "-f", "type="+kind, "name="+strings.Join(names, ",")); err != nil {
		return fmt.Errorf("remove %s: %w", kind, err)
	}
	return nil
}

// run executes a GRASS module, streaming its output to the logger.
// extraEnv entries override the inherited environment.
func run(ctx context.Context, extraEnv []string, module string, args ...string) error {
	cmd := exec.CommandContext(ctx, module, args...)
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	if err := log.Exec(ctx, cmd, log.StdoutLevel(zapcore.DebugLevel), log.StderrFilter(messageFilter{})); err != nil {
		return fmt.Errorf("%s: %w", module, err)
	}
	return nil
}

// capture executes a GRASS module and returns its combined output
func capture(ctx context.Context, extraEnv []string, module string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, module, args...)
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s: %w (output: %s)", module, err, out)
	}
	return string(out), nil
}

// messageFilter maps GRASS message prefixes to log levels: GRASS writes all
// of its messages to stderr
type messageFilter struct{}

func (messageFilter) Filter(msg string, defaultLevel zapcore.Level) (string, zapcore.Level, bool) {
	switch {
	case strings.HasPrefix(msg, "ERROR:"):
		return msg, zapcore.ErrorLevel, false
	case strings.HasPrefix(msg, "WARNING:"):
		return msg, zapcore.WarnLevel, false
	default:
		return msg, zapcore.DebugLevel, false
	}
}

package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/okian/saferoute/internal/adapters/repository"
	"github.com/okian/saferoute/internal/domain/model"
)

// categoryProperty, when present on a feature, must name the file's
// category.
const categoryProperty = "category"

// DefaultFiles maps the stock categories to their data file names.
func DefaultFiles() map[model.Category]string {
	return map[model.Category]string{
		"Shootings":            "shootings_2023-2025.json",
		"Homicides":            "homicides_2023-2025.json",
		"Assaults":             "assaults_2023-2025.json",
		"Robberies":            "robberies_2023-2025.json",
		"Auto Thefts":          "auto thefts_2023-2025.json",
		"Motor Vehicle Thefts": "motor thefts_2023-2025.json",
		"Bicycle Thefts":       "bicycle thefts_2023-2025.json",
		"Property Thefts":      "thefts over open_2023-2025.json",
	}
}

// GeoJSONDir reads one FeatureCollection file per category from a directory.
type GeoJSONDir struct {
	dir               string
	files             map[model.Category]string
	timestampProperty string
}

// GeoJSONOption applies a configuration option to GeoJSONDir.
type GeoJSONOption func(*GeoJSONDir)

// WithFiles replaces the category → file name table.
func WithFiles(files map[model.Category]string) GeoJSONOption {
	return func(g *GeoJSONDir) {
		if len(files) == 0 {
			return
		}
		g.files = make(map[model.Category]string, len(files))
		for k, v := range files {
			g.files[k] = v
		}
	}
}

// WithTimestampProperty names the feature property holding the RFC 3339
// time of the incident. Features without it load with a zero time.
func WithTimestampProperty(name string) GeoJSONOption {
	return func(g *GeoJSONDir) {
		g.timestampProperty = name
	}
}

// NewGeoJSONDir returns a source reading files under dir.
func NewGeoJSONDir(dir string, opts ...GeoJSONOption) *GeoJSONDir {
	g := &GeoJSONDir{dir: dir, files: DefaultFiles()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements repository.Source.
func (g *GeoJSONDir) Name() string { return "geojson:" + g.dir }

// Categories implements repository.Source. Every configured category is
// listed whether or not its file exists; Read reports missing files.
func (g *GeoJSONDir) Categories(_ context.Context) ([]model.Category, error) {
	info, err := os.Stat(g.dir)
	if err != nil {
		return nil, eris.Wrapf(err, "geojson: stat %s", g.dir)
	}
	if !info.IsDir() {
		return nil, eris.Errorf("geojson: %s is not a directory", g.dir)
	}
	out := make([]model.Category, 0, len(g.files))
	for k := range g.files {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Read implements repository.Source.
func (g *GeoJSONDir) Read(ctx context.Context, category model.Category) ([]repository.RawRecord, error) {
	name, ok := g.files[category]
	if !ok {
		return nil, ErrUnknownCategory
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(g.dir, name)
	data, err := os.ReadFile(path) //nolint:gosec // path is built from configured file names
	if err != nil {
		return nil, eris.Wrapf(err, "geojson: read %s", name)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrapf(err, "geojson: parse %s", name)
	}

	out := make([]repository.RawRecord, 0, len(fc.Features))
	for i, f := range fc.Features {
		rec, err := g.record(category, f)
		if err != nil {
			return nil, fmt.Errorf("geojson: %s feature %d: %w", name, i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (g *GeoJSONDir) record(category model.Category, f *geojson.Feature) (repository.RawRecord, error) {
	if f == nil || f.Geometry == nil {
		return repository.RawRecord{}, ErrNotPoint
	}
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return repository.RawRecord{}, fmt.Errorf("%w: got %s", ErrNotPoint, f.Geometry.GeoJSONType())
	}

	rec := repository.RawRecord{
		Category:  f.Properties.MustString(categoryProperty, string(category)),
		Latitude:  pt.Lat(),
		Longitude: pt.Lon(),
	}
	if g.timestampProperty == "" {
		return rec, nil
	}
	raw, ok := f.Properties[g.timestampProperty]
	if !ok || raw == nil {
		return rec, nil
	}
	s, ok := raw.(string)
	if !ok {
		return repository.RawRecord{}, ErrBadTimestamp
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return repository.RawRecord{}, fmt.Errorf("%w: %w", ErrBadTimestamp, err)
	}
	rec.OccurredAt = ts
	return rec, nil
}

package source

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/okian/saferoute/internal/adapters/repository"
	"github.com/okian/saferoute/internal/domain/model"
)

// DefaultTable holds one row per incident: category text, geom
// geometry(Point, 4326), occurred_at timestamptz NULL, id ordering key.
const DefaultTable = "incidents"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Querier is the subset of pgxpool.Pool the source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres reads incidents from a PostGIS table.
type Postgres struct {
	db    Querier
	table string
	close func()
}

// NewPostgres returns a source over db. table may be schema qualified.
func NewPostgres(db Querier, table string) (*Postgres, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &Postgres{db: db, table: table}, nil
}

// OpenPostgres connects a pool to dsn and returns a source over it. Close
// releases the pool.
func OpenPostgres(ctx context.Context, dsn, table string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	p, err := NewPostgres(pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	p.close = pool.Close
	return p, nil
}

// Close releases the connection pool if the source owns one.
func (p *Postgres) Close() {
	if p.close != nil {
		p.close()
	}
}

// Name implements repository.Source.
func (p *Postgres) Name() string { return "postgres:" + p.table }

func (p *Postgres) categoriesSQL() string {
	return "SELECT DISTINCT category FROM " + p.table + " ORDER BY category"
}

func (p *Postgres) readSQL() string {
	return "SELECT ST_AsEWKB(geom), occurred_at FROM " + p.table + " WHERE category = $1 ORDER BY id"
}

// Categories implements repository.Source.
func (p *Postgres) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := p.db.Query(ctx, p.categoriesSQL())
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list categories")
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrap(err, "postgres: scan category")
		}
		out = append(out, model.Category(c))
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list categories")
	}
	return out, nil
}

// Read implements repository.Source.
func (p *Postgres) Read(ctx context.Context, category model.Category) ([]repository.RawRecord, error) {
	rows, err := p.db.Query(ctx, p.readSQL(), string(category))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: read %s", category)
	}
	defer rows.Close()

	var out []repository.RawRecord
	for i := 0; rows.Next(); i++ {
		var (
			wkb        []byte
			occurredAt *time.Time
		)
		if err := rows.Scan(&wkb, &occurredAt); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s row %d", category, i)
		}
		lng, lat, err := decodePoint(wkb)
		if err != nil {
			return nil, fmt.Errorf("postgres: %s row %d: %w", category, i, err)
		}
		rec := repository.RawRecord{Category: string(category), Latitude: lat, Longitude: lng}
		if occurredAt != nil {
			rec.OccurredAt = *occurredAt
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: read %s", category)
	}
	return out, nil
}

func decodePoint(b []byte) (lng, lat float64, err error) {
	g, err := ewkb.Unmarshal(b)
	if err != nil {
		return 0, 0, eris.Wrap(err, "decode ewkb")
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return 0, 0, fmt.Errorf("%w: got %T", ErrNotPoint, g)
	}
	flat := pt.FlatCoords()
	if len(flat) < 2 {
		return 0, 0, fmt.Errorf("%w: empty point", ErrNotPoint)
	}
	return flat[0], flat[1], nil
}

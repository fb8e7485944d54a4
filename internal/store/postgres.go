package store

import (
    "context"
    "database/sql"
    "embed"
    "encoding/json"
    "errors"
    "fmt"
    "io/fs"
    "sort"

    _ "github.com/jackc/pgx/v5/stdlib"

    "fleetopt/internal/geo"
    "fleetopt/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Migrate applies the embedded migrations in file name order. Every
// migration is idempotent, so it is safe to run on each start.
func (p *Postgres) Migrate(ctx context.Context) error {
    names, err := fs.Glob(migrations, "migrations/*.sql")
    if err != nil { return err }
    sort.Strings(names)
    for _, name := range names {
        body, err := migrations.ReadFile(name)
        if err != nil { return err }
        if _, err := p.db.ExecContext(ctx, string(body)); err != nil {
            return fmt.Errorf("migration %s: %w", name, err)
        }
    }
    return nil
}

const routeColumns = `id, vehicle, stops, total_distance, estimated_time, status, algorithm, created_at`

// routeArgs flattens a route into insert arguments, in routeColumns order
// followed by the WKB path.
func routeArgs(r model.Route) ([]any, error) {
    vehicle, err := json.Marshal(r.Vehicle)
    if err != nil { return nil, err }
    stops, err := json.Marshal(r.Stops)
    if err != nil { return nil, err }
    path, err := geo.PathWKB(r.Stops)
    if err != nil { return nil, fmt.Errorf("encode path: %w", err) }
    return []any{r.ID, vehicle, stops, r.TotalDistance, r.EstimatedTime, string(r.Status), r.Algorithm, r.CreatedAt.UTC(), path}, nil
}

func (p *Postgres) SaveRoute(ctx context.Context, r model.Route) error {
    args, err := routeArgs(r)
    if err != nil { return fmt.Errorf("save route %s: %w", r.ID, err) }
    _, err = p.db.ExecContext(ctx, `INSERT INTO routes (`+routeColumns+`, path) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (id) DO UPDATE SET vehicle=EXCLUDED.vehicle, stops=EXCLUDED.stops, path=EXCLUDED.path,
        total_distance=EXCLUDED.total_distance, estimated_time=EXCLUDED.estimated_time,
        status=EXCLUDED.status, algorithm=EXCLUDED.algorithm`, args...)
    if err != nil { return fmt.Errorf("save route %s: %w", r.ID, err) }
    return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanRoute(row rowScanner) (model.Route, error) {
    var r model.Route
    var vehicle, stops []byte
    var status string
    if err := row.Scan(&r.ID, &vehicle, &stops, &r.TotalDistance, &r.EstimatedTime, &status, &r.Algorithm, &r.CreatedAt); err != nil {
        return r, err
    }
    if err := json.Unmarshal(vehicle, &r.Vehicle); err != nil { return r, fmt.Errorf("decode vehicle: %w", err) }
    if err := json.Unmarshal(stops, &r.Stops); err != nil { return r, fmt.Errorf("decode stops: %w", err) }
    r.Status = model.RouteStatus(status)
    return r, nil
}

func (p *Postgres) GetRoute(ctx context.Context, id string) (model.Route, error) {
    r, err := scanRoute(p.db.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id=$1`, id))
    if errors.Is(err, sql.ErrNoRows) { return r, fmt.Errorf("route %s: %w", id, ErrNotFound) }
    return r, err
}

func (p *Postgres) ListRoutes(ctx context.Context, limit int) ([]model.Route, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT `+routeColumns+` FROM (
        SELECT * FROM routes ORDER BY created_at DESC, id DESC LIMIT $1
    ) recent ORDER BY created_at, id`, clampLimit(limit))
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Route{}
    for rows.Next() {
        r, err := scanRoute(rows)
        if err != nil { return nil, err }
        out = append(out, r)
    }
    return out, rows.Err()
}

func (p *Postgres) UpdateRouteStatus(ctx context.Context, id string, next model.RouteStatus) (model.Route, error) {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return model.Route{}, err }
    defer func(){ _ = tx.Rollback() }()

    r, err := scanRoute(tx.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id=$1 FOR UPDATE`, id))
    if errors.Is(err, sql.ErrNoRows) { return r, fmt.Errorf("route %s: %w", id, ErrNotFound) }
    if err != nil { return r, err }
    st, err := r.Status.Advance(next)
    if err != nil { return r, err }
    if _, err := tx.ExecContext(ctx, `UPDATE routes SET status=$1 WHERE id=$2`, string(st), id); err != nil {
        return r, err
    }
    if err := tx.Commit(); err != nil { return r, err }
    r.Status = st
    return r, nil
}

func (p *Postgres) RouteStats(ctx context.Context) (model.RouteStats, error) {
    st := model.RouteStats{ByAlgorithm: map[string]int{}, Daily: []model.DailyStats{}}
    row := p.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(total_distance),0), COALESCE(SUM(estimated_time),0) FROM routes`)
    if err := row.Scan(&st.Total, &st.TotalDistanceKm, &st.TotalEstimatedHours); err != nil { return st, err }
    if st.Total > 0 { st.AverageDistanceKm = round2(st.TotalDistanceKm / float64(st.Total)) }
    st.TotalDistanceKm = round2(st.TotalDistanceKm)
    st.TotalEstimatedHours = round2(st.TotalEstimatedHours)

    rows, err := p.db.QueryContext(ctx, `SELECT algorithm, COUNT(*) FROM routes GROUP BY algorithm`)
    if err != nil { return st, err }
    for rows.Next() {
        var algo string
        var n int
        if err := rows.Scan(&algo, &n); err != nil { rows.Close(); return st, err }
        st.ByAlgorithm[algo] = n
    }
    rows.Close()
    if err := rows.Err(); err != nil { return st, err }

    rows, err = p.db.QueryContext(ctx, `SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*), SUM(total_distance)
        FROM routes GROUP BY day ORDER BY day`)
    if err != nil { return st, err }
    defer rows.Close()
    for rows.Next() {
        var d model.DailyStats
        if err := rows.Scan(&d.Date, &d.Routes, &d.TotalDistanceKm); err != nil { return st, err }
        d.AverageDistance = round2(d.TotalDistanceKm / float64(d.Routes))
        d.TotalDistanceKm = round2(d.TotalDistanceKm)
        st.Daily = append(st.Daily, d)
    }
    return st, rows.Err()
}


package service

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/huykn/inspector/cache"
	"github.com/huykn/inspector/models"
	"github.com/huykn/inspector/repository"
)

// Operation describes how one read is cached: the key prefix, the TTL and
// the static tags every result of the operation carries.
type Operation struct {
	Name string
	TTL  time.Duration
	Tags []string
}

// Cached read operations.
var (
	OpListaRegistros = Operation{"registros_lista", 60 * time.Second, []string{cache.TagRegistros}}
	OpTotalRegistros = Operation{"total_registros", 180 * time.Second, []string{cache.TagRegistros, cache.TagEstadisticas}}
	OpRegistro       = Operation{"registro_individual", 300 * time.Second, []string{cache.TagRegistros}}
	OpHistorial      = Operation{"historial", 120 * time.Second, []string{cache.TagHistorial}}
	OpValoresUnicos  = Operation{"valores_unicos", 600 * time.Second, []string{cache.TagRegistros, cache.TagValoresUnicos}}
	OpExportar       = Operation{"exportar_registros", 30 * time.Second, []string{cache.TagRegistros}}
)

// DefaultHistoryDays bounds the history returned by Queries.History.
const DefaultHistoryDays = 15

// DefaultLoadTimeout bounds a shared database load on a cache miss.
const DefaultLoadTimeout = 30 * time.Second

// QueriesConfig configures Queries.
type QueriesConfig struct {
	// Enabled turns caching on. When false every read goes to the database.
	Enabled bool

	// HistoryDays is how far back History looks. Zero means DefaultHistoryDays.
	HistoryDays int

	// Logger receives hit/miss debug lines. Nil discards them.
	Logger cache.Logger

	// DebugMode enables the hit/miss debug lines.
	DebugMode bool

	// Clock replaces time.Now for the history window.
	Clock func() time.Time

	// LoadTimeout bounds a load shared by concurrent misses. Zero means DefaultLoadTimeout.
	LoadTimeout time.Duration
}

// Queries serves registro reads, checking the cache before the database.
// Cached results are shared between callers and must not be modified.
type Queries struct {
	cache     cache.Cache
	registros *repository.Registros
	historial *repository.Historial
	cfg       QueriesConfig
	group     singleflight.Group
}

// NewQueries creates the read façade.
func NewQueries(c cache.Cache, registros *repository.Registros, historial *repository.Historial, cfg QueriesConfig) *Queries {
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = DefaultHistoryDays
	}
	if cfg.Logger == nil {
		cfg.Logger = cache.NewNoOpLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	return &Queries{cache: c, registros: registros, historial: historial, cfg: cfg}
}

// List returns one page of registros.
func (q *Queries) List(ctx context.Context, p repository.ListParams) ([]models.Registro, error) {
	p = p.Normalize()
	params := filterParams(p.Filters)
	params["sort_by"] = p.SortBy
	params["sort_dir"] = p.SortDir
	params["limit"] = p.Limit
	params["offset"] = p.Offset

	return cached(ctx, q, OpListaRegistros, params, nil, func(ctx context.Context) ([]models.Registro, error) {
		return q.registros.List(ctx, p)
	})
}

// Count returns how many registros match filters.
func (q *Queries) Count(ctx context.Context, filters map[string]string) (int64, error) {
	return cached(ctx, q, OpTotalRegistros, filterParams(filters), nil, func(ctx context.Context) (int64, error) {
		return q.registros.Count(ctx, filters)
	})
}

// Get returns one registro. Not-found results are not cached.
func (q *Queries) Get(ctx context.Context, id int64) (models.Registro, error) {
	params := map[string]any{"id": id}
	return cached(ctx, q, OpRegistro, params, []string{cache.RegistroTag(id)}, func(ctx context.Context) (models.Registro, error) {
		return q.registros.Get(ctx, id)
	})
}

// History returns the recent changes of one inspector, newest first.
func (q *Queries) History(ctx context.Context, numeroInspector int64) ([]models.HistorialCambio, error) {
	params := map[string]any{"numero_inspector": numeroInspector, "dias": q.cfg.HistoryDays}
	tags := []string{cache.HistorialTag(numeroInspector)}
	return cached(ctx, q, OpHistorial, params, tags, func(ctx context.Context) ([]models.HistorialCambio, error) {
		since := q.cfg.Clock().AddDate(0, 0, -q.cfg.HistoryDays)
		return q.historial.CambiosSince(ctx, numeroInspector, since)
	})
}

// Distinct returns the distinct values of col, optionally containing search.
func (q *Queries) Distinct(ctx context.Context, col, search string) ([]string, error) {
	params := map[string]any{"col": col, "search": search}
	return cached(ctx, q, OpValoresUnicos, params, nil, func(ctx context.Context) ([]string, error) {
		return q.registros.Distinct(ctx, col, search)
	})
}

// Export returns every registro for the CSV export.
func (q *Queries) Export(ctx context.Context) ([]models.Registro, error) {
	return cached(ctx, q, OpExportar, nil, nil, func(ctx context.Context) ([]models.Registro, error) {
		return q.registros.All(ctx)
	})
}

// cached runs load through the cache. Concurrent misses on one key share a
// single load; errors are returned to every waiter and never stored.
// The shared load does not inherit the cancellation of the caller that
// started it. A result is only stored if no invalidation of its tags ran
// while it was loading.
func cached[T any](ctx context.Context, q *Queries, op Operation, params map[string]any, extraTags []string, load func(context.Context) (T, error)) (T, error) {
	if !q.cfg.Enabled {
		return load(ctx)
	}

	key := cache.BuildKey(op.Name, params)
	if v, ok := q.cache.Get(key); ok {
		if res, ok := v.(T); ok {
			if q.cfg.DebugMode {
				q.cfg.Logger.Debug("query cache hit", "op", op.Name, "key", key)
			}
			return res, nil
		}
	}

	if q.cfg.DebugMode {
		q.cfg.Logger.Debug("query cache miss", "op", op.Name, "key", key)
	}

	tags := make([]string, 0, len(op.Tags)+len(extraTags))
	tags = append(tags, op.Tags...)
	tags = append(tags, extraTags...)

	v, err, _ := q.group.Do(key, func() (any, error) {
		gen := q.cache.Generation(tags...)

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.cfg.LoadTimeout)
		defer cancel()
		res, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		if !q.cache.SetIfFresh(key, res, op.TTL, gen, tags...) && q.cfg.DebugMode {
			q.cfg.Logger.Debug("query result invalidated while loading", "op", op.Name, "key", key)
		}
		return res, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// filterParams turns non-empty filters into key parameters.
func filterParams(filters map[string]string) map[string]any {
	params := make(map[string]any, len(filters)+4)
	for col, v := range filters {
		if v != "" {
			params["f_"+col] = v
		}
	}
	return params
}

// Package catalogs loads the reference data screens resolve ids against.
package catalogs

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mostrador/backoffice/internal/platform/cache"
)

// CacheNamespace prefixes the redis keys of the reference data cache.
const CacheNamespace = "catalogs"

// Upstream resources holding reference data.
const (
	ResourceEmpleados   = "empleados"
	ResourceSucursales  = "sucursales"
	ResourceMetodosPago = "metodos-pago"
)

// Empleado is an employee as listed by the API.
type Empleado struct {
	ID         int64   `json:"id"`
	Nombre     string  `json:"nombre"`
	Apellido   string  `json:"apellido,omitempty"`
	SucursalID *int64  `json:"sucursal_id,omitempty"`
	Telefono   *string `json:"telefono,omitempty"`
	Activo     bool    `json:"activo"`
}

// NombreCompleto joins first and last name.
func (e Empleado) NombreCompleto() string {
	if e.Apellido == "" {
		return e.Nombre
	}
	return e.Nombre + " " + e.Apellido
}

// Sucursal is a branch.
type Sucursal struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

// MetodoPago is a payment method.
type MetodoPago struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

// ReferenceData bundles every catalog loaded for a request.
type ReferenceData struct {
	Empleados   []Empleado   `json:"empleados"`
	Sucursales  []Sucursal   `json:"sucursales"`
	MetodosPago []MetodoPago `json:"metodos_pago"`
}

// Empleado finds an employee by id.
func (r ReferenceData) Empleado(id int64) (Empleado, bool) {
	for _, e := range r.Empleados {
		if e.ID == id {
			return e, true
		}
	}
	return Empleado{}, false
}

// Sucursal finds a branch by id.
func (r ReferenceData) Sucursal(id int64) (Sucursal, bool) {
	for _, s := range r.Sucursales {
		if s.ID == id {
			return s, true
		}
	}
	return Sucursal{}, false
}

// Source is the subset of the API client the loader needs.
type Source interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
}

// Loader fetches catalogs concurrently, shares in-flight loads and caches
// the bundle in redis.
type Loader struct {
	cache  *cache.Versioned
	group  singleflight.Group
	logger *slog.Logger
}

// NewLoader constructs a loader. A nil cache disables caching.
func NewLoader(c *cache.Versioned, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cache: c, logger: logger}
}

// Load returns the reference data, failing if any catalog fails. Cached
// bundles and in-flight loads are shared only among callers with the same
// scope, which must identify the upstream credentials src carries. An empty
// scope bypasses the cache.
func (l *Loader) Load(ctx context.Context, src Source, scope string) (ReferenceData, error) {
	if scope == "" {
		return fetchAll(ctx, src)
	}
	key, err := l.cache.Key(ctx, "reference", scope)
	if err != nil {
		l.logger.Warn("catalog cache unavailable", slog.Any("error", err))
		return fetchAll(ctx, src)
	}
	ch := l.group.DoChan(key, func() (any, error) {
		// Shared by every waiter, so one caller leaving must not cancel it.
		fctx := context.WithoutCancel(ctx)
		var data ReferenceData
		err := l.cache.FetchJSON(fctx, key, &data, func(ctx context.Context) (any, error) {
			return fetchAll(ctx, src)
		})
		return data, err
	})
	select {
	case <-ctx.Done():
		return ReferenceData{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return ReferenceData{}, res.Err
		}
		return res.Val.(ReferenceData), nil
	}
}

// Invalidate drops cached reference data after a write to a catalog resource.
func (l *Loader) Invalidate(ctx context.Context) error {
	if err := l.cache.Bump(ctx); err != nil {
		return fmt.Errorf("catalogs: invalidate: %w", err)
	}
	return nil
}

func fetchAll(ctx context.Context, src Source) (ReferenceData, error) {
	var data ReferenceData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return src.GetJSON(gctx, ResourceEmpleados, nil, &data.Empleados)
	})
	g.Go(func() error {
		return src.GetJSON(gctx, ResourceSucursales, nil, &data.Sucursales)
	})
	g.Go(func() error {
		return src.GetJSON(gctx, ResourceMetodosPago, nil, &data.MetodosPago)
	})
	if err := g.Wait(); err != nil {
		return ReferenceData{}, err
	}
	sort.SliceStable(data.Empleados, func(i, j int) bool {
		return data.Empleados[i].NombreCompleto() < data.Empleados[j].NombreCompleto()
	})
	sort.SliceStable(data.Sucursales, func(i, j int) bool { return data.Sucursales[i].Nombre < data.Sucursales[j].Nombre })
	if data.Empleados == nil {
		data.Empleados = []Empleado{}
	}
	if data.Sucursales == nil {
		data.Sucursales = []Sucursal{}
	}
	if data.MetodosPago == nil {
		data.MetodosPago = []MetodoPago{}
	}
	return data, nil
}

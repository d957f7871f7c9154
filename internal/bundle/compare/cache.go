package compare

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache guarda resultados de comparación por par de paths. Las réplicas reciben solo
// los dos paths de un diff y lo resuelven acá: si el resultado lo calculó este proceso
// se reutiliza, si no se recalcula desde disco.
type Cache struct {
	c       *gocache.Cache
	compute func(origin, other string) (*Result, error)
}

// NewCache crea una cache con el TTL dado (0 = 10 minutos).
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{
		c:       gocache.New(ttl, 2*ttl),
		compute: Compare,
	}
}

func cacheKey(origin, other string) string { return origin + "\x00" + other }

// Put registra un resultado calculado localmente.
func (c *Cache) Put(r *Result) {
	if r == nil {
		return
	}
	c.c.SetDefault(cacheKey(r.Origin().Path(), r.Other().Path()), r)
}

// Resolve devuelve el resultado para el par de paths, recalculándolo si no está en cache.
func (c *Cache) Resolve(origin, other string) (*Result, error) {
	key := cacheKey(origin, other)
	if v, ok := c.c.Get(key); ok {
		if r, ok := v.(*Result); ok {
			return r, nil
		}
	}
	r, err := c.compute(origin, other)
	if err != nil {
		return nil, err
	}
	c.c.SetDefault(key, r)
	return r, nil
}

// Len devuelve la cantidad de entradas vigentes.
func (c *Cache) Len() int { return c.c.ItemCount() }

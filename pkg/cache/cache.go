// Package cache memoizes per-cluster discovery results for the lifetime of
// the process.
package cache

import (
	"sync"

	"github.com/cuemby/clusterscope/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Well-known discovery keys
const (
	KeyExamplesJarPath = "EXAMPLES_JAR_PATH_CACHE"
)

type entryKey struct {
	cluster string
	key     string
}

// Discovery memoizes expensive per-cluster lookups for the lifetime of the
// process. Values are written once: the first accepted value for a
// (cluster, key) pair is kept and later writes are dropped.
type Discovery struct {
	mu      sync.RWMutex
	entries map[entryKey]string
	group   singleflight.Group
}

// NewDiscovery creates an empty discovery cache
func NewDiscovery() *Discovery {
	return &Discovery{
		entries: make(map[entryKey]string),
	}
}

// Get returns the cached value for a cluster and key
func (d *Discovery) Get(cluster, key string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.entries[entryKey{cluster, key}]
	if ok {
		metrics.DiscoveryCacheTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.DiscoveryCacheTotal.WithLabelValues("miss").Inc()
	}
	return v, ok
}

// SetIfAbsent stores value unless one is already cached. It returns the value
// held by the cache after the call and whether this call stored it. Empty
// values are never stored.
func (d *Discovery) SetIfAbsent(cluster, key, value string) (string, bool) {
	k := entryKey{cluster, key}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.entries[k]; ok {
		return existing, false
	}
	if value == "" {
		return "", false
	}
	d.entries[k] = value
	return value, true
}

// GetOrLoad returns the cached value or runs load once for all concurrent
// callers of the same (cluster, key) pair and caches a non-empty result.
func (d *Discovery) GetOrLoad(cluster, key string, load func() (string, error)) (string, error) {
	if v, ok := d.Get(cluster, key); ok {
		return v, nil
	}

	v, err, _ := d.group.Do(cluster+"\x00"+key, func() (interface{}, error) {
		loaded, err := load()
		if err != nil {
			return "", err
		}
		stored, _ := d.SetIfAbsent(cluster, key, loaded)
		return stored, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Forget drops every cached entry of a cluster
func (d *Discovery) Forget(cluster string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for k := range d.entries {
		if k.cluster == cluster {
			delete(d.entries, k)
		}
	}
}

// Len returns the number of cached entries
func (d *Discovery) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpclient

import (
	"container/list"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/juju/errors"
	"github.com/peterbourgon/diskv"
)

var (
	diskCachesMu sync.Mutex
	// diskCaches holds one cache per cleaned directory path, so that every
	// client caching in a directory is held to one budget.
	diskCaches = make(map[string]*boundedCache)
)

// newMemoryCache returns a cache holding at most MaxCacheSize bytes of
// responses in memory for the lifetime of the client.
func newMemoryCache() *boundedCache {
	return newBoundedCache(httpcache.NewMemoryCache(), MaxCacheSize, nil)
}

// newDiskCache returns the cache storing responses in dir, holding at most
// MaxCacheSize bytes. Callers asking for the same directory share one cache.
func newDiskCache(dir string) (*boundedCache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Annotatef(err, "creating cache directory %q", dir)
	}
	dir = filepath.Clean(dir)

	diskCachesMu.Lock()
	defer diskCachesMu.Unlock()
	if cache, ok := diskCaches[dir]; ok {
		return cache, nil
	}
	store := diskv.New(diskv.Options{
		BasePath: dir,
		// The bounded cache is the only tier; diskv keeps nothing in memory.
		CacheSizeMax: 0,
	})
	cache := newBoundedCache(diskcache.NewWithDiskv(store), MaxCacheSize, func(name string) {
		if err := store.Erase(name); err != nil {
			logger.Debugf("removing cached response %s: %v", name, err)
		}
	})
	if err := cache.load(dir, store); err != nil {
		return nil, errors.Annotatef(err, "reading cache directory %q", dir)
	}
	diskCaches[dir] = cache
	return cache, nil
}

type cacheEntry struct {
	// name is the file name diskcache stores the response under.
	name string
	// key is empty for entries found on disk when the cache was opened.
	key  string
	size int64
}

// boundedCache evicts the least recently used responses once the total
// size of the stored responses exceeds maxSize.
type boundedCache struct {
	backend httpcache.Cache
	erase   func(name string)
	maxSize int64

	mu      sync.Mutex
	size    int64
	lru     *list.List
	entries map[string]*list.Element
}

func newBoundedCache(backend httpcache.Cache, maxSize int64, erase func(name string)) *boundedCache {
	return &boundedCache{
		backend: backend,
		erase:   erase,
		maxSize: maxSize,
		lru:     list.New(),
		entries: make(map[string]*list.Element),
	}
}

// cacheFilename matches the file names used by diskcache.
func cacheFilename(key string) string {
	h := md5.New()
	_, _ = io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}

// load accounts for responses left in dir by earlier clients, oldest
// first, and trims them to the budget.
func (c *boundedCache) load(dir string, store *diskv.Diskv) error {
	cancel := make(chan struct{})
	defer close(cancel)

	var found []os.FileInfo
	for name := range store.Keys(cancel) {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return errors.Trace(err)
		}
		found = append(found, info)
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].ModTime().Before(found[j].ModTime())
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, info := range found {
		c.entries[info.Name()] = c.lru.PushFront(&cacheEntry{
			name: info.Name(),
			size: info.Size(),
		})
		c.size += info.Size()
	}
	c.evict()
	return nil
}

// Get implements httpcache.Cache.
func (c *boundedCache) Get(key string) ([]byte, bool) {
	data, ok := c.backend.Get(key)
	if !ok {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(key, int64(len(data)))
	return data, true
}

// Set implements httpcache.Cache.
func (c *boundedCache) Set(key string, data []byte) {
	size := int64(len(data))
	if size > c.maxSize {
		c.Delete(key)
		return
	}
	c.backend.Set(key, data)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(key, size)
	c.evict()
}

// Delete implements httpcache.Cache.
func (c *boundedCache) Delete(key string) {
	c.backend.Delete(key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[cacheFilename(key)]; ok {
		c.remove(elem)
	}
}

// Size returns the number of bytes currently accounted for.
func (c *boundedCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *boundedCache) record(key string, size int64) {
	name := cacheFilename(key)
	if elem, ok := c.entries[name]; ok {
		entry := elem.Value.(*cacheEntry)
		c.size += size - entry.size
		entry.key = key
		entry.size = size
		c.lru.MoveToFront(elem)
		return
	}
	c.entries[name] = c.lru.PushFront(&cacheEntry{name: name, key: key, size: size})
	c.size += size
}

func (c *boundedCache) evict() {
	for c.size > c.maxSize {
		elem := c.lru.Back()
		if elem == nil {
			return
		}
		entry := c.remove(elem)
		switch {
		case entry.key != "":
			c.backend.Delete(entry.key)
		case c.erase != nil:
			c.erase(entry.name)
		}
	}
}

func (c *boundedCache) remove(elem *list.Element) *cacheEntry {
	entry := c.lru.Remove(elem).(*cacheEntry)
	delete(c.entries, entry.name)
	c.size -= entry.size
	return entry
}

package texture

import lru "github.com/hashicorp/golang-lru"

// defaultCacheSize bounds how many composed textures stay resident at
// once. A full commercial IWAD rarely carries more than a few hundred
// distinct wall textures, so this comfortably covers a level without
// holding the entire WAD's texture set decoded at once.
const defaultCacheSize = 256

// Cache is a bounded, load-lifetime store of composed textures keyed by
// name, so a texture referenced by many sidedefs is composed once.
type Cache struct {
	lru *lru.Cache
}

// NewCache returns an empty Cache holding at most defaultCacheSize
// textures.
func NewCache() (*Cache, error) {
	c, err := lru.New(defaultCacheSize)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Get returns the cached texture for name, if present.
func (c *Cache) Get(name string) (*Texture, bool) {
	v, ok := c.lru.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*Texture), true
}

// Put stores tex under name, evicting the least recently used entry if
// the cache is full.
func (c *Cache) Put(name string, tex *Texture) {
	c.lru.Add(name, tex)
}

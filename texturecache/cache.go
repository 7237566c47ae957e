// cache.go implements the import of decoded frames into sampleable textures.

// Package texturecache turns decoded frames into GPU textures without
// copying, reusing the texture made for a memory region whenever that
// region comes back with a newer frame.
package texturecache

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/vidframe/frame"
	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/logger"
	"github.com/xaionaro-go/vidframe/types"
	"github.com/xaionaro-go/xsync"
)

const DefaultMaxEntries = 8

// ImportedTexture is the GPU view of a frame. It stays valid until the
// next Import or Flush.
type ImportedTexture struct {
	Texture gpu.Texture
	Frame   *frame.Video
}

func (t *ImportedTexture) String() string {
	return fmt.Sprintf("Imported(%s <- %s)", t.Texture, t.Frame)
}

type entry struct {
	texture  gpu.Texture
	lastUsed uint64
}

// Cache imports frames of one pixel format on one device. It takes
// ownership of imported frames: a frame is released once a newer frame
// replaces it.
type Cache struct {
	device     gpu.Device
	format     types.PixelFormat
	maxEntries int

	locker  xsync.Mutex
	entries map[types.ObjectID]*entry
	current *ImportedTexture
	imports uint64
	hits    uint64
	misses  uint64
}

// New creates a cache for format. maxEntries bounds how many imports a
// memory region may stay unused before its texture is dropped.
func New(dev gpu.Device, format types.PixelFormat, maxEntries int) (*Cache, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("invalid pixel format %s", format)
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		device:     dev,
		format:     format,
		maxEntries: maxEntries,
		entries:    map[types.ObjectID]*entry{},
	}, nil
}

func (c *Cache) PixelFormat() types.PixelFormat {
	return c.format
}

// Import returns the texture for f and makes it the current one.
func (c *Cache) Import(
	ctx context.Context,
	f *frame.Video,
) (_ret *ImportedTexture, _err error) {
	logger.Tracef(ctx, "Import(%s)", f)
	defer func() { logger.Tracef(ctx, "/Import(%s): %v", f, _err) }()

	if f == nil {
		return nil, fmt.Errorf("nil frame")
	}
	if f.PixelFormat != c.format {
		return nil, fmt.Errorf("the cache imports %s, got %s", c.format, f)
	}
	return xsync.DoA2R2(ctx, &c.locker, c.importLocked, ctx, f)
}

func (c *Cache) importLocked(
	ctx context.Context,
	f *frame.Video,
) (*ImportedTexture, error) {
	if c.current != nil && c.current.Frame == f {
		return c.current, nil
	}
	c.imports++

	tex, err := c.textureFor(ctx, f)
	if err != nil {
		return nil, err
	}

	if prev := c.current; prev != nil {
		prev.Frame.Release()
	}
	c.current = &ImportedTexture{Texture: tex, Frame: f}
	c.evictLocked(ctx)
	return c.current, nil
}

func (c *Cache) textureFor(ctx context.Context, f *frame.Video) (gpu.Texture, error) {
	e, ok := c.entries[f.MemoryID]
	if ok {
		if ft, isFrameTexture := e.texture.(gpu.FrameTexture); isFrameTexture {
			err := ft.Rebind(f)
			if err == nil {
				c.hits++
				e.lastUsed = c.imports
				return e.texture, nil
			}
			logger.Debugf(ctx, "unable to reuse %s for %s: %v", e.texture, f, err)
		}
		e.texture.Release()
		delete(c.entries, f.MemoryID)
	}

	c.misses++
	tex, err := c.device.MakeTextureFromFrame(f, c.format)
	if err != nil {
		return nil, fmt.Errorf("unable to import %s: %w", f, err)
	}
	c.entries[f.MemoryID] = &entry{texture: tex, lastUsed: c.imports}
	return tex, nil
}

func (c *Cache) evictLocked(ctx context.Context) {
	for id, e := range c.entries {
		if c.current != nil && e.texture == c.current.Texture {
			continue
		}
		if c.imports-e.lastUsed < uint64(c.maxEntries) {
			continue
		}
		logger.Tracef(ctx, "evicting %s", e.texture)
		e.texture.Release()
		delete(c.entries, id)
	}
}

// Current returns the most recently imported texture, or nil.
func (c *Cache) Current() *ImportedTexture {
	return xsync.DoR1(xsync.WithNoLogging(context.Background(), true), &c.locker, func() *ImportedTexture {
		return c.current
	})
}

// Flush drops every cached texture and releases the current frame.
func (c *Cache) Flush(ctx context.Context) {
	logger.Debugf(ctx, "Flush")
	c.locker.Do(ctx, func() {
		for id, e := range c.entries {
			e.texture.Release()
			delete(c.entries, id)
		}
		if c.current != nil {
			c.current.Frame.Release()
			c.current = nil
		}
	})
}

type Stats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

func (c *Cache) Stats() Stats {
	return xsync.DoR1(xsync.WithNoLogging(context.Background(), true), &c.locker, func() Stats {
		return Stats{
			Entries: len(c.entries),
			Hits:    c.hits,
			Misses:  c.misses,
		}
	})
}

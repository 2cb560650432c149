// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"maps"
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/kernelgen/pkg/codegen"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Cache maps kernel names to the kernels generated for them, so each kernel is generated once
// per compilation session. It also holds the units shared by several kernels of the session,
// see SharedUnit.
//
// It is safe for concurrent use: concurrent GetOrEmit calls for the same name run the build
// function once, and all callers get its result.
type Cache struct {
	mu      sync.RWMutex
	kernels map[string]*FunctionUnit
	shared  map[string]*codegen.Unit
	group   singleflight.Group
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		kernels: make(map[string]*FunctionUnit),
		shared:  make(map[string]*codegen.Unit),
	}
}

// Lookup returns the kernel stored under name, or nil.
func (c *Cache) Lookup(name string) *FunctionUnit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kernels[name]
}

// Len returns the number of kernels in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.kernels)
}

// Names returns the sorted names of the kernels in the cache.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.kernels))
}

// SharedUnit returns the unit stored under name, e.g. a device function used by several kernels.
// The first call creates it with create, which must fully build the unit: it is visible to
// other kernels as soon as SharedUnit returns.
func (c *Cache) SharedUnit(name string, create func(u *codegen.Unit)) *codegen.Unit {
	c.mu.RLock()
	u := c.shared[name]
	c.mu.RUnlock()
	if u != nil {
		return u
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if u = c.shared[name]; u == nil {
		u = codegen.NewUnit(name)
		create(u)
		c.shared[name] = u
	}
	return u
}

// buildPanic carries a panic of a build function to every caller waiting on it.
type buildPanic struct {
	value any
}

func (p *buildPanic) Error() string {
	if err, ok := p.value.(error); ok {
		return err.Error()
	}
	return errors.Errorf("%v", p.value).Error()
}

// GetOrEmit returns the kernel stored under name, and true. If there is none, it calls build,
// stores its result if not nil, and returns it with false.
//
// Callers racing on the same name wait for the one running build and share its result (they
// also get false). A nil result (unsupported kernel) is not stored, so a later call builds again.
// If build panics, every waiting caller panics with the same value.
func (c *Cache) GetOrEmit(name string, build func() *FunctionUnit) (fu *FunctionUnit, hit bool) {
	if fu = c.Lookup(name); fu != nil {
		return fu, true
	}
	v, err, _ := c.group.Do(name, func() (any, error) {
		if fu := c.Lookup(name); fu != nil {
			return fu, nil
		}
		var built *FunctionUnit
		if panicked := exceptions.Try(func() { built = build() }); panicked != nil {
			return nil, &buildPanic{value: panicked}
		}
		if built != nil {
			c.mu.Lock()
			c.kernels[name] = built
			c.mu.Unlock()
		}
		return built, nil
	})
	if err != nil {
		var bp *buildPanic
		if errors.As(err, &bp) {
			panic(bp.value)
		}
		panic(err)
	}
	fu, _ = v.(*FunctionUnit)
	return fu, false
}

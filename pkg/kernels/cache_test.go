// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gomlx/kernelgen/pkg/codegen"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	cache := NewCache()
	var builds atomic.Int32
	want := &FunctionUnit{}
	build := func() *FunctionUnit {
		builds.Add(1)
		return want
	}

	fu, hit := cache.GetOrEmit("k1", build)
	assert.Same(t, want, fu)
	assert.False(t, hit)
	fu, hit = cache.GetOrEmit("k1", build)
	assert.Same(t, want, fu)
	assert.True(t, hit)
	assert.Equal(t, int32(1), builds.Load())
	assert.Nil(t, cache.Lookup("k2"))

	// Unsupported kernels are not stored.
	fu, hit = cache.GetOrEmit("k2", func() *FunctionUnit { return nil })
	assert.Nil(t, fu)
	assert.False(t, hit)
	assert.Equal(t, 1, cache.Len())
	_, _ = cache.GetOrEmit("k0", build)
	assert.Equal(t, []string{"k0", "k1"}, cache.Names())
}

func TestCachePanic(t *testing.T) {
	cache := NewCache()
	wantErr := errors.New("malformed")
	require.PanicsWithError(t, "malformed", func() {
		cache.GetOrEmit("k", func() *FunctionUnit { panic(wantErr) })
	})
	require.PanicsWithValue(t, "boom", func() {
		cache.GetOrEmit("k", func() *FunctionUnit { panic("boom") })
	})
	assert.Equal(t, 0, cache.Len())
}

func TestCacheConcurrentBuild(t *testing.T) {
	cache := NewCache()
	var builds atomic.Int32
	want := &FunctionUnit{}
	const numCallers = 32
	got := make([]*FunctionUnit, numCallers)
	var wg sync.WaitGroup
	for ii := range numCallers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[ii], _ = cache.GetOrEmit("shared", func() *FunctionUnit {
				builds.Add(1)
				time.Sleep(20 * time.Millisecond)
				return want
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), builds.Load())
	for _, fu := range got {
		assert.Same(t, want, fu)
	}
}

func TestSharedUnit(t *testing.T) {
	cache := NewCache()
	var creates atomic.Int32
	create := func(u *codegen.Unit) {
		creates.Add(1)
		u.Println("__device__ float relu(float x);")
	}
	var wg sync.WaitGroup
	units := make([]*codegen.Unit, 8)
	for ii := range units {
		wg.Add(1)
		go func() {
			defer wg.Done()
			units[ii] = cache.SharedUnit("relu", create)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), creates.Load())
	for _, u := range units {
		assert.Same(t, units[0], u)
	}
	assert.Equal(t, "relu", units[0].Name())
	assert.Equal(t, "__device__ float relu(float x);\n", units[0].Code())

	// Each cache has its own shared units.
	assert.NotSame(t, units[0], NewCache().SharedUnit("relu", create))
}

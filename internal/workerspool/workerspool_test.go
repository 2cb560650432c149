// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), New(0).MaxParallelism())
	assert.Equal(t, 3, New(3).MaxParallelism())
	assert.True(t, New(-1).IsUnlimited())
	assert.False(t, New(2).IsUnlimited())
}

func TestPool_ForEach(t *testing.T) {
	for _, maxParallelism := range []int{1, 3, -1} {
		pool := New(maxParallelism)
		const numTasks = 50
		var running, maxRunning, count atomic.Int32
		visited := make([]bool, numTasks)
		pool.ForEach(numTasks, func(i int) {
			current := running.Add(1)
			for {
				prev := maxRunning.Load()
				if current <= prev || maxRunning.CompareAndSwap(prev, current) {
					break
				}
			}
			runtime.Gosched()
			visited[i] = true
			count.Add(1)
			running.Add(-1)
		})
		require.Equal(t, int32(numTasks), count.Load())
		for i, v := range visited {
			assert.True(t, v, "task %d not run", i)
		}
		if maxParallelism > 0 {
			assert.LessOrEqual(t, int(maxRunning.Load()), maxParallelism)
		}
	}
}

func TestPool_ForEachEmpty(t *testing.T) {
	pool := New(2)
	called := false
	pool.ForEach(0, func(int) { called = true })
	assert.False(t, called)
}

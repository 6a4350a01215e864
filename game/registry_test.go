/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(CodeAlphabet, c), "unexpected %q in %s", c, code)
		}
	}
	assert.NotContains(t, CodeAlphabet, "0")
	assert.NotContains(t, CodeAlphabet, "O")
	assert.NotContains(t, CodeAlphabet, "1")
	assert.NotContains(t, CodeAlphabet, "I")
	assert.Len(t, CodeAlphabet, 32)
}

func TestRegistryCreate(t *testing.T) {
	t.Run("retries until the code is free", func(t *testing.T) {
		reg := NewRegistry(quartz.NewMock(t), time.Hour)
		codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
		reg.newCode = func() (string, error) {
			c := codes[0]
			codes = codes[1:]
			return c, nil
		}

		first, err := reg.Create(NewState(roster("A"), nil))
		require.NoError(t, err)
		second, err := reg.Create(NewState(roster("B"), nil))
		require.NoError(t, err)

		assert.Equal(t, "AAAAAA", first)
		assert.Equal(t, "BBBBBB", second)
		assert.Equal(t, 2, reg.Len())
	})

	t.Run("never hands out a live code twice", func(t *testing.T) {
		reg := NewRegistry(nil, time.Hour)

		var mu sync.Mutex
		seen := map[string]bool{}
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					code, err := reg.Create(NewState(roster("A"), nil))
					assert.NoError(t, err)
					mu.Lock()
					assert.False(t, seen[code], "duplicate code %s", code)
					seen[code] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 800, reg.Len())
	})
}

func TestRegistryExpiry(t *testing.T) {
	t.Run("rooms idle past the ttl disappear", func(t *testing.T) {
		clock := quartz.NewMock(t)
		reg := NewRegistry(clock, time.Hour)

		code, err := reg.Create(NewState(roster("A"), nil))
		require.NoError(t, err)

		clock.Advance(time.Hour)
		_, ok := reg.Get(code)
		assert.True(t, ok, "exactly ttl old is still live")

		clock.Advance(time.Second)
		_, ok = reg.Get(code)
		assert.False(t, ok)
	})

	t.Run("touch keeps a room alive", func(t *testing.T) {
		clock := quartz.NewMock(t)
		reg := NewRegistry(clock, time.Hour)

		code, err := reg.Create(NewState(roster("A"), nil))
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			clock.Advance(50 * time.Minute)
			reg.Touch(code)
		}

		_, ok := reg.Get(code)
		assert.True(t, ok)
	})

	t.Run("evict expired reports codes", func(t *testing.T) {
		clock := quartz.NewMock(t)
		reg := NewRegistry(clock, DefaultTTL)

		var evicted []string
		reg.OnEvict(func(code string) { evicted = append(evicted, code) })

		old, err := reg.Create(NewState(roster("A"), nil))
		require.NoError(t, err)
		clock.Advance(4 * time.Hour)
		fresh, err := reg.Create(NewState(roster("B"), nil))
		require.NoError(t, err)

		clock.Advance(3 * time.Hour)
		got := reg.EvictExpired(clock.Now())

		assert.Equal(t, []string{old}, got)
		assert.Equal(t, []string{old}, evicted)
		_, ok := reg.Get(fresh)
		assert.True(t, ok)
	})

	t.Run("sweeper evicts in the background", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		clock := quartz.NewMock(t)
		trap := clock.Trap().TickerFunc("registry", "sweep")
		defer trap.Close()

		reg := NewRegistry(clock, 30*time.Minute)
		evicted := make(chan string, 1)
		reg.OnEvict(func(code string) { evicted <- code })

		code, err := reg.Create(NewState(roster("A"), nil))
		require.NoError(t, err)

		sweepCtx, stop := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- reg.Sweep(sweepCtx, time.Hour) }()

		trap.MustWait(ctx).MustRelease(ctx)
		clock.Advance(time.Hour).MustWait(ctx)

		select {
		case got := <-evicted:
			assert.Equal(t, code, got)
		case <-ctx.Done():
			t.Fatal("room was not swept")
		}

		stop()
		require.NoError(t, <-done)
	})
}

func TestRegistryRemove(t *testing.T) {
	reg := NewRegistry(quartz.NewMock(t), time.Hour)

	code, err := reg.Create(NewState(roster("A"), nil))
	require.NoError(t, err)

	assert.True(t, reg.Remove(code))
	assert.False(t, reg.Remove(code))
	_, ok := reg.Get(code)
	assert.False(t, ok)

	reg.Touch(code)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, NewRegistry(nil, 0).TTL())
	assert.Equal(t, DefaultTTL, NewRegistry(nil, -time.Minute).TTL())
	assert.Equal(t, time.Hour, NewRegistry(quartz.NewMock(t), time.Hour).TTL())
}

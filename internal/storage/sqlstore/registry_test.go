package sqlstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leengari/tablestore/internal/domain/schema"
)

func TestHandleRegistryCollapsesMisses(t *testing.T) {
	var loads atomic.Int32
	r, err := newHandleRegistry(4, func(ctx context.Context, name string) (*schema.PhysicalTable, error) {
		loads.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &schema.PhysicalTable{Name: name}, nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := r.Get(context.Background(), "t")
			assert.NoError(t, err)
			assert.Equal(t, "t", p.Name)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	assert.True(t, r.Contains("t"))
}

func TestHandleRegistryDoesNotCacheFailures(t *testing.T) {
	var loads atomic.Int32
	r, err := newHandleRegistry(4, func(ctx context.Context, name string) (*schema.PhysicalTable, error) {
		loads.Add(1)
		return nil, errors.New("missing")
	})
	require.NoError(t, err)

	_, err = r.Get(context.Background(), "t")
	assert.Error(t, err)
	_, err = r.Get(context.Background(), "t")
	assert.Error(t, err)
	assert.Equal(t, int32(2), loads.Load())
}

func TestHandleRegistryEvictsAndForgets(t *testing.T) {
	r, err := newHandleRegistry(2, func(ctx context.Context, name string) (*schema.PhysicalTable, error) {
		return &schema.PhysicalTable{Name: name}, nil
	})
	require.NoError(t, err)

	r.Put(&schema.PhysicalTable{Name: "a"})
	r.Put(&schema.PhysicalTable{Name: "b"})
	r.Put(&schema.PhysicalTable{Name: "c"})
	assert.Equal(t, 2, r.Len())
	assert.False(t, r.Contains("a"))

	r.Forget("c")
	assert.False(t, r.Contains("c"))
	assert.Equal(t, 1, r.Len())
}

func TestNewHandleRegistryRejectsSize(t *testing.T) {
	_, err := newHandleRegistry(0, nil)
	assert.Error(t, err)
}

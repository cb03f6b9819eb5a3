package geocode

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shiva/backhaul/internal/model"
)

// fakeProvider counts calls and answers from a fixed table.
type fakeProvider struct {
	calls   atomic.Int32
	table   map[string]model.Coordinates
	err     error
	release chan struct{}
}

func (f *fakeProvider) Geocode(ctx context.Context, addr model.Address) (model.Coordinates, bool, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if err := ctx.Err(); err != nil {
		return model.Coordinates{}, false, err
	}
	if f.err != nil {
		return model.Coordinates{}, false, f.err
	}
	c, ok := f.table[Key(addr)]
	return c, ok, nil
}

var denver = model.Address{City: "Denver", State: "CO", Zip: "80202"}

func newProvider() *fakeProvider {
	return &fakeProvider{table: map[string]model.Coordinates{
		Key(denver): {Lat: 39.7392, Lng: -104.9903},
	}}
}

func TestKey_Normalizes(t *testing.T) {
	a := Key(model.Address{City: "  Salt   Lake City ", State: "ut", Zip: "84101-1234"})
	b := Key(model.Address{City: "salt lake city", State: "UT", Zip: "84101"})
	assert.Equal(t, a, b)
	assert.Equal(t, "salt lake city|UT|84101", a)
}

func TestCachedGeocoder_MemoizesHits(t *testing.T) {
	p := newProvider()
	c := NewCachedGeocoder(p, 16, time.Hour, nil, 0, zap.NewNop())

	for i := 0; i < 3; i++ {
		coords, found, err := c.Geocode(context.Background(), denver)
		require.NoError(t, err)
		assert.True(t, found)
		assert.InDelta(t, 39.7392, coords.Lat, 1e-9)
	}
	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCachedGeocoder_CachesMisses(t *testing.T) {
	p := newProvider()
	c := NewCachedGeocoder(p, 16, time.Hour, nil, 0, zap.NewNop())
	nowhere := model.Address{City: "Nowhere", State: "ZZ"}

	for i := 0; i < 2; i++ {
		_, found, err := c.Geocode(context.Background(), nowhere)
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestCachedGeocoder_DoesNotCacheErrors(t *testing.T) {
	p := newProvider()
	p.err = errors.New("quota exceeded")
	c := NewCachedGeocoder(p, 16, time.Hour, nil, 0, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, _, err := c.Geocode(context.Background(), denver)
		assert.Error(t, err)
	}
	assert.Equal(t, int32(2), p.calls.Load())
	assert.Zero(t, c.Len())
}

func TestCachedGeocoder_CollapsesConcurrentLookups(t *testing.T) {
	p := newProvider()
	p.release = make(chan struct{})
	c := NewCachedGeocoder(p, 16, time.Hour, nil, 0, zap.NewNop())

	const callers = 10
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, found, err := c.Geocode(context.Background(), denver)
			assert.NoError(t, err)
			assert.True(t, found)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(p.release)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
}

func TestCachedGeocoder_CancelledLeaderDoesNotFailWaiters(t *testing.T) {
	p := newProvider()
	p.release = make(chan struct{})
	c := NewCachedGeocoder(p, 16, time.Hour, nil, 0, zap.NewNop())

	leaderCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.Geocode(leaderCtx, denver)
	}()
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, time.Millisecond)

	go func() {
		defer wg.Done()
		_, found, err := c.Geocode(context.Background(), denver)
		assert.NoError(t, err)
		assert.True(t, found)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(p.release)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestEncodeDecodeEntry(t *testing.T) {
	e, err := decodeEntry(encodeEntry(entry{coords: model.Coordinates{Lat: 39.739200, Lng: -104.990300}, found: true}))
	require.NoError(t, err)
	assert.True(t, e.found)
	assert.InDelta(t, -104.9903, e.coords.Lng, 1e-9)

	miss, err := decodeEntry(encodeEntry(entry{}))
	require.NoError(t, err)
	assert.False(t, miss.found)

	_, err = decodeEntry("garbage")
	assert.Error(t, err)
}

func TestResolver_Geocode(t *testing.T) {
	p := newProvider()
	r := NewResolver(p, zap.NewNop())

	coords, ok := r.Geocode(context.Background(), denver)
	assert.True(t, ok)
	assert.InDelta(t, 39.7392, coords.Lat, 1e-9)

	_, ok = r.Geocode(context.Background(), model.Address{State: "CO"})
	assert.False(t, ok, "address without city or zip is not geocoded")
	assert.Equal(t, int32(1), p.calls.Load())

	p.err = errors.New("boom")
	_, ok = r.Geocode(context.Background(), denver)
	assert.False(t, ok, "provider errors collapse to not found")
}

func TestResolver_Distances(t *testing.T) {
	r := NewResolver(newProvider(), zap.NewNop())
	a := model.Coordinates{Lat: 39.7392, Lng: -104.9903}
	b := model.Coordinates{Lat: 38.8339, Lng: -104.8214}
	assert.InDelta(t, 63, r.Distance(a, b), 3)
	assert.InDelta(t, 0, r.AddedMiles(a, b, b), 1e-6)
}

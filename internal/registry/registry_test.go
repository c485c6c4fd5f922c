package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/parkgate/internal/model"
)

func zone(id string, visitors int) model.Zone {
	return model.Zone{
		ID:                      id,
		Name:                    "Zone " + id,
		CategoryID:              "cat_regular",
		TotalSlots:              10,
		Occupied:                10 - visitors,
		Free:                    visitors,
		AvailableForVisitors:    visitors,
		AvailableForSubscribers: visitors,
		RateNormal:              3,
		RateSpecial:             5,
		Open:                    true,
	}
}

func TestUpsert_AppendsUnknown(t *testing.T) {
	r := New[model.Zone]()
	r.Upsert(zone("a", 1))
	r.Upsert(zone("b", 2))

	ids := keys(r.List())
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, 2, r.Len())
}

func TestUpsert_Idempotent(t *testing.T) {
	once := New[model.Zone]()
	twice := New[model.Zone]()
	z := zone("a", 3)

	once.Upsert(z)
	twice.Upsert(z)
	twice.Upsert(z)

	assert.Equal(t, once.List(), twice.List())
}

func TestUpsert_LastWriteWins(t *testing.T) {
	r := New[model.Zone]()
	r.Upsert(zone("b", 9))
	r.Upsert(zone("a", 1))

	a := zone("a", 5)
	a.Name = "Alpha"
	a.SpecialActive = true
	b := zone("a", 0)
	b.Open = false
	b.Reserved = 4

	r.Upsert(a)
	r.Upsert(b)

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, b, got, "no hybrid of the two writes")
	assert.Equal(t, []string{"b", "a"}, keys(r.List()), "replacement keeps position")
}

func TestReplaceAll(t *testing.T) {
	r := New[model.Zone]()
	r.Upsert(zone("old", 1))

	r.ReplaceAll([]model.Zone{zone("x", 1), zone("y", 2)})

	_, ok := r.Get("old")
	assert.False(t, ok)
	assert.Equal(t, []string{"x", "y"}, keys(r.List()))
}

func TestReplaceAll_DuplicateKeys(t *testing.T) {
	r := New[model.Zone]()
	r.ReplaceAll([]model.Zone{zone("x", 1), zone("y", 2), zone("x", 7)})

	assert.Equal(t, []string{"x", "y"}, keys(r.List()))
	got, _ := r.Get("x")
	assert.Equal(t, 7, got.AvailableForVisitors)
}

func TestReplaceAll_DoesNotAliasInput(t *testing.T) {
	r := New[model.Zone]()
	in := []model.Zone{zone("x", 1)}
	r.ReplaceAll(in)
	in[0].AvailableForVisitors = 99

	got, _ := r.Get("x")
	assert.Equal(t, 1, got.AvailableForVisitors)
}

func TestList_ReturnsCopy(t *testing.T) {
	r := New[model.Zone]()
	r.Upsert(zone("a", 1))

	list := r.List()
	list[0].Open = false

	got, _ := r.Get("a")
	assert.True(t, got.Open)
}

func TestClear(t *testing.T) {
	r := New[model.Zone]()
	r.Upsert(zone("a", 1))
	r.Clear()

	assert.Zero(t, r.Len())
	_, ok := r.Get("a")
	assert.False(t, ok)

	r.Upsert(zone("b", 1))
	assert.Equal(t, []string{"b"}, keys(r.List()))
}

func TestVersion(t *testing.T) {
	r := New[model.Zone]()
	v0 := r.Version()
	r.Upsert(zone("a", 1))
	v1 := r.Version()
	r.ReplaceAll(nil)
	v2 := r.Version()

	assert.Greater(t, v1, v0)
	assert.Greater(t, v2, v1)
}

func TestWatch_Coalesces(t *testing.T) {
	r := New[model.Zone]()
	ch, cancel := r.Watch()
	defer cancel()

	for i := 0; i < 10; i++ {
		r.Upsert(zone("a", i))
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
	select {
	case <-ch:
		t.Fatal("burst should coalesce into one notification")
	default:
	}
}

func TestWatch_CancelClosesChannel(t *testing.T) {
	r := New[model.Zone]()
	ch, cancel := r.Watch()
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Mutations after cancel must not panic.
	r.Upsert(zone("a", 1))
}

func TestConcurrentUpserts(t *testing.T) {
	r := New[model.Zone]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Upsert(zone(fmt.Sprintf("z%d", i%5), i))
			_ = r.List()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, r.Len())
}

func TestParkingStateRegistry(t *testing.T) {
	r := New[model.ParkingState]()
	r.ReplaceAll([]model.ParkingState{{ID: "a", Open: true}, {ID: "b"}})
	r.Upsert(model.ParkingState{ID: "a", Open: false})

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.False(t, got.Open)
}

func keys[T Keyed](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key()
	}
	return out
}

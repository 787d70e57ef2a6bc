package search

import (
	"testing"
	"time"

	"github.com/abgdnv/partsfinder/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 40 * time.Millisecond

var seedStores = []model.StoreSummary{
	{ID: 1, Name: "Auto Parts Store 1", Rating: 4.5},
	{ID: 2, Name: "Speedy Auto Repairs", Rating: 3.9},
	{ID: 3, Name: "Parts and Service Hub", Rating: 4.7},
	{ID: 4, Name: "Engine Parts World", Rating: 4.2},
	{ID: 5, Name: "Quick Fix Auto Service", Rating: 4.3},
}

func seedDirectory() model.Directory {
	return model.Directory{
		Stores: seedStores,
		Products: []model.Listing{
			{Product: model.Product{ID: 1, Name: "Filter Oil", Price: decimal.RequireFromString("45.99"), InStock: true}, Store: seedStores[0]},
			{Product: model.Product{ID: 2, Name: "Filter Oil", Price: decimal.RequireFromString("12.50"), InStock: false}, Store: seedStores[1]},
			{Product: model.Product{ID: 3, Name: "Filter Oil", Price: decimal.RequireFromString("25.99"), InStock: true}, Store: seedStores[2]},
			{Product: model.Product{ID: 4, Name: "Brake Pads", Price: decimal.RequireFromString("30"), InStock: true}, Store: seedStores[3]},
		},
	}
}

func ratings(stores []model.StoreSummary) []float64 {
	out := make([]float64, len(stores))
	for i, s := range stores {
		out[i] = s.Rating
	}
	return out
}

// collector returns a listener and a channel receiving every delivered result.
func collector() (func(Result), chan Result) {
	ch := make(chan Result, 16)
	return func(r Result) { ch <- r }, ch
}

func receive(t *testing.T, ch chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(time.Second):
		require.FailNow(t, "no result delivered")
		return Result{}
	}
}

func assertSilent(t *testing.T, ch chan Result, wait time.Duration) {
	t.Helper()
	select {
	case r := <-ch:
		assert.Failf(t, "unexpected result", "%+v", r)
	case <-time.After(wait):
	}
}

func Test_ListStores(t *testing.T) {
	testCases := []struct {
		name     string
		stores   []model.StoreSummary
		order    SortOrder
		expected []float64
	}{
		{
			name:     "ascending",
			stores:   seedStores,
			order:    SortAscending,
			expected: []float64{3.9, 4.2, 4.3, 4.5, 4.7},
		},
		{
			name:     "descending",
			stores:   seedStores,
			order:    SortDescending,
			expected: []float64{4.7, 4.5, 4.3, 4.2, 3.9},
		},
		{
			name:     "low rating excluded",
			stores:   append([]model.StoreSummary{{ID: 9, Rating: 2.9}}, seedStores...),
			order:    SortAscending,
			expected: []float64{3.9, 4.2, 4.3, 4.5, 4.7},
		},
		{
			name:     "threshold is inclusive",
			stores:   []model.StoreSummary{{ID: 1, Rating: 3.0}, {ID: 2, Rating: 2.99}},
			order:    SortDescending,
			expected: []float64{3.0},
		},
		{
			name:     "nothing listed",
			stores:   []model.StoreSummary{{ID: 1, Rating: 1}},
			order:    SortAscending,
			expected: []float64{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			listed := ListStores(tc.stores, tc.order)

			// then
			assert.Equal(t, tc.expected, ratings(listed))
		})
	}
}

func Test_ListStores_StableTies(t *testing.T) {
	// given
	stores := []model.StoreSummary{
		{ID: 1, Rating: 4.0}, {ID: 2, Rating: 3.5}, {ID: 3, Rating: 4.0}, {ID: 4, Rating: 3.5}, {ID: 5, Rating: 4.0},
	}

	// when
	asc := ListStores(stores, SortAscending)
	desc := ListStores(stores, SortDescending)

	// then
	ids := func(list []model.StoreSummary) []int64 {
		out := make([]int64, len(list))
		for i, s := range list {
			out[i] = s.ID
		}
		return out
	}
	assert.Equal(t, []int64{2, 4, 1, 3, 5}, ids(asc))
	assert.Equal(t, []int64{1, 3, 5, 2, 4}, ids(desc))
}

func Test_Index_InitialListing(t *testing.T) {
	// when
	ix := NewIndex(seedDirectory(), WithDebounce(testDebounce))
	defer ix.Close()

	// then
	current := ix.Current()
	assert.Equal(t, ModeStores, current.Mode)
	assert.Equal(t, SortAscending, current.Order)
	assert.Equal(t, []float64{3.9, 4.2, 4.3, 4.5, 4.7}, ratings(current.Stores))
}

func Test_Index_DebounceEvaluatesOnlyLastQuery(t *testing.T) {
	// given
	listener, results := collector()
	ix := NewIndex(seedDirectory(), WithDebounce(testDebounce), WithListener(listener))
	defer ix.Close()

	// when
	ix.SubmitQuery("a")
	ix.SubmitQuery("ab")
	ix.SubmitQuery("abc")

	// then
	res := receive(t, results)
	assert.Equal(t, ModeProducts, res.Mode)
	assert.Equal(t, "abc", res.Query)
	assert.True(t, res.Empty())
	assertSilent(t, results, 3*testDebounce)
	assert.False(t, ix.Pending())
}

func Test_Index_NothingDeliveredBeforeQuietPeriod(t *testing.T) {
	// given
	listener, results := collector()
	ix := NewIndex(seedDirectory(), WithDebounce(200*time.Millisecond), WithListener(listener))
	defer ix.Close()

	// when
	ix.SubmitQuery("filter")

	// then
	assertSilent(t, results, 50*time.Millisecond)
	assert.True(t, ix.Pending())
	assert.Equal(t, ModeStores, ix.Current().Mode)
}

func Test_Index_ProductMatchIgnoresCaseAndAvailability(t *testing.T) {
	// given
	listener, results := collector()
	ix := NewIndex(seedDirectory(), WithDebounce(testDebounce), WithListener(listener))
	defer ix.Close()

	// when
	ix.SubmitQuery("Filter Oil")
	first := receive(t, results)
	ix.SubmitQuery("fILTER")
	second := receive(t, results)

	// then
	for _, res := range []Result{first, second} {
		require.Len(t, res.Products, 3)
		for _, p := range res.Products {
			assert.Equal(t, "Filter Oil", p.Name)
		}
	}
	assert.Equal(t, []int64{1, 2, 3}, []int64{first.Products[0].ID, first.Products[1].ID, first.Products[2].ID})
}

func Test_Index_EmptyQueryCancelsPendingAndListsStores(t *testing.T) {
	// given
	listener, results := collector()
	ix := NewIndex(seedDirectory(), WithDebounce(testDebounce), WithListener(listener))
	defer ix.Close()

	// when
	ix.SubmitQuery("brake")
	ix.SubmitQuery("")

	// then
	res := receive(t, results)
	assert.Equal(t, ModeStores, res.Mode)
	assert.Len(t, res.Stores, 5)
	assertSilent(t, results, 3*testDebounce)
}

func Test_Index_SortOrderAffectsOnlyStoreListing(t *testing.T) {
	// given
	listener, results := collector()
	ix := NewIndex(seedDirectory(), WithDebounce(testDebounce), WithListener(listener))
	defer ix.Close()

	// when
	ix.SetSortOrder(SortDescending)
	listing := receive(t, results)
	ix.SubmitQuery("brake")
	products := receive(t, results)
	ix.SetSortOrder(SortAscending)

	// then
	assert.Equal(t, []float64{4.7, 4.5, 4.3, 4.2, 3.9}, ratings(listing.Stores))
	require.Len(t, products.Products, 1)
	assertSilent(t, results, 2*testDebounce)
	assert.Equal(t, ModeProducts, ix.Current().Mode)

	ix.SubmitQuery("")
	back := receive(t, results)
	assert.Equal(t, []float64{3.9, 4.2, 4.3, 4.5, 4.7}, ratings(back.Stores))
}

func Test_Index_CloseCancelsPending(t *testing.T) {
	// given
	listener, results := collector()
	ix := NewIndex(seedDirectory(), WithDebounce(testDebounce), WithListener(listener))

	// when
	ix.SubmitQuery("filter")
	ix.Close()
	ix.SubmitQuery("brake")

	// then
	assertSilent(t, results, 3*testDebounce)
	assert.False(t, ix.Pending())
}

func Test_Index_SetWorkingSetRefreshesListing(t *testing.T) {
	// given
	listener, results := collector()
	ix := NewIndex(model.Directory{}, WithDebounce(testDebounce), WithListener(listener))
	defer ix.Close()
	assert.True(t, ix.Current().Empty())

	// when
	ix.SetWorkingSet(seedDirectory())

	// then
	res := receive(t, results)
	assert.False(t, res.Empty())
	assert.Len(t, res.Stores, 5)
}

func Test_ParseSortOrder(t *testing.T) {
	order, err := ParseSortOrder("desc")
	require.NoError(t, err)
	assert.Equal(t, SortDescending, order)

	_, err = ParseSortOrder("random")
	assert.Error(t, err)
}

package contract

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/example/restarate/loadgen/internal/api"
)

// Categories and pricing levels are read-only, so these scenarios purge
// nothing.
func referenceScenarios() []Scenario {
	return []Scenario{
		{Name: "categories/list", Run: categoriesList},
		{Name: "categories/get", Run: categoryGet},
		{Name: "categories/not-found", Run: categoryNotFound},
		{Name: "categories/invalid-id", Run: categoryInvalidID},
		{Name: "categories/structure", Run: categoryStructure},
		{Name: "pricing/list", Run: pricingList},
		{Name: "pricing/get", Run: pricingGet},
		{Name: "pricing/not-found", Run: pricingNotFound},
		{Name: "pricing/order", Run: pricingOrder},
		{Name: "pricing/id-formats", Run: pricingIDFormats},
	}
}

func categoriesList(ctx context.Context, t TestingT, a *api.API) {
	body := expect(ctx, t, a, api.ListCategories.With(), http.StatusOK).JSON()
	require.True(t, body.IsArray())
	if first := body.Get("0"); first.Exists() {
		assert.True(t, first.Get("id").Exists())
		assert.True(t, first.Get("name").Exists())
	}
}

func categoryGet(ctx context.Context, t TestingT, a *api.API) {
	resp := send(ctx, t, a, api.GetCategory.With(1))
	if resp.StatusCode == http.StatusNotFound {
		t.Skipf("category 1 does not exist")
	}
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Text())
	assert.Equal(t, int64(1), resp.Get("id").Int())
	assert.Equal(t, gjson.String, resp.Get("name").Type)
}

func categoryNotFound(ctx context.Context, t TestingT, a *api.API) {
	expect(ctx, t, a, api.GetCategory.With(99999), http.StatusNotFound)
}

func categoryInvalidID(ctx context.Context, t TestingT, a *api.API) {
	expect(ctx, t, a, api.GetCategory.With("invalid_id"), http.StatusBadRequest)
}

func categoryStructure(ctx context.Context, t TestingT, a *api.API) {
	body := expect(ctx, t, a, api.ListCategories.With(), http.StatusOK).JSON()
	for _, c := range body.Array() {
		fields := c.Map()
		assert.Len(t, fields, 2, "category %s", c.Raw)
		assert.Equal(t, gjson.Number, c.Get("id").Type)
		assert.Equal(t, gjson.String, c.Get("name").Type)
	}
}

func pricingList(ctx context.Context, t TestingT, a *api.API) {
	levels := expect(ctx, t, a, api.ListPricing.With(), http.StatusOK).JSON().Array()
	require.Len(t, levels, len(pricingLabels), "there must be exactly five pricing levels")
	for _, p := range levels {
		id := p.Get("id").Int()
		require.Contains(t, pricingLabels, id)
		assert.Equal(t, pricingLabels[id], p.Get("name").String())
	}
}

func pricingGet(ctx context.Context, t TestingT, a *api.API) {
	for id := int64(1); id <= 5; id++ {
		resp := expect(ctx, t, a, api.GetPricing.With(id), http.StatusOK)
		assert.Equal(t, id, resp.Get("id").Int())
		assert.Equal(t, pricingLabels[id], resp.Get("name").String())
	}
}

func pricingNotFound(ctx context.Context, t TestingT, a *api.API) {
	for _, id := range []int{0, 6, 999} {
		expect(ctx, t, a, api.GetPricing.With(id), http.StatusNotFound)
	}
}

func pricingOrder(ctx context.Context, t TestingT, a *api.API) {
	body := expect(ctx, t, a, api.ListPricing.With(), http.StatusOK).JSON()

	var ids []int64
	for _, id := range body.Get("#.id").Array() {
		ids = append(ids, id.Int())
	}
	var names []string
	for _, n := range body.Get("#.name").Array() {
		names = append(names, n.String())
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids, "pricing levels must be ordered by id")
	assert.Equal(t, []string{"$", "$$", "$$$", "$$$$", "$$$$$"}, names)
}

func pricingIDFormats(ctx context.Context, t TestingT, a *api.API) {
	cases := []struct {
		id   string
		want int
	}{
		{"invalid", http.StatusBadRequest},
		{"1.5", http.StatusBadRequest},
		{"-1", http.StatusBadRequest},
		{"0", http.StatusNotFound},
		{"6", http.StatusNotFound},
	}
	for _, tc := range cases {
		resp := send(ctx, t, a, api.GetPricing.With(tc.id))
		assert.Equal(t, tc.want, resp.StatusCode, "GET /pricing/%s", tc.id)
	}
}

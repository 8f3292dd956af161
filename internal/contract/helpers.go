package contract

import (
	"context"
	"maps"
	"net/http"

	"github.com/stretchr/testify/require"

	"github.com/example/restarate/loadgen/internal/api"
	"github.com/example/restarate/loadgen/internal/client"
)

type tHelper interface {
	Helper()
}

func helper(t TestingT) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
}

// send executes c; a transport failure fails the scenario.
func send(ctx context.Context, t TestingT, a *api.API, c api.Call) *client.Response {
	helper(t)
	resp, err := a.Send(ctx, c)
	require.NoError(t, err, c.Endpoint.Name())
	return resp
}

// expect executes c and requires one of codes.
func expect(ctx context.Context, t TestingT, a *api.API, c api.Call, codes ...int) *client.Response {
	helper(t)
	resp := send(ctx, t, a, c)
	require.Truef(t, resp.StatusIn(codes...), "%s: status %d, want %v: %s",
		c.Endpoint.Name(), resp.StatusCode, codes, resp.Text())
	return resp
}

// createdStatus is the documented answer to a successful create: 201 for
// reviews, 200 for everything else.
func createdStatus(ep api.Endpoint) int {
	if ep == api.CreateReview {
		return http.StatusCreated
	}
	return http.StatusOK
}

// create posts body to ep, requires the documented status and returns the
// id field of the created entity.
func create(ctx context.Context, t TestingT, a *api.API, ep api.Endpoint, body any, idField string) int64 {
	helper(t)
	resp := expect(ctx, t, a, ep.With().WithBody(body), createdStatus(ep))
	id := resp.Get(idField)
	require.Truef(t, id.Exists(), "%s: response has no %q: %s", ep.Name(), idField, resp.Text())
	return id.Int()
}

// with returns a copy of base with the given key/value pairs set.
func with(base map[string]any, kv ...any) map[string]any {
	out := maps.Clone(base)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

func testDish() map[string]any {
	return map[string]any{
		"name":        "Test Dish",
		"description": "Test Description",
		"releaseDate": "2023-01-01",
		"weight":      300,
		"pricing":     map[string]any{"id": 1},
		"categories":  []any{map[string]any{"id": 1}},
		"authors":     []any{map[string]any{"id": 1}},
	}
}

func testUser() map[string]any {
	return map[string]any{
		"email":    "user@example.com",
		"login":    "test_user",
		"name":     "Test User",
		"birthday": "1990-01-01",
	}
}

func testReview() map[string]any {
	return map[string]any{
		"content":    "Отличное блюдо!",
		"isPositive": true,
		"userId":     1,
		"dishId":     1,
	}
}

var pricingLabels = map[int64]string{1: "$", 2: "$$", 3: "$$$", 4: "$$$$", 5: "$$$$$"}

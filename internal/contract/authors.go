package contract

import (
	"context"
	"net/http"
	"strings"

	"github.com/stretchr/testify/assert"

	"github.com/example/restarate/loadgen/internal/api"
)

var authorResources = []api.Resource{api.Authors}

func authorScenarios() []Scenario {
	return []Scenario{
		{Name: "authors/create", Resources: authorResources, Run: authorCreate},
		{Name: "authors/list", Resources: authorResources, Run: authorList},
		{Name: "authors/get", Resources: authorResources, Run: authorGet},
		{Name: "authors/update", Resources: authorResources, Run: authorUpdate},
		{Name: "authors/delete", Resources: authorResources, Run: authorDelete},
		{Name: "authors/validation", Resources: authorResources, Run: authorValidation},
		{Name: "authors/not-found", Resources: authorResources, Run: authorNotFound},
		{Name: "authors/duplicate-names", Resources: authorResources, Run: authorDuplicateNames},
	}
}

func authorCreate(ctx context.Context, t TestingT, a *api.API) {
	resp := expect(ctx, t, a, api.CreateAuthor.With().WithBody(api.Author{Name: "Иван Петров"}), http.StatusOK)
	assert.True(t, resp.Get("id").Exists())
	assert.Equal(t, "Иван Петров", resp.Get("name").String())
}

func authorList(ctx context.Context, t TestingT, a *api.API) {
	for _, name := range []string{"Автор 1", "Автор 2", "Автор 3"} {
		create(ctx, t, a, api.CreateAuthor, api.Author{Name: name}, "id")
	}

	resp := expect(ctx, t, a, api.ListAuthors.With(), http.StatusOK)
	assert.Len(t, resp.JSON().Array(), 3)
}

func authorGet(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateAuthor, api.Author{Name: "Тестовый автор"}, "id")

	resp := expect(ctx, t, a, api.GetAuthor.With(id), http.StatusOK)
	assert.Equal(t, "Тестовый автор", resp.Get("name").String())
}

func authorUpdate(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateAuthor, api.Author{Name: "Старое имя"}, "id")

	resp := expect(ctx, t, a, api.UpdateAuthor.With().WithBody(api.Author{ID: id, Name: "Новое имя"}), http.StatusOK)
	assert.Equal(t, "Новое имя", resp.Get("name").String())
}

func authorDelete(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateAuthor, api.Author{Name: "Удаляемый автор"}, "id")

	expect(ctx, t, a, api.DeleteAuthor.With(id), http.StatusOK)
	expect(ctx, t, a, api.GetAuthor.With(id), http.StatusNotFound)
}

func authorValidation(ctx context.Context, t TestingT, a *api.API) {
	cases := []struct {
		name string
		body any
		want int
	}{
		{"empty name", map[string]any{"name": ""}, http.StatusBadRequest},
		{"blank name", map[string]any{"name": "   "}, http.StatusBadRequest},
		{"unknown field", map[string]any{"invalid": "field"}, http.StatusBadRequest},
		{"short name", map[string]any{"name": "A"}, http.StatusOK},
		{"long name", map[string]any{"name": strings.Repeat("X", 255)}, http.StatusOK},
	}
	for _, tc := range cases {
		resp := send(ctx, t, a, api.CreateAuthor.With().WithBody(tc.body))
		assert.Equal(t, tc.want, resp.StatusCode, "%s: %s", tc.name, resp.Text())
	}
}

func authorNotFound(ctx context.Context, t TestingT, a *api.API) {
	const missing = 999999
	expect(ctx, t, a, api.GetAuthor.With(missing), http.StatusNotFound)
	expect(ctx, t, a, api.DeleteAuthor.With(missing), http.StatusNotFound)
	expect(ctx, t, a, api.UpdateAuthor.With().WithBody(api.Author{ID: missing, Name: "Test"}), http.StatusNotFound)
}

func authorDuplicateNames(ctx context.Context, t TestingT, a *api.API) {
	create(ctx, t, a, api.CreateAuthor, api.Author{Name: "Уникальный автор"}, "id")
	expect(ctx, t, a, api.CreateAuthor.With().WithBody(api.Author{Name: "Уникальный автор"}), http.StatusOK)
}

package api

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// Coverage compares the endpoint catalog with an OpenAPI document.
type Coverage struct {
	Title   string
	Version string
	Covered []Endpoint
	Missing []Endpoint
}

// Complete reports whether every catalog endpoint is documented.
func (c Coverage) Complete() bool {
	return len(c.Missing) == 0
}

// CheckOpenAPIFile loads an OpenAPI 3 document from path and checks it
// against the catalog.
func CheckOpenAPIFile(ctx context.Context, path string) (Coverage, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return Coverage{}, fmt.Errorf("loading OpenAPI document: %w", err)
	}
	return CheckOpenAPI(doc, Catalog()), nil
}

// CheckOpenAPIData is CheckOpenAPIFile for an in-memory document.
func CheckOpenAPIData(ctx context.Context, data []byte) (Coverage, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return Coverage{}, fmt.Errorf("loading OpenAPI document: %w", err)
	}
	return CheckOpenAPI(doc, Catalog()), nil
}

// CheckOpenAPI reports which endpoints have a matching path and method in
// doc. Path parameter names do not need to match.
func CheckOpenAPI(doc *openapi3.T, endpoints []Endpoint) Coverage {
	cov := Coverage{}
	if doc.Info != nil {
		cov.Title = doc.Info.Title
		cov.Version = doc.Info.Version
	}

	for _, ep := range endpoints {
		var item *openapi3.PathItem
		if doc.Paths != nil {
			item = doc.Paths.Find(ep.Path)
		}
		if item != nil && item.GetOperation(ep.Method) != nil {
			cov.Covered = append(cov.Covered, ep)
			continue
		}
		cov.Missing = append(cov.Missing, ep)
	}
	return cov
}

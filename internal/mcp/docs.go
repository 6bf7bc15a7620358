package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/sitesearch/internal/domain/filter"
)

const serverInstructions = `sitesearch searches a hosted content index and narrows results with per-session facet filters.

Workflow:
1) search(query) returns results already filtered by this session's general filters (time range and safe search).
2) Narrow or widen: update_filter(key, value), set_custom_range(from, to), remove_filter(key), clear_filters().
   Filters persist for the session; call search again to see their effect.
3) suggest(query) completes partially typed queries (two characters minimum).
4) get_filters(variant) shows current values and the accepted values of each facet.

Filter semantics:
- timeRange: Any time, Past hour, Past 24 hours, Past week, Past month (30 days), Past year (365 days), Custom range.
- safeSearch: Strict keeps results scored 0.9 or higher, Moderate (default) 0.5, Off keeps everything.
- Results without a timestamp or safety score are never filtered out.
- clear_filters only resets the general filters; image, video and news filters keep their values.

Resources:
- sitesearch://facets (facet catalog and defaults per result type)
`

const facetsURI = "sitesearch://facets"

type facetCatalog struct {
	Variant  filter.Variant      `json:"variant"`
	Values   map[string][]string `json:"values"`
	Defaults map[string]string   `json:"defaults"`
}

func facetsDocument() ([]byte, error) {
	catalog := make([]facetCatalog, 0, len(filter.Variants))
	for _, v := range filter.Variants {
		catalog = append(catalog, facetCatalog{Variant: v, Values: filter.Catalog(v), Defaults: filter.Defaults(v)})
	}
	return json.MarshalIndent(catalog, "", "  ")
}

func registerResources(server *sdkmcp.Server) {
	server.AddResource(&sdkmcp.Resource{
		URI:         facetsURI,
		Name:        "facets",
		Title:       "Facet catalog",
		Description: "Accepted values and defaults of every facet, per result type.",
		MIMEType:    "application/json",
	}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		data, err := facetsDocument()
		if err != nil {
			return nil, fmt.Errorf("encode facets: %w", err)
		}
		return &sdkmcp.ReadResourceResult{
			Contents: []*sdkmcp.ResourceContents{{
				URI:      facetsURI,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	})
}

package transport

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rpggio/sitesearch/internal/domain/filter"
)

var validate = validator.New()

const (
	defaultInteractionLimit = 50
	maxInteractionLimit     = 200
)

// searchParams are the filter inputs accepted alongside a query. Facet
// values are passed through unchecked; only the custom range must be well
// formed.
type searchParams struct {
	Query      string
	TimeRange  string
	SafeSearch string
	From       *time.Time `validate:"required_with=To"`
	To         *time.Time `validate:"required_with=From"`
}

func parseSearchParams(q url.Values) (searchParams, error) {
	p := searchParams{
		Query:      q.Get("q"),
		TimeRange:  q.Get("timeRange"),
		SafeSearch: q.Get("safeSearch"),
	}

	var err error
	if p.From, err = parseBound(q.Get("from")); err != nil {
		return searchParams{}, fmt.Errorf("from: %w", err)
	}
	if p.To, err = parseBound(q.Get("to")); err != nil {
		return searchParams{}, fmt.Errorf("to: %w", err)
	}
	if err := validate.Struct(p); err != nil {
		return searchParams{}, fmt.Errorf("from and to must be given together")
	}
	return p, nil
}

// store builds the session's filter state from the request.
func (p searchParams) store() *filter.Store {
	store := filter.NewStore()
	if p.TimeRange != "" {
		_ = store.UpdateFilter(filter.VariantAll, filter.KeyTimeRange, p.TimeRange)
	}
	if p.SafeSearch != "" {
		_ = store.UpdateFilter(filter.VariantAll, filter.KeySafeSearch, p.SafeSearch)
	}
	if p.From != nil && p.To != nil {
		_ = store.SetCustomRange(filter.VariantAll, *p.From, *p.To)
	}
	return store
}

func parseBound(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := filter.ParseBound(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type pageParams struct {
	Limit  int `validate:"min=1,max=200"`
	Offset int `validate:"min=0"`
}

func parsePageParams(q url.Values) (pageParams, error) {
	p := pageParams{Limit: defaultInteractionLimit}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return pageParams{}, fmt.Errorf("invalid limit %q", s)
		}
		p.Limit = n
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return pageParams{}, fmt.Errorf("invalid offset %q", s)
		}
		p.Offset = n
	}
	if err := validate.Struct(p); err != nil {
		return pageParams{}, fmt.Errorf("limit must be 1-%d and offset non-negative", maxInteractionLimit)
	}
	return p, nil
}

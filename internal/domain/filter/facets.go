package filter

// Variant names one of the per-result-type filter records.
type Variant string

const (
	VariantAll    Variant = "all"
	VariantImages Variant = "images"
	VariantVideos Variant = "videos"
	VariantNews   Variant = "news"
)

// Variants lists every filter record a store holds.
var Variants = []Variant{VariantAll, VariantImages, VariantVideos, VariantNews}

// Facet keys.
const (
	KeyTimeRange   = "timeRange"
	KeySafeSearch  = "safeSearch"
	KeySize        = "size"
	KeyColor       = "color"
	KeyType        = "type"
	KeyUsageRights = "usageRights"
	KeyDuration    = "duration"
	KeyQuality     = "quality"
	KeySourceType  = "sourceType"
)

// Time range tokens.
const (
	TimeAny         = "Any time"
	TimePastHour    = "Past hour"
	TimePast24Hours = "Past 24 hours"
	TimePastWeek    = "Past week"
	TimePastMonth   = "Past month"
	TimePastYear    = "Past year"
	TimeCustom      = "Custom range"
)

// Safe search levels.
const (
	SafeStrict   = "Strict"
	SafeModerate = "Moderate"
	SafeOff      = "Off"
)

var genericFacets = map[string][]string{
	KeyTimeRange:  {TimeAny, TimePastHour, TimePast24Hours, TimePastWeek, TimePastMonth, TimePastYear, TimeCustom},
	KeySafeSearch: {SafeStrict, SafeModerate, SafeOff},
}

var variantFacets = map[Variant]map[string][]string{
	VariantAll: {},
	VariantImages: {
		KeySize:        {"Any size", "Large", "Medium", "Icon"},
		KeyColor:       {"Any color", "Color", "Black and white", "Transparent"},
		KeyType:        {"Any type", "Photo", "Clip art", "Line drawing", "Animated"},
		KeyUsageRights: {"All", "Creative Commons licenses", "Commercial and other licenses"},
	},
	VariantVideos: {
		KeyDuration: {"Any duration", "Short (< 4 min)", "Medium (4-20 min)", "Long (> 20 min)"},
		KeyQuality:  {"Any quality", "High definition"},
	},
	VariantNews: {
		KeySourceType: {"All sources", "Blogs", "News outlets", "Press releases"},
	},
}

// Catalog returns the valid values of every facet of a variant, generic
// facets included. Values outside the catalog are still accepted by a Store.
func Catalog(v Variant) map[string][]string {
	own, ok := variantFacets[v]
	if !ok {
		return nil
	}
	out := make(map[string][]string, len(genericFacets)+len(own))
	for key, values := range genericFacets {
		out[key] = append([]string(nil), values...)
	}
	for key, values := range own {
		out[key] = append([]string(nil), values...)
	}
	return out
}

// Defaults returns the default facet values of a variant. The first value of
// each enumeration is the default, except safe search which defaults to
// Moderate.
func Defaults(v Variant) map[string]string {
	catalog := Catalog(v)
	if catalog == nil {
		return nil
	}
	out := make(map[string]string, len(catalog))
	for key, values := range catalog {
		out[key] = values[0]
	}
	out[KeySafeSearch] = SafeModerate
	return out
}

func knownVariant(v Variant) bool {
	_, ok := variantFacets[v]
	return ok
}

// ParseVariant converts a variant name. An empty name selects the generic
// record.
func ParseVariant(name string) (Variant, error) {
	if name == "" {
		return VariantAll, nil
	}
	v := Variant(name)
	if !knownVariant(v) {
		return "", ErrUnknownVariant
	}
	return v, nil
}

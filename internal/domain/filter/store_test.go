package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore_Defaults(t *testing.T) {
	store := NewStore()
	require.False(t, store.HasActiveFilters())

	generic := store.Generic()
	require.Equal(t, TimeAny, generic.TimeRange())
	require.Equal(t, SafeModerate, generic.SafeSearch())

	images, err := store.Filters(VariantImages)
	require.NoError(t, err)
	require.Equal(t, "Any size", images.Get(KeySize))
	require.Equal(t, TimeAny, images.TimeRange())
}

func TestStore_UpdateFilter(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.UpdateFilter(VariantAll, KeyTimeRange, TimePastWeek))
	require.True(t, store.HasActiveFilters())

	require.NoError(t, store.UpdateFilter(VariantVideos, KeyQuality, "High definition"))
	videos, err := store.Filters(VariantVideos)
	require.NoError(t, err)
	require.Equal(t, "High definition", videos.Get(KeyQuality))
	require.Equal(t, "Any duration", videos.Get(KeyDuration))

	// Values outside the catalog are accepted.
	require.NoError(t, store.UpdateFilter(VariantNews, KeySourceType, "Carrier pigeon"))
	news, err := store.Filters(VariantNews)
	require.NoError(t, err)
	require.Equal(t, "Carrier pigeon", news.Get(KeySourceType))
}

func TestStore_UnknownVariant(t *testing.T) {
	store := NewStore()
	require.ErrorIs(t, store.UpdateFilter("maps", KeySize, "Large"), ErrUnknownVariant)
	require.ErrorIs(t, store.SetCustomRange("maps", time.Now(), time.Now()), ErrUnknownVariant)
	_, err := store.Filters("maps")
	require.ErrorIs(t, err, ErrUnknownVariant)
}

func TestStore_ClearAllFiltersOnlyResetsGeneric(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.UpdateFilter(VariantAll, KeyTimeRange, TimePastHour))
	require.NoError(t, store.UpdateFilter(VariantAll, KeySafeSearch, SafeStrict))
	require.NoError(t, store.UpdateFilter(VariantImages, KeyColor, "Transparent"))

	store.ClearAllFilters()

	require.False(t, store.HasActiveFilters())
	images, err := store.Filters(VariantImages)
	require.NoError(t, err)
	require.Equal(t, "Transparent", images.Get(KeyColor))
}

func TestStore_RemoveFilter(t *testing.T) {
	store := NewStore()
	now := time.Now()
	require.NoError(t, store.SetCustomRange(VariantAll, now.Add(-48*time.Hour), now))
	require.NoError(t, store.UpdateFilter(VariantAll, KeySafeSearch, SafeOff))

	store.RemoveFilter(KeyTimeRange)
	generic := store.Generic()
	require.Equal(t, TimeAny, generic.TimeRange())
	require.Nil(t, generic.Custom)
	require.True(t, store.HasActiveFilters())

	store.RemoveFilter("color")
	require.Equal(t, SafeOff, store.Generic().SafeSearch())

	store.RemoveFilter(KeySafeSearch)
	require.False(t, store.HasActiveFilters())
}

func TestStore_SingleTimeRangeRepresentation(t *testing.T) {
	store := NewStore()
	now := time.Now()

	require.NoError(t, store.SetCustomRange(VariantAll, now.Add(-time.Hour), now))
	generic := store.Generic()
	require.Equal(t, TimeCustom, generic.TimeRange())
	require.NotNil(t, generic.Custom)

	require.NoError(t, store.UpdateFilter(VariantAll, KeyTimeRange, TimePastYear))
	generic = store.Generic()
	require.Equal(t, TimePastYear, generic.TimeRange())
	require.Nil(t, generic.Custom)
}

func TestStore_FiltersReturnsCopy(t *testing.T) {
	store := NewStore()
	rec := store.Generic()
	rec.Facets[KeyTimeRange] = TimePastHour

	require.Equal(t, TimeAny, store.Generic().TimeRange())
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("")
	require.NoError(t, err)
	require.Equal(t, VariantAll, v)

	v, err = ParseVariant("videos")
	require.NoError(t, err)
	require.Equal(t, VariantVideos, v)

	_, err = ParseVariant("maps")
	require.ErrorIs(t, err, ErrUnknownVariant)
}

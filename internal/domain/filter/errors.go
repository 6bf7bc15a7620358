package filter

import "errors"

// ErrUnknownVariant indicates a filter record name outside all/images/videos/news.
var ErrUnknownVariant = errors.New("unknown filter variant")

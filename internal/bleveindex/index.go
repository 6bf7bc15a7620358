// Package bleveindex is an in-process search index backed by bleve. It serves
// the same queries as the hosted index so the service runs without one.
package bleveindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevesearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/rpggio/sitesearch/internal/domain/search"
	"github.com/samber/lo"
)

const (
	docType        = "entry"
	defaultPerPage = 50

	fieldURL         = "url"
	fieldName        = "name"
	fieldDescription = "description"
	fieldPayload     = "payload"
)

// Index implements search.Index over a bleve index.
type Index struct {
	idx     bleve.Index
	perPage int
	logger  *slog.Logger
}

// Open opens the index at path, creating it when missing. An empty path
// creates a memory-only index.
func Open(path string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var (
		idx bleve.Index
		err error
	)
	switch {
	case path == "":
		idx, err = bleve.NewMemOnly(newMapping())
	default:
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			logger.Info("creating bleve index", "path", path)
			idx, err = bleve.New(path, newMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}

	return &Index{idx: idx, perPage: defaultPerPage, logger: logger}, nil
}

func newMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	entryMapping := bleve.NewDocumentMapping()

	urlField := bleve.NewTextFieldMapping()
	urlField.Analyzer = keyword.Name
	urlField.Store = false
	entryMapping.AddFieldMappingsAt(fieldURL, urlField)

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	nameField.Store = true
	entryMapping.AddFieldMappingsAt(fieldName, nameField)

	descField := bleve.NewTextFieldMapping()
	descField.Analyzer = standard.Name
	descField.Store = false
	entryMapping.AddFieldMappingsAt(fieldDescription, descField)

	// The full entry rides along unindexed so hits decode without a second lookup.
	payloadField := bleve.NewTextFieldMapping()
	payloadField.Index = false
	payloadField.Store = true
	payloadField.IncludeInAll = false
	entryMapping.AddFieldMappingsAt(fieldPayload, payloadField)

	indexMapping.AddDocumentMapping(docType, entryMapping)
	indexMapping.DefaultType = docType
	return indexMapping
}

// Put indexes entries keyed by URL, replacing existing documents.
func (i *Index) Put(entries ...search.Entry) error {
	batch := i.idx.NewBatch()
	for _, entry := range entries {
		if entry.URL == "" {
			return fmt.Errorf("%w: entry url is required", search.ErrInvalidInput)
		}
		payload, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode entry %s: %w", entry.URL, err)
		}
		doc := map[string]any{
			fieldURL:         entry.URL,
			fieldName:        entry.Name,
			fieldDescription: entry.Description,
			fieldPayload:     string(payload),
		}
		if err := batch.Index(entry.URL, doc); err != nil {
			return fmt.Errorf("index entry %s: %w", entry.URL, err)
		}
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}
	return nil
}

// Delete removes an entry by URL.
func (i *Index) Delete(url string) error {
	if err := i.idx.Delete(url); err != nil {
		return fmt.Errorf("delete entry %s: %w", url, err)
	}
	return nil
}

// Count reports the number of indexed entries.
func (i *Index) Count() (uint64, error) {
	return i.idx.DocCount()
}

// Close releases the index.
func (i *Index) Close() error {
	return i.idx.Close()
}

// Search matches the query against names and descriptions, names weighted higher.
func (i *Index) Search(ctx context.Context, q string) (*search.IndexResult, error) {
	byName := bleve.NewMatchQuery(q)
	byName.SetField(fieldName)
	byName.SetBoost(2)
	byDescription := bleve.NewMatchQuery(q)
	byDescription.SetField(fieldDescription)

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(byName, byDescription), i.perPage, 0, false)
	req.Fields = []string{fieldPayload}

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	entries := make([]search.Entry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		raw, ok := hit.Fields[fieldPayload].(string)
		if !ok {
			i.logger.Warn("hit without payload", "id", hit.ID)
			continue
		}
		var entry search.Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", hit.ID, err)
		}
		entries = append(entries, entry)
	}

	return &search.IndexResult{
		Entries:     entries,
		Found:       int(res.Total),
		TimeTakenMs: res.Took.Milliseconds(),
	}, nil
}

// Suggest completes the last word of the query against entry names.
func (i *Index) Suggest(ctx context.Context, q string, limit int) ([]search.Suggestion, error) {
	words := strings.Fields(strings.ToLower(q))
	if len(words) == 0 {
		return []search.Suggestion{}, nil
	}

	last := bleve.NewPrefixQuery(words[len(words)-1])
	last.SetField(fieldName)
	clauses := []query.Query{last}
	for _, word := range words[:len(words)-1] {
		term := bleve.NewMatchQuery(word)
		term.SetField(fieldName)
		clauses = append(clauses, term)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(clauses...), limit, 0, false)
	req.Fields = []string{fieldName}

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve suggest: %w", err)
	}

	return lo.Map(res.Hits, func(hit *blevesearch.DocumentMatch, _ int) search.Suggestion {
		title, _ := hit.Fields[fieldName].(string)
		return search.Suggestion{ID: hit.ID, Title: title}
	}), nil
}

package analytics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/sitesearch/internal/domain/analytics"
	"github.com/rpggio/sitesearch/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsService_LogInteraction(t *testing.T) {
	repo := &mocks.InteractionRepository{}
	repo.On("Log", mock.Anything, mock.MatchedBy(func(in *analytics.Interaction) bool {
		return in.SearchID == "s1" && in.Query == "zimbabwe" && !in.CreatedAt.IsZero() && len(in.Results) == 2
	})).Return(nil).Once()

	svc := analytics.NewService(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	svc.LogInteraction(ctx, analytics.Interaction{
		SearchID: "s1",
		Query:    "zimbabwe",
		Results:  analytics.RankedResults([]string{"https://a", "https://b"}),
	})
	// Request cancellation must not abort the background write.
	cancel()
	svc.Wait()

	repo.AssertExpectations(t)
}

func TestAnalyticsService_LogInteractionSwallowsErrors(t *testing.T) {
	repo := &mocks.InteractionRepository{}
	repo.On("Log", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	svc := analytics.NewService(repo, nil)
	require.NotPanics(t, func() {
		svc.LogInteraction(context.Background(), analytics.Interaction{SearchID: "s1"})
		svc.Wait()
	})
	repo.AssertExpectations(t)
}

func TestAnalyticsService_RecordRequiresSearchID(t *testing.T) {
	repo := &mocks.InteractionRepository{}
	svc := analytics.NewService(repo, nil)

	err := svc.Record(context.Background(), &analytics.Interaction{Query: "q"})
	require.ErrorIs(t, err, analytics.ErrInvalidInput)
	repo.AssertNotCalled(t, "Log", mock.Anything, mock.Anything)
}

func TestAnalyticsService_List(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.InteractionRepository{}
	opts := analytics.ListOptions{Limit: 10}
	repo.On("List", ctx, opts).Return([]analytics.Interaction{{SearchID: "s1"}}, nil)

	svc := analytics.NewService(repo, nil)
	list, err := svc.ListInteractions(ctx, opts)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestRankedResults(t *testing.T) {
	ranked := analytics.RankedResults([]string{"x", "y", "z"})
	require.Equal(t, []analytics.RankedResult{
		{Position: 1, URL: "x"},
		{Position: 2, URL: "y"},
		{Position: 3, URL: "z"},
	}, ranked)
}

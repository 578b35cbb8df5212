package comparison

import (
	"context"
	"fmt"
	"sort"
)

// DefaultListLimit applies when ListOptions.Limit is not positive.
const DefaultListLimit = 50

// ListOptions contains options for listing comparisons.
type ListOptions struct {
	Limit int
	// Cursor is the ID of the last item of the previous page.
	Cursor string
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// ListResult contains one page of comparisons, newest first.
type ListResult struct {
	Items      []*SavedComparison
	NextCursor string
}

// Repository defines the interface for saved comparison persistence.
// Saved comparisons are immutable, so there is no update.
type Repository interface {
	// Create stores a new comparison. An empty c.Name is replaced by
	// AutoName(count+1), counted atomically with the insert.
	Create(ctx context.Context, c *SavedComparison) error

	// Get retrieves a comparison by ID.
	// Returns ErrComparisonNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*SavedComparison, error)

	// List retrieves comparisons newest first with cursor pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Count returns the number of stored comparisons.
	Count(ctx context.Context) (int, error)

	// Delete removes a comparison by ID.
	// Returns ErrComparisonNotFound if it doesn't exist.
	Delete(ctx context.Context, id string) error
}

// AutoName is the name given to the nth stored comparison when none was chosen.
func AutoName(n int) string {
	return fmt.Sprintf("Comparison %d", n)
}

// sortNewestFirst orders by creation time descending, then ID descending.
func sortNewestFirst(items []*SavedComparison) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
}

// page trims a limit+1 fetch into a result with a next cursor.
func page(items []*SavedComparison, limit int) *ListResult {
	result := &ListResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.NextCursor = items[limit-1].ID
	}
	if result.Items == nil {
		result.Items = []*SavedComparison{}
	}
	return result
}

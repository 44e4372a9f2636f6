package words

import "context"

// Provider returns up to count candidate secret words for a category,
// excluding any word in exclude. Returning fewer than count is not an error.
type Provider interface {
	Words(ctx context.Context, category string, exclude []string, count int) ([]string, error)
}

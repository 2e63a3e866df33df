package ports

import "context"

// FeedSource supplies the raw JSON feed used when an import request carries no body.
type FeedSource interface {
	Load(ctx context.Context) ([]byte, error)
}

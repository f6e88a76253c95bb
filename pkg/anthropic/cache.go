package anthropic

import (
	"context"

	"github.com/rotisserie/eris"
)

// CachedSystem returns a single system block with a cache breakpoint.
// An empty ttl uses the API default of five minutes.
func CachedSystem(text, ttl string) []SystemBlock {
	return []SystemBlock{{Text: text, CacheControl: &CacheControl{TTL: ttl}}}
}

// Prime sends one request sequentially so that later concurrent requests
// sharing the same cached system prompt read from a warm cache.
func Prime(ctx context.Context, client Client, req MessageRequest) (*MessageResponse, error) {
	resp, err := client.CreateMessage(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: primer request")
	}
	return resp, nil
}

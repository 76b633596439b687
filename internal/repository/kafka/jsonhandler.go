package kafka

import (
	"context"
	"encoding/json"
	"fmt"
)

// JSONHandler decodes each value into a fresh T. Undecodable values are
// skipped.
func JSONHandler[T any](handle func(context.Context, []byte, T) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		var v T
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("%w: decode: %v", ErrSkip, err)
		}
		return handle(ctx, key, v)
	}
}

package feed

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dejobratic/orderdesk/internal/orders/domain"
)

// Decode parses a JSON array of feed records. Unknown fields are ignored.
func Decode(payload []byte) ([]domain.FeedRecord, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty feed", domain.ErrMalformedInput)
	}

	var records []domain.FeedRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: decode feed: %v", domain.ErrMalformedInput, err)
	}

	if records == nil {
		records = []domain.FeedRecord{}
	}
	return records, nil
}

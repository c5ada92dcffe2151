package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"ammEngine/internal/model"
)

// WriterSink writes window metrics as JSON lines.
type WriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

func (s *WriterSink) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range metrics {
		if err := s.enc.Encode(m); err != nil {
			return fmt.Errorf("encode window metrics: %w", err)
		}
	}
	return nil
}

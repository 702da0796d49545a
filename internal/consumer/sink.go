package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/Wenjie0329/email-pitch-tool/internal/dto"
)

const (
	KindOpen  = "open"
	KindClick = "click"
)

type openLine struct {
	Kind string `json:"kind"`
	dto.OpenRecord
}

type clickLine struct {
	Kind string `json:"kind"`
	dto.ClickRecord
}

// JSONLinesSink writes one JSON object per event, opens before clicks
type JSONLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(w)}
}

func (s *JSONLinesSink) Write(ctx context.Context, batch Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range batch.Opens {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.enc.Encode(openLine{Kind: KindOpen, OpenRecord: o}); err != nil {
			return fmt.Errorf("failed to write open %d: %w", o.ID, err)
		}
	}
	for _, c := range batch.Clicks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.enc.Encode(clickLine{Kind: KindClick, ClickRecord: c}); err != nil {
			return fmt.Errorf("failed to write click %d: %w", c.ID, err)
		}
	}
	return nil
}

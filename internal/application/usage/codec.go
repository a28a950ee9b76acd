package usage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ai-content-platform/internal/domain"
	"github.com/ai-content-platform/internal/pkg/validate"
)

// decodeStats parses and validates a stored blob. Anything that is not a
// well-formed stats document is reported as domain.ErrCorruptStats.
func decodeStats(raw string) (*domain.UsageStats, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	var s domain.UsageStats
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptStats, err)
	}
	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptStats, err)
	}
	if s.Daily == nil {
		s.Daily = make(map[string]domain.Counts)
	}
	if s.Monthly == nil {
		s.Monthly = make(map[string]domain.Counts)
	}
	return &s, nil
}

func encodeStats(s *domain.UsageStats) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode usage stats: %w", err)
	}
	return string(b), nil
}

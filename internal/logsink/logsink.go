// Package logsink adapts result.Sink onto structured logging backends.
package logsink

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hypatia-of-sva/pagealloc/internal/result"
)

// logrusSink reports every engine event as one structured logrus entry,
// tagged with the owning arena's identity so entries from multiple
// allocators interleave cleanly in a shared log stream.
type logrusSink struct {
	logger  *logrus.Logger
	arenaID uuid.UUID
}

// NewLogrus adapts logger onto result.Sink. *_ERROR events log at
// WarnLevel, NOTE at DebugLevel, and every other *_SUCCESS event at
// InfoLevel. Every entry carries the arena's id and event code as fields.
func NewLogrus(logger *logrus.Logger, arenaID uuid.UUID) result.Sink {
	return &logrusSink{logger: logger, arenaID: arenaID}
}

func (s *logrusSink) Log(code result.EventCode, msg string) {
	entry := s.logger.WithFields(logrus.Fields{
		"arena_id": s.arenaID.String(),
		"event":    code.String(),
	})
	switch {
	case code.IsError():
		entry.Warn(msg)
	case code == result.EventNote:
		entry.Debug(msg)
	default:
		entry.Info(msg)
	}
}

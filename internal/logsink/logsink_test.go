package logsink_test

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypatia-of-sva/pagealloc/internal/logsink"
	"github.com/hypatia-of-sva/pagealloc/internal/result"
)

func newLogger(buf *bytes.Buffer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}

func TestErrorEventsLogAtWarn(t *testing.T) {
	var buf bytes.Buffer
	id := uuid.New()
	sink := logsink.NewLogrus(newLogger(&buf), id)

	sink.Log(result.EventAllocError, "boom")

	require.Contains(t, buf.String(), `"level":"warning"`)
	assert.Contains(t, buf.String(), id.String())
	assert.Contains(t, buf.String(), "alloc_error")
}

func TestSuccessEventsLogAtInfo(t *testing.T) {
	var buf bytes.Buffer
	sink := logsink.NewLogrus(newLogger(&buf), uuid.New())

	sink.Log(result.EventAllocSuccess, "ok")

	assert.Contains(t, buf.String(), `"level":"info"`)
}

func TestNoteEventsLogAtDebug(t *testing.T) {
	var buf bytes.Buffer
	sink := logsink.NewLogrus(newLogger(&buf), uuid.New())

	sink.Log(result.EventNote, "fyi")

	assert.Contains(t, buf.String(), `"level":"debug"`)
}

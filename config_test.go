package pagealloc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypatia-of-sva/pagealloc"
)

func TestLoadConfigParsesAndValidates(t *testing.T) {
	yaml := `
page_size: 128
initial_pages: 8
track_allocations: true
metrics_namespace: myarena
use_mmap: false
`
	cfg, err := pagealloc.LoadConfig(strings.NewReader(yaml))
	require.NoError(t, err)
	assert.Equal(t, uint32(128), cfg.PageSize)
	assert.Equal(t, uint32(8), cfg.InitialPages)
	assert.True(t, cfg.TrackAllocations)
	assert.Equal(t, "myarena", cfg.MetricsNamespace)
}

func TestLoadConfigRejectsBadPageSize(t *testing.T) {
	yaml := `
page_size: 100
initial_pages: 8
`
	_, err := pagealloc.LoadConfig(strings.NewReader(yaml))
	require.Error(t, err)
	assert.ErrorIs(t, err, pagealloc.ErrInvalidParameter)
}

func TestLoadConfigRejectsBadInitialPages(t *testing.T) {
	yaml := `
page_size: 64
initial_pages: 5
`
	_, err := pagealloc.LoadConfig(strings.NewReader(yaml))
	require.Error(t, err)
	assert.ErrorIs(t, err, pagealloc.ErrInvalidParameter)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	_, err := pagealloc.LoadConfig(strings.NewReader("not: [valid"))
	require.Error(t, err)
	assert.ErrorIs(t, err, pagealloc.ErrInvalidParameter)
}

func TestConfigValidateRejectsZeroValues(t *testing.T) {
	err := pagealloc.Config{}.Validate()
	assert.ErrorIs(t, err, pagealloc.ErrInvalidParameter)
}

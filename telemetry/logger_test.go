package telemetry

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo_EmitsServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo("tagsense", &buf)

	logger.Info().Str("region", "us-east-1").Msg("scan complete")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tagsense", entry["service"])
	assert.Equal(t, "us-east-1", entry["region"])
	assert.Equal(t, "scan complete", entry["message"])
}

func TestMetricsInstrumentsInitialized(t *testing.T) {
	// Counters bind to the global delegate even before a provider is
	// installed; they must never be nil.
	assert.NotNil(t, ResourcesScanned)
	assert.NotNil(t, TagsApplied)
	assert.NotNil(t, RollbacksRun)
	assert.NotNil(t, CacheHits)
	assert.NotNil(t, CacheMisses)
	assert.NotNil(t, ProviderFallbacks)
	assert.NotNil(t, ScanDuration)
}

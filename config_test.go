package aisbridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeTempConfig(t *testing.T, body string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	path := writeTempConfig(t, `
api_key: secret
stream_url: wss://example.invalid/stream
bounding_box:
  north: 49.0
  south: 47.0
  east: -122.0
  west: -124.0
network:
  enable_stream: true
  enable_datagram: false
  stream:
    host: 0.0.0.0
    port: 2000
    max_connections: 32
`)
	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, defaultStatisticsIntervalSeconds, cfg.Logging.StatisticsIntervalSeconds)
	assert.Equal(t, "secret", cfg.APIKey)
}

func TestLoadRejectsInvertedBoundingBox(t *testing.T) {
	path := writeTempConfig(t, `
stream_url: wss://example.invalid/stream
bounding_box:
  north: 40.0
  south: 45.0
network:
  enable_stream: true
  stream:
    port: 2000
    max_connections: 1
`)
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestLoadRejectsNoEnabledSink(t *testing.T) {
	path := writeTempConfig(t, `
stream_url: wss://example.invalid/stream
bounding_box:
  north: 10
  south: 1
`)
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestBoundingBoxSubscriptionJSONOrder(t *testing.T) {
	b := BoundingBox{North: 49, South: 47, East: -122, West: -124}
	got := b.SubscriptionJSON()
	assert.Equal(t, [2][2]float64{{47, -124}, {49, -122}}, got)
}

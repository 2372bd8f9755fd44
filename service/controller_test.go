package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tidewatch/aisbridge"
)

func testConfig() aisbridge.Config {
	cfg := aisbridge.Config{
		APIKey:    "key",
		StreamURL: "wss://example.invalid/stream",
		BoundingBox: aisbridge.BoundingBox{
			North: 49, South: 47, East: -122, West: -124,
		},
	}
	cfg.Network.EnableStream = false
	cfg.Network.EnableDatagram = false
	cfg.Logging.StatisticsIntervalSeconds = 1
	return cfg
}

func TestControllerRunStopsOnContextCancel(t *testing.T) {
	c := New(testConfig(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestControllerRouteSkipsUnencodableRecords(t *testing.T) {
	c := New(testConfig(), nil)
	before := c.Stats().Snapshot().Errors
	c.route(aisbridge.VesselRecord{}) // zero MMSI, unencodable
	after := c.Stats().Snapshot().Errors
	assert.Greater(t, after, before)
}

// Package service ties the upstream client, the broadcast server, and the
// datagram emitter together: it owns their lifecycle, routes decoded records
// through the encoder to both sinks, and reports periodic statistics.
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/tidewatch/aisbridge"
	"github.com/tidewatch/aisbridge/broadcast"
	"github.com/tidewatch/aisbridge/datagram"
	"github.com/tidewatch/aisbridge/stream"
)

// drainCeiling bounds how long Run waits for in-flight broadcasts to finish
// once its context is cancelled.
const drainCeiling = 2 * time.Second

// replaceBoundingBoxGrace is how long ReplaceBoundingBox waits after
// stopping the stream client before restarting it with the new filter.
const replaceBoundingBoxGrace = 1 * time.Second

// Controller owns the lifecycle and shared state for the upstream client and
// both broadcast sinks (component C7). It holds no package-level mutable
// state: every lifecycle call routes through this value.
type Controller struct {
	logger *log.Logger
	stats  *aisbridge.Stats

	cfg atomic.Pointer[aisbridge.Config]

	broadcastServer *broadcast.Server
	datagramEmitter *datagram.Emitter

	streamMu     sync.Mutex
	streamClient *stream.Client
	streamCancel context.CancelFunc
	streamDone   chan struct{}

	baseCtx context.Context
}

// New builds a Controller from a validated configuration. It does not start
// anything; call Run to do that.
func New(cfg aisbridge.Config, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	c := &Controller{
		logger: logger,
		stats:  aisbridge.NewStats(),
	}
	c.cfg.Store(&cfg)
	return c
}

// Stats exposes the controller's statistics counters for tests and status
// queries.
func (c *Controller) Stats() *aisbridge.Stats {
	return c.stats
}

func (c *Controller) config() aisbridge.Config {
	return *c.cfg.Load()
}

// Run starts the enabled sinks and the upstream client, routes every decoded
// record through the encoder to both sinks, and blocks until ctx is
// cancelled. On cancellation it stops the upstream client immediately and
// gives in-flight broadcasts up to drainCeiling to finish before returning.
func (c *Controller) Run(ctx context.Context) error {
	c.baseCtx = ctx
	cfg := c.config()

	if cfg.Network.EnableStream {
		c.broadcastServer = broadcast.New(broadcast.Config{
			Host:           cfg.Network.Stream.Host,
			Port:           cfg.Network.Stream.Port,
			MaxConnections: cfg.Network.Stream.MaxConnections,
			Logger:         c.logger,
			Stats:          c.stats,
		})
		if !c.broadcastServer.Start(ctx) {
			c.broadcastServer = nil
		}
	}

	if cfg.Network.EnableDatagram {
		c.datagramEmitter = datagram.New(datagram.Config{
			Host:   cfg.Network.Datagram.Host,
			Port:   cfg.Network.Datagram.Port,
			Logger: c.logger,
		})
		if !c.datagramEmitter.Start() {
			c.datagramEmitter = nil
		}
	}

	c.startStreamClient(cfg)

	statsInterval := time.Duration(cfg.Logging.StatisticsIntervalSeconds) * time.Second
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.drain()
			return nil
		case <-ticker.C:
			c.logStats()
		case record, ok := <-c.currentRecords():
			if !ok {
				continue
			}
			c.route(record)
		}
	}
}

// currentRecords returns the active stream client's records channel, or a
// nil channel (which blocks forever in a select) if no client is running.
func (c *Controller) currentRecords() <-chan aisbridge.VesselRecord {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	if c.streamClient == nil {
		return nil
	}
	return c.streamClient.Records()
}

func (c *Controller) startStreamClient(cfg aisbridge.Config) {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()

	streamCtx, cancel := context.WithCancel(c.baseCtx)
	client := stream.New(stream.Config{
		URL:         cfg.StreamURL,
		APIKey:      cfg.APIKey,
		BoundingBox: cfg.BoundingBox,
		Logger:      c.logger,
		Stats:       c.stats,
	})

	c.streamClient = client
	c.streamCancel = cancel
	c.streamDone = make(chan struct{})

	go func() {
		client.Start(streamCtx)
		close(c.streamDone)
	}()
}

// ReplaceBoundingBox stops the running stream client, waits a short grace
// period, and restarts it with the new geographic filter. Only the stream
// client is affected; the broadcast sinks keep running throughout.
func (c *Controller) ReplaceBoundingBox(bbox aisbridge.BoundingBox) {
	cfg := c.config()
	cfg.BoundingBox = bbox
	c.cfg.Store(&cfg)

	c.streamMu.Lock()
	cancel := c.streamCancel
	done := c.streamDone
	c.streamMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	time.Sleep(replaceBoundingBoxGrace)
	c.startStreamClient(cfg)
}

// route encodes one record and fans the resulting sentences out to both
// sinks concurrently, appending CRLF exactly once per sentence.
func (c *Controller) route(record aisbridge.VesselRecord) {
	sentences, err := aisbridge.Encode(record)
	if err != nil {
		c.stats.IncErrors()
		c.logger.Debug("record not encodable", "err", err, "mmsi", record.MMSI)
		return
	}
	c.stats.IncConverted(record.Kind)

	for _, s := range sentences {
		line := s.Render() + "\r\n"

		var wg sync.WaitGroup
		if c.broadcastServer != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.broadcastServer.Broadcast([]byte(line))
			}()
		}
		if c.datagramEmitter != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.datagramEmitter.Emit([]byte(line))
			}()
		}
		wg.Wait()
	}
}

func (c *Controller) drain() {
	c.streamMu.Lock()
	cancel := c.streamCancel
	c.streamMu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		if c.broadcastServer != nil {
			c.broadcastServer.Stop()
		}
		if c.datagramEmitter != nil {
			c.datagramEmitter.Stop()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainCeiling):
		c.logger.Warn("drain ceiling reached, forcing shutdown")
	}
}

func (c *Controller) logStats() {
	snap := c.stats.Snapshot()
	kinds := lo.Keys(snap.ByKind)
	sort.Strings(kinds)
	summary := make([]string, 0, len(kinds))
	for _, k := range kinds {
		summary = append(summary, fmt.Sprintf("%s=%d", k, snap.ByKind[k]))
	}
	c.logger.Info("statistics summary",
		"received", snap.Received,
		"converted", snap.Converted,
		"broadcast", snap.Broadcast,
		"errors", snap.Errors,
		"uptime", snap.Uptime.Round(time.Second),
		"byKind", summary,
	)
}

package database

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// PoolStatsSink receives periodic pool gauges (metrics.Metrics implements it)
type PoolStatsSink interface {
	SetPoolStats(total, idle, acquired int32)
}

// Close closes all pool connections
func (db *PostgresDB) Close() {
	if db.Pool == nil {
		return
	}
	db.Pool.Close()
	log.Info().Msg("[DATABASE] Connection pool closed")
}

// MonitorPoolHealth publishes pool gauges every interval and warns when the
// pool is close to exhaustion. Blocks until ctx is done.
func (db *PostgresDB) MonitorPoolHealth(ctx context.Context, interval time.Duration, sink PoolStatsSink) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if db.Pool == nil {
				continue
			}
			stats := db.Pool.Stat()
			if sink != nil {
				sink.SetPoolStats(stats.TotalConns(), stats.IdleConns(), stats.AcquiredConns())
			}

			if stats.MaxConns() > 0 {
				utilization := float64(stats.AcquiredConns()) / float64(stats.MaxConns()) * 100
				if utilization > 80 {
					log.Warn().
						Float64("utilization_pct", utilization).
						Int32("acquired", stats.AcquiredConns()).
						Int32("max", stats.MaxConns()).
						Msg("[MONITOR] High pool utilization")
				}
			}

			if n := stats.AcquireCount(); n > 0 {
				avg := stats.AcquireDuration() / time.Duration(n)
				if avg > 100*time.Millisecond {
					log.Warn().Dur("avg_acquire", avg).Msg("[MONITOR] High acquire latency")
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

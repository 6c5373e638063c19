package sched

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/manojnerkar/viep/internal/infra/metrics"
)

// PoolStats publishes pgx pool gauges.
func PoolStats(pool *pgxpool.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		st := pool.Stat()
		metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		return nil
	}
}

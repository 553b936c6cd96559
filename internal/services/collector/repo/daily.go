package repo

import (
	"context"

	perr "msgstats/internal/platform/errors"
	"msgstats/internal/platform/store"
	"msgstats/internal/services/collector/domain"
)

// DailyTable is the clickhouse rollup table
const DailyTable = "daily_message_stats"

// CHDaily writes daily rollups to ClickHouse
type CHDaily struct{ ch store.Clickhouse }

// NewCHDaily returns a sink over ch; a nil ch yields a nil sink
func NewCHDaily(ch store.Clickhouse) domain.DailySink {
	if ch == nil {
		return nil
	}
	return &CHDaily{ch: ch}
}

// WriteDaily inserts rows in table column order
func (d *CHDaily) WriteDaily(ctx context.Context, rows []domain.DailyRow) error {
	if len(rows) == 0 {
		return nil
	}
	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		data = append(data, []any{
			r.GuildID, r.ChannelID, r.UserID, r.Day, uint32(r.Messages), r.CollectedAt.UTC(),
		})
	}
	if err := d.ch.Insert(ctx, DailyTable, data); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "write %d daily rows", len(rows))
	}
	return nil
}

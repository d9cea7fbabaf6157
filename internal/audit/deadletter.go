package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LogDeadLetter writes lost entries to the error log
type LogDeadLetter struct {
	log *zap.Logger
}

func NewLogDeadLetter(log *zap.Logger) *LogDeadLetter {
	return &LogDeadLetter{log: log}
}

func (d *LogDeadLetter) Send(_ context.Context, e Entry, reason error) {
	payload, _ := json.Marshal(e)
	d.log.Error("audit entry dead-lettered",
		zap.String("table", e.Table),
		zap.String("record_id", e.RecordID),
		zap.String("operation", string(e.Operation)),
		zap.ByteString("entry", payload),
		zap.Error(reason),
	)
}

const defaultDeadLetterMaxLen = 100000

// RedisDeadLetter appends lost entries to a capped Redis stream so they can
// be replayed. If Redis is unavailable too, the entry falls back to the log.
type RedisDeadLetter struct {
	client   *redis.Client
	stream   string
	maxLen   int64
	fallback *LogDeadLetter
}

func NewRedisDeadLetter(client *redis.Client, stream string, log *zap.Logger) *RedisDeadLetter {
	if stream == "" {
		stream = "audit:dead_letter"
	}
	return &RedisDeadLetter{
		client:   client,
		stream:   stream,
		maxLen:   defaultDeadLetterMaxLen,
		fallback: NewLogDeadLetter(log),
	}
}

func (d *RedisDeadLetter) Send(ctx context.Context, e Entry, reason error) {
	payload, err := json.Marshal(e)
	if err != nil {
		d.fallback.Send(ctx, e, reason)
		return
	}
	reasonText := ""
	if reason != nil {
		reasonText = reason.Error()
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err = d.client.XAdd(ctx, &redis.XAddArgs{
		Stream: d.stream,
		MaxLen: d.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"table_name": e.Table,
			"record_id":  e.RecordID,
			"operation":  string(e.Operation),
			"reason":     reasonText,
			"entry":      string(payload),
		},
	}).Err()
	if err != nil {
		d.fallback.Send(ctx, e, reason)
	}
}

// Replay re-submits up to count dead-lettered entries to rec and removes the
// ones that were accepted. Replay stops at the first entry rec cannot queue;
// that entry stays in the stream. Messages that do not decode are removed.
// It returns how many entries were re-queued.
func (d *RedisDeadLetter) Replay(ctx context.Context, rec *Recorder, count int64) (int, error) {
	msgs, err := d.client.XRangeN(ctx, d.stream, "-", "+", count).Result()
	if err != nil {
		return 0, err
	}
	replayed := 0
	for _, msg := range msgs {
		raw, _ := msg.Values["entry"].(string)
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			d.fallback.log.Warn("dropping undecodable audit dead letter",
				zap.String("stream", d.stream),
				zap.String("id", msg.ID),
				zap.String("entry", raw),
				zap.Error(err),
			)
			if err := d.client.XDel(ctx, d.stream, msg.ID).Err(); err != nil {
				return replayed, err
			}
			continue
		}
		if err := rec.offer(e); err != nil {
			break
		}
		if err := d.client.XDel(ctx, d.stream, msg.ID).Err(); err != nil {
			return replayed, err
		}
		replayed++
	}
	return replayed, nil
}

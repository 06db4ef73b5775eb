package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chainboard/chainboard/internal/config"
	"github.com/chainboard/chainboard/internal/model"
)

// Metrics counts recorder activity since start.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
	Dropped   int64
}

// activityRow is the table representation of one activity item.
type activityRow struct {
	ID         string
	Kind       string
	Summary    string
	Actor      string
	TxHash     string
	OccurredMs int64
	RecordedAt int64
}

// Recorder consumes activity items and writes them to the activity table in
// batches.
type Recorder struct {
	cfg    config.RecorderConfig
	logger *slog.Logger

	input chan model.ActivityItem
	db    *pgxpool.Pool

	// Batching
	batch       []activityRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// New creates a Recorder writing to the given pool.
func New(cfg config.RecorderConfig, db *pgxpool.Pool, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan model.ActivityItem, cfg.BufferSize),
		batch:  make([]activityRow, 0, cfg.BatchSize),
	}
}

// Record enqueues one item. Returns false and drops the item if the buffer is
// full; the recorder never applies backpressure to the event channel.
func (r *Recorder) Record(item model.ActivityItem) bool {
	select {
	case r.input <- item:
		return true
	default:
		r.batchMu.Lock()
		r.metrics.Dropped++
		r.batchMu.Unlock()
		r.logger.Warn("recorder buffer full, dropping item", "id", item.ID)
		return false
	}
}

// Start begins consuming items and writing to the database.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	r.wg.Add(1)
	go r.consumeLoop()

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("activity recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the recorder, flushing whatever is batched.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping activity recorder")

	if r.cancel != nil {
		r.cancel()
	}
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("activity recorder stopped")
	case <-ctx.Done():
		r.logger.Warn("activity recorder stop timed out")
	}

	r.flush()

	return nil
}

// Stats returns current metrics.
func (r *Recorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

// consumeLoop reads items and accumulates batches. On shutdown it drains
// whatever Record already accepted, so the final flush persists everything.
func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			r.drain()
			return
		case item := <-r.input:
			r.handleItem(item)
		}
	}
}

// drain moves queued items into the batch without blocking.
func (r *Recorder) drain() {
	for {
		select {
		case item := <-r.input:
			r.handleItem(item)
		default:
			return
		}
	}
}

// flushLoop periodically flushes the batch.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush()
		}
	}
}

// handleItem transforms and adds an item to the batch.
func (r *Recorder) handleItem(item model.ActivityItem) {
	row := r.transform(item)

	r.batchMu.Lock()
	r.batch = append(r.batch, row)
	shouldFlush := len(r.batch) >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if shouldFlush {
		r.flush()
	}
}

// transform converts an ActivityItem to an activityRow.
func (r *Recorder) transform(item model.ActivityItem) activityRow {
	return activityRow{
		ID:         item.ID,
		Kind:       item.Kind,
		Summary:    item.Summary,
		Actor:      item.Actor,
		TxHash:     item.TxHash,
		OccurredMs: item.OccurredMs,
		RecordedAt: time.Now().UnixMilli(),
	}
}

// flush writes the current batch to the database.
func (r *Recorder) flush() {
	r.batchMu.Lock()
	if len(r.batch) == 0 {
		r.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := r.batch
	r.batch = make([]activityRow, 0, r.cfg.BatchSize)
	r.batchMu.Unlock()

	start := time.Now()

	conflicts, err := r.batchInsert(batch)
	if err != nil {
		r.logger.Error("batch insert failed", "error", err, "count", len(batch))
		r.batchMu.Lock()
		r.metrics.Errors++
		r.batchMu.Unlock()
		return
	}

	r.batchMu.Lock()
	r.metrics.Inserts += int64(len(batch) - conflicts)
	r.metrics.Conflicts += int64(conflicts)
	r.metrics.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed activity",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (r *Recorder) batchInsert(rows []activityRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO activity (id, kind, summary, actor, tx_hash, occurred_ms, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`, row.ID, row.Kind, row.Summary, row.Actor, row.TxHash, row.OccurredMs, row.RecordedAt)
	}

	results := r.db.SendBatch(context.Background(), batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}

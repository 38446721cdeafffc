// Package sink persists the output of a harvest run: the snapshot document,
// the per-run log, the database upsert, and the optional remote copy and run
// announcement.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/janseva-labs/schemeharvest/internal/database"
	"github.com/janseva-labs/schemeharvest/internal/harvest"
	"github.com/janseva-labs/schemeharvest/internal/publisher"
	"github.com/janseva-labs/schemeharvest/internal/storage"
)

// SnapshotName is the filename of the cumulative snapshot in the output
// directory, overwritten on each run.
const SnapshotName = "snapshot.json"

// RunEventTopic is the topic run-completed events are published to.
const RunEventTopic = "harvest-runs"

// Snapshot is the document written to snapshot.json.
type Snapshot struct {
	Schemes []harvest.SchemeRecord `json:"schemes"`
	Meta    SnapshotMeta           `json:"meta"`
}

// SnapshotMeta summarizes the snapshot contents.
type SnapshotMeta struct {
	TotalSchemes     int              `json:"totalSchemes"`
	UniqueRegions    int              `json:"uniqueRegions"`
	UniqueCategories int              `json:"uniqueCategories"`
	LastUpdated      time.Time        `json:"lastUpdated"`
	Stats            harvest.RunStats `json:"stats"`
}

// runLog is the per-run diagnostic document.
type runLog struct {
	RunID      string                      `json:"runId"`
	StartedAt  time.Time                   `json:"startedAt"`
	FinishedAt time.Time                   `json:"finishedAt"`
	Stats      harvest.RunStats            `json:"stats"`
	Duplicates map[harvest.CanonicalKey]int `json:"duplicates,omitempty"`
	Failures   []harvest.FailureEntry      `json:"errors,omitempty"`
}

// RunEvent is the payload published after a committed run.
type RunEvent struct {
	RunID         string    `json:"runId"`
	FinishedAt    time.Time `json:"finishedAt"`
	UniqueRecords int       `json:"uniqueRecords"`
	SnapshotURI   string    `json:"snapshotUri,omitempty"`
}

// Sink commits run results to every configured destination.
type Sink struct {
	outputDir string
	db        database.Provider
	blobs     storage.Provider
	events    publisher.Provider
	logger    *zap.Logger
}

// New builds a Sink. The output directory is created eagerly so a bad path
// fails before the run starts.
func New(
	outputDir string,
	db database.Provider,
	blobs storage.Provider,
	events publisher.Provider,
	logger *zap.Logger,
) (*Sink, error) {
	if err := os.MkdirAll(filepath.Join(outputDir, "runs"), 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", outputDir, err)
	}
	return &Sink{
		outputDir: outputDir,
		db:        db,
		blobs:     blobs,
		events:    events,
		logger:    logger,
	}, nil
}

// Commit persists the run. Destinations fail independently: a database outage
// does not block the snapshot and vice versa. Commit returns an error only
// when nothing at all could be persisted.
func (s *Sink) Commit(ctx context.Context, result harvest.RunResult) error {
	persisted := 0
	var lastErr error

	if err := s.writeRunLog(result); err != nil {
		s.logger.Error("run log write failed", zap.Error(err))
		lastErr = err
	} else {
		persisted++
	}

	snapshotData, err := s.writeSnapshot(result)
	if err != nil {
		s.logger.Error("snapshot write failed", zap.Error(err))
		lastErr = err
	} else {
		persisted++
	}

	if err := s.upsert(ctx, result.Records); err != nil {
		s.logger.Error("database upsert failed", zap.Error(err))
		lastErr = err
	} else {
		persisted++
	}

	snapshotURI := ""
	if snapshotData != nil {
		objectName := SnapshotObjectName(result)
		uri, err := s.blobs.Save(ctx, objectName, snapshotData)
		if err != nil {
			s.logger.Warn("snapshot upload failed", zap.Error(err))
		} else if uri != "" {
			snapshotURI = uri
			s.logger.Info("snapshot uploaded", zap.String("uri", uri))
		}
	}

	if persisted == 0 {
		return fmt.Errorf("no destination accepted the run: %w", lastErr)
	}

	event := RunEvent{
		RunID:         result.RunID,
		FinishedAt:    result.FinishedAt,
		UniqueRecords: result.Stats.UniqueRecords,
		SnapshotURI:   snapshotURI,
	}
	if _, err := s.events.Publish(ctx, RunEventTopic, event); err != nil {
		s.logger.Warn("run event publish failed", zap.Error(err))
	}
	return nil
}

// SnapshotObjectName returns the versioned remote object name for a run's
// snapshot, keyed by finish date and run ID so uploads never overwrite.
func SnapshotObjectName(result harvest.RunResult) string {
	return fmt.Sprintf("snapshots/%s/%s.json",
		result.FinishedAt.UTC().Format("2006-01-02"), result.RunID)
}

// writeRunLog writes the per-run diagnostic file under runs/.
func (s *Sink) writeRunLog(result harvest.RunResult) error {
	log := runLog{
		RunID:      result.RunID,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Stats:      result.Stats,
		Duplicates: result.Duplicates,
		Failures:   result.Failures,
	}
	payload, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run log: %w", err)
	}
	name := fmt.Sprintf("%s_%s.json", result.StartedAt.UTC().Format("20060102T150405Z"), result.RunID)
	path := filepath.Join(s.outputDir, "runs", name)
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write run log %s: %w", path, err)
	}
	return nil
}

// writeSnapshot writes snapshot.json and returns its bytes for the blob
// upload.
func (s *Sink) writeSnapshot(result harvest.RunResult) ([]byte, error) {
	records := make([]harvest.SchemeRecord, len(result.Records))
	copy(records, result.Records)
	sort.Slice(records, func(i, j int) bool {
		if records[i].Region != records[j].Region {
			return records[i].Region < records[j].Region
		}
		return records[i].Name < records[j].Name
	})

	snapshot := Snapshot{
		Schemes: records,
		Meta: SnapshotMeta{
			TotalSchemes:     len(records),
			UniqueRegions:    countDistinct(records, func(r harvest.SchemeRecord) string { return r.Region }),
			UniqueCategories: countDistinct(records, func(r harvest.SchemeRecord) string { return r.Category }),
			LastUpdated:      result.FinishedAt,
			Stats:            result.Stats,
		},
	}
	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	path := filepath.Join(s.outputDir, SnapshotName)
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return nil, fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return payload, nil
}

// upsertBatchSize bounds how many records one database call carries.
const upsertBatchSize = 50

// upsert writes the records in bounded batches. A failed batch is retried
// once, then degraded to per-record writes, so one poison record cannot sink
// anything beyond its own batch.
func (s *Sink) upsert(ctx context.Context, records []harvest.SchemeRecord) error {
	if len(records) == 0 {
		return nil
	}
	saved := 0
	var lastErr error
	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		saved += s.upsertBatch(ctx, records[start:end], &lastErr)
	}
	if saved == 0 {
		return fmt.Errorf("upsert: %w", lastErr)
	}
	if saved < len(records) {
		s.logger.Info("records upserted with fallbacks",
			zap.Int("saved", saved), zap.Int("total", len(records)))
		return nil
	}
	s.logger.Info("records upserted", zap.Int("count", saved))
	return nil
}

func (s *Sink) upsertBatch(ctx context.Context, batch []harvest.SchemeRecord, lastErr *error) int {
	written, err := s.db.UpsertSchemes(ctx, batch)
	if err != nil {
		s.logger.Warn("batch upsert failed, retrying",
			zap.Int("size", len(batch)), zap.Error(err))
		written, err = s.db.UpsertSchemes(ctx, batch)
	}
	if err == nil {
		return written
	}
	*lastErr = err
	s.logger.Warn("batch upsert failed after retry, falling back per record",
		zap.Int("size", len(batch)), zap.Error(err))

	saved := 0
	for _, rec := range batch {
		if uerr := s.db.UpsertScheme(ctx, rec); uerr != nil {
			s.logger.Warn("record upsert failed",
				zap.String("name", rec.Name), zap.String("region", rec.Region), zap.Error(uerr))
			continue
		}
		saved++
	}
	return saved
}

func countDistinct(records []harvest.SchemeRecord, key func(harvest.SchemeRecord) string) int {
	set := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if k := key(rec); k != "" {
			set[k] = struct{}{}
		}
	}
	return len(set)
}

package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// ArchiveImpl implements domain.Archiver by reading a finished run from the
// domain stores, serializing its artifacts to JSON/JSONL, and uploading them
// to object storage under runs/{id}/.
//
// Layout:
//
//	runs/{id}/run.json     - the run record
//	runs/{id}/fills.jsonl  - every fill, one JSON object per line
//	runs/{id}/equity.jsonl - the equity curve, one point per line
type ArchiveImpl struct {
	writer domain.BlobWriter
	runs   domain.RunStore
	fills  domain.FillStore
	equity domain.EquityStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, runs domain.RunStore, fills domain.FillStore, equity domain.EquityStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		runs:   runs,
		fills:  fills,
		equity: equity,
	}
}

// ArchiveRun uploads the run record, fills, and equity curve for runID and
// returns the number of records written. Archiving an unfinished run is an
// error; the primary store keeps the data either way.
func (a *ArchiveImpl) ArchiveRun(ctx context.Context, runID string) (int64, error) {
	run, err := a.runs.GetByID(ctx, runID)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive run query: %w", err)
	}
	if run.Status == domain.RunStatusRunning {
		return 0, fmt.Errorf("s3blob: archive run %s: run still in progress", runID)
	}

	runJSON, err := json.Marshal(run)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive run marshal: %w", err)
	}
	if err := a.writer.Put(ctx, runPath(runID), bytes.NewReader(runJSON), "application/json"); err != nil {
		return 0, fmt.Errorf("s3blob: archive run upload: %w", err)
	}
	count := int64(1)

	fills, err := a.fills.ListByRun(ctx, runID, domain.ListOpts{})
	if err != nil {
		return count, fmt.Errorf("s3blob: archive fills query: %w", err)
	}
	if len(fills) > 0 {
		buf, err := marshalJSONL(fills)
		if err != nil {
			return count, fmt.Errorf("s3blob: archive fills marshal: %w", err)
		}
		if err := a.writer.Put(ctx, fillsPath(runID), bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return count, fmt.Errorf("s3blob: archive fills upload: %w", err)
		}
		count += int64(len(fills))
	}

	points, err := a.equity.ListByRun(ctx, runID)
	if err != nil {
		return count, fmt.Errorf("s3blob: archive equity query: %w", err)
	}
	if len(points) > 0 {
		buf, err := marshalJSONL(points)
		if err != nil {
			return count, fmt.Errorf("s3blob: archive equity marshal: %w", err)
		}
		if err := a.writer.Put(ctx, equityPath(runID), bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return count, fmt.Errorf("s3blob: archive equity upload: %w", err)
		}
		count += int64(len(points))
	}

	return count, nil
}

func runPath(runID string) string    { return "runs/" + runID + "/run.json" }
func fillsPath(runID string) string  { return "runs/" + runID + "/fills.jsonl" }
func equityPath(runID string) string { return "runs/" + runID + "/equity.jsonl" }

// marshalJSONL serialises a slice of values as newline-delimited JSON.
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)

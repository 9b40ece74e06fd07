package collection

import (
	"context"
	"errors"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/repository/document"
)

// Recorder counts dispatched operations by kind and status.
type Recorder interface {
	RecordOutcome(kind, status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordOutcome(string, string) {}

// Dispatcher submits scripts to the store and maps store results to outcomes.
// It never retries.
type Dispatcher struct {
	executor document.ScriptExecutor
	logger   logger.Logger
	recorder Recorder
}

// NewDispatcher creates a dispatcher. A nil log discards output and a nil
// recorder disables counting.
func NewDispatcher(executor document.ScriptExecutor, log logger.Logger, recorder Recorder) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Dispatcher{executor: executor, logger: log, recorder: recorder}
}

// Dispatch runs script against the document op.ParentKey() in index.
func (d *Dispatcher) Dispatch(ctx context.Context, index string, op Operation, script document.Script) Outcome {
	out := Outcome{Kind: op.Kind(), ParentKey: op.ParentKey(), ItemID: op.ItemID()}

	res, err := d.executor.UpdateByScript(ctx, index, op.ParentKey(), script)
	switch {
	case errors.Is(err, document.ErrDocumentMissing):
		out.Status = StatusParentNotFound
	case err != nil:
		out.Status = StatusStoreError
		out.Message = err.Error()
	default:
		out.Version = res.Version
		out.Status = statusFor(op.Kind(), res.Result)
		if out.Status == StatusStoreError {
			out.Message = "unexpected store result " + string(res.Result)
		}
	}

	d.record(ctx, index, out)
	return out
}

func statusFor(kind Kind, result document.Result) Status {
	switch result {
	case document.ResultCreated:
		return StatusCreated
	case document.ResultUpdated:
		return StatusUpdated
	case document.ResultDeleted:
		return StatusDeleted
	case document.ResultNoop:
		if kind == KindUpdateFields {
			return StatusItemNotFound
		}
		return StatusNoOp
	default:
		return StatusStoreError
	}
}

// record logs and counts out. Script parameters are never logged.
func (d *Dispatcher) record(ctx context.Context, index string, out Outcome) {
	d.recorder.RecordOutcome(out.Kind.String(), out.Status.String())

	log := d.logger.WithContext(ctx).With(
		"index", index,
		"parent_key", out.ParentKey,
		"kind", out.Kind.String(),
		"status", out.Status.String(),
	)
	if out.ItemID != "" {
		log = log.With("item_id", out.ItemID)
	}

	switch out.Status {
	case StatusStoreError:
		log.Error("collection update failed", "error", out.Message)
	case StatusParentNotFound, StatusItemNotFound:
		log.Warn("collection update target not found")
	default:
		log.Info("collection updated", "version", out.Version)
	}
}

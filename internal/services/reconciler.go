package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/foliolab/folio-backend/internal/events"
	"github.com/foliolab/folio-backend/internal/model"
	"github.com/foliolab/folio-backend/internal/store"
)

// Reconciler brings a backing collection in line with a client-held, freely
// mutated list of records. Records with a temporary or absent identity are
// inserted; records with a persistent identity are updated. It never infers
// deletes from records missing in the input: the input list may be a filtered
// or partial view, so deletion is always an explicit DeleteByID call.
type Reconciler struct {
	store store.Store
	bus   *events.Bus
}

func NewReconciler(s store.Store, bus *events.Bus) *Reconciler {
	return &Reconciler{store: s, bus: bus}
}

// RecordError pairs a per-record failure with the identity the caller used,
// so a failed create is reported under its temporary token.
type RecordError struct {
	Identity model.Identity
	Err      error
}

func (e RecordError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Identity model.Identity `json:"id"`
		Error    string         `json:"error"`
	}{e.Identity, e.Err.Error()})
}

// ReconcileResult carries the merged list in input order plus per-record
// errors. Callers must inspect both: partial failure is the common case.
type ReconcileResult struct {
	Merged []*model.Record `json:"merged"`
	Errors []RecordError   `json:"errors"`
}

// Reconcile issues the minimal create/update per record and merges the
// store's authoritative representation back into the list. Writes are
// dispatched concurrently; the merged list preserves input order regardless
// of completion order. One record's failure never stops the rest: the failed
// record passes through unchanged and is reported in Errors.
func (r *Reconciler) Reconcile(ctx context.Context, collection string, records []*model.Record) ReconcileResult {
	type outcome struct {
		rec *model.Record
		err error
	}
	outcomes := make([]outcome, len(records))

	var wg sync.WaitGroup
	for i, rec := range records {
		// A null entry in the decoded list has no identity to classify and
		// nothing to persist; report it instead of dereferencing it.
		if rec == nil {
			outcomes[i] = outcome{err: fmt.Errorf("%w: record must not be null", model.ErrValidation)}
			continue
		}
		wg.Add(1)
		go func(i int, rec *model.Record) {
			defer wg.Done()
			if rec.Identity.Persisted() {
				out, err := r.store.Records().Update(ctx, collection, rec.Identity.Value(), rec.Fields)
				outcomes[i] = outcome{rec: out, err: err}
				return
			}
			out, err := r.store.Records().Create(ctx, collection, rec.Fields)
			outcomes[i] = outcome{rec: out, err: err}
		}(i, rec)
	}
	wg.Wait()

	res := ReconcileResult{Merged: make([]*model.Record, len(records))}
	for i, oc := range outcomes {
		in := records[i]
		if oc.err != nil {
			res.Merged[i] = in
			var id model.Identity
			if in != nil {
				id = in.Identity
			}
			res.Errors = append(res.Errors, RecordError{Identity: id, Err: oc.err})
			continue
		}
		res.Merged[i] = oc.rec
		kind := events.KindRecordUpdated
		if !in.Identity.Persisted() {
			kind = events.KindRecordCreated
		}
		r.bus.Publish(events.Event{Kind: kind, Collection: collection, ID: oc.rec.Identity.Value()})
	}
	return res
}

// DeleteByID removes a single record. A temporary identity never reaches the
// store (it was never persisted); a persistent one is deleted server-side,
// and on failure the caller keeps the record in its view.
func (r *Reconciler) DeleteByID(ctx context.Context, collection string, id model.Identity) error {
	if !id.Persisted() {
		return nil
	}
	if err := r.store.Records().Delete(ctx, collection, id.Value()); err != nil {
		return err
	}
	r.bus.Publish(events.Event{Kind: events.KindRecordDeleted, Collection: collection, ID: id.Value()})
	return nil
}

// List returns the store's current view of a collection.
func (r *Reconciler) List(ctx context.Context, collection string) ([]*model.Record, error) {
	return r.store.Records().List(ctx, collection)
}

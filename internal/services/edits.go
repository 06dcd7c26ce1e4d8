package services

import (
	"fmt"

	"github.com/foliolab/folio-backend/internal/model"
)

// Client-side list mutations funnel through these copy-on-write helpers so
// every call site shares one bounds-checked path instead of duplicating
// copy-and-splice logic.

// ApplyEdit returns a new list with patch merged into the fields of the
// record at index. The input list and record are not mutated.
func ApplyEdit(list []*model.Record, index int, patch model.Fields) ([]*model.Record, error) {
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("%w: edit index %d out of range [0,%d)", model.ErrValidation, index, len(list))
	}
	out := append([]*model.Record(nil), list...)
	rec := *out[index]
	rec.Fields = rec.Fields.Clone()
	if rec.Fields == nil {
		rec.Fields = model.Fields{}
	}
	for k, v := range patch {
		rec.Fields[k] = v
	}
	out[index] = &rec
	return out, nil
}

// InsertAt returns a new list with a fresh record (temporary identity) at
// index. index == len(list) appends.
func InsertAt(list []*model.Record, index int, fields model.Fields) ([]*model.Record, error) {
	if index < 0 || index > len(list) {
		return nil, fmt.Errorf("%w: insert index %d out of range [0,%d]", model.ErrValidation, index, len(list))
	}
	rec := &model.Record{Identity: model.NewTemporaryID(), Fields: fields.Clone()}
	out := make([]*model.Record, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, rec)
	out = append(out, list[index:]...)
	return out, nil
}

// RemoveAt returns a new list without the record at index, plus the removed
// record so the caller can decide whether a store delete is needed.
func RemoveAt(list []*model.Record, index int) ([]*model.Record, *model.Record, error) {
	if index < 0 || index >= len(list) {
		return nil, nil, fmt.Errorf("%w: remove index %d out of range [0,%d)", model.ErrValidation, index, len(list))
	}
	removed := list[index]
	out := make([]*model.Record, 0, len(list)-1)
	out = append(out, list[:index]...)
	out = append(out, list[index+1:]...)
	return out, removed, nil
}

// Move returns a new list with the record at from relocated to position to.
func Move(list []*model.Record, from, to int) ([]*model.Record, error) {
	if from < 0 || from >= len(list) {
		return nil, fmt.Errorf("%w: move source %d out of range [0,%d)", model.ErrValidation, from, len(list))
	}
	if to < 0 || to >= len(list) {
		return nil, fmt.Errorf("%w: move target %d out of range [0,%d)", model.ErrValidation, to, len(list))
	}
	out := append([]*model.Record(nil), list...)
	rec := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]*model.Record{rec}, out[to:]...)...)
	return out, nil
}

// AssignOrder returns a new list with fields[key] set to each record's
// position, typically called after Move and before Reconcile so the explicit
// order field matches what the user sees.
func AssignOrder(list []*model.Record, key string) []*model.Record {
	out := make([]*model.Record, len(list))
	for i, r := range list {
		rec := *r
		rec.Fields = rec.Fields.Clone()
		if rec.Fields == nil {
			rec.Fields = model.Fields{}
		}
		rec.Fields[key] = i
		out[i] = &rec
	}
	return out
}

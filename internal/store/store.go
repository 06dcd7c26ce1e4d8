package store

import (
	"context"

	"github.com/foliolab/folio-backend/internal/model"
)

// Store exposes the persistence operations required by the reconciler and
// the triage engine. Implementations live under internal/store/<driver>/
// (postgres, sqlite). Drivers are expected to apply their own timeouts and
// surface failure rather than hang.
type Store interface {
	Records() Records
	Messages() Messages
}

// Records is the generic persistence port for reconciled collections.
// A collection is a named, ordered set of records (projects, skills, social
// links, ...); fields are opaque to the store apart from JSON encoding.
type Records interface {
	Create(ctx context.Context, collection string, fields model.Fields) (*model.Record, error)
	Update(ctx context.Context, collection string, id int64, fields model.Fields) (*model.Record, error)
	Delete(ctx context.Context, collection string, id int64) error
	List(ctx context.Context, collection string) ([]*model.Record, error)
	BulkDelete(ctx context.Context, collection string, ids []int64) ([]int64, error)
}

// Messages is the persistence port for the contact-message inbox.
// BulkUpdate and BulkDelete apply a single batch statement; ids absent from
// the result were not found, which callers report per-id.
type Messages interface {
	Create(ctx context.Context, m *model.Message) (*model.Message, error)
	Get(ctx context.Context, id int64) (*model.Message, error)
	List(ctx context.Context) ([]*model.Message, error)
	Update(ctx context.Context, id int64, patch model.MessagePatch) (*model.Message, error)
	Delete(ctx context.Context, id int64) error
	BulkUpdate(ctx context.Context, ids []int64, patch model.MessagePatch) ([]*model.Message, error)
	BulkDelete(ctx context.Context, ids []int64) ([]int64, error)
}

package model

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// TemporaryIDFloor separates client-generated placeholder identifiers from
// store-assigned ones. Placeholders are derived from wall-clock milliseconds
// (~1.7e12 and rising), while sequential database identifiers stay far below
// 10^12. Any numeric identity at or above the floor classifies as temporary.
const TemporaryIDFloor int64 = 1_000_000_000_000

// Identity is either a client-side placeholder (temporary) assigned before
// the store has seen the record, or a store-assigned persistent identifier.
// A record with the zero Identity is treated the same as one with a
// temporary identity: it has never been persisted.
type Identity struct {
	value     int64
	temporary bool
}

// PersistentID wraps a store-assigned identifier.
func PersistentID(n int64) Identity {
	return Identity{value: n}
}

// lastTemp holds the most recently issued temporary token so that identities
// generated within the same millisecond stay distinct and monotonic.
var lastTemp atomic.Int64

// NewTemporaryID issues a fresh placeholder identity.
func NewTemporaryID() Identity {
	for {
		now := time.Now().UnixMilli()
		prev := lastTemp.Load()
		if now <= prev {
			now = prev + 1
		}
		if lastTemp.CompareAndSwap(prev, now) {
			return Identity{value: now, temporary: true}
		}
	}
}

// IsTemporaryValue reports whether a raw numeric identity classifies as a
// client placeholder. The test is a half-open interval, not type-based, and
// is the single place the floor is consulted.
func IsTemporaryValue(n int64) bool { return n >= TemporaryIDFloor }

// IdentityFromValue classifies a raw numeric identity from the wire.
func IdentityFromValue(n int64) Identity {
	if n == 0 {
		return Identity{}
	}
	return Identity{value: n, temporary: IsTemporaryValue(n)}
}

// IsTemporary reports whether the identity is a client placeholder.
func (id Identity) IsTemporary() bool { return id.temporary }

// IsZero reports whether the identity is absent.
func (id Identity) IsZero() bool { return id.value == 0 }

// Persisted reports whether the identity was assigned by the store.
func (id Identity) Persisted() bool { return id.value != 0 && !id.temporary }

// Value returns the raw numeric identity (placeholder token or store id).
func (id Identity) Value() int64 { return id.value }

func (id Identity) String() string {
	if id.IsZero() {
		return "<none>"
	}
	if id.temporary {
		return fmt.Sprintf("tmp:%d", id.value)
	}
	return fmt.Sprintf("%d", id.value)
}

// MarshalJSON emits the raw numeric value, or null when absent, so callers
// see their own placeholder tokens echoed back on partial failure.
func (id Identity) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON accepts a number or null and classifies it by the floor.
func (id *Identity) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = Identity{}
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: identity must be numeric", ErrValidation)
	}
	if n < 0 {
		return fmt.Errorf("%w: identity must be non-negative", ErrValidation)
	}
	*id = IdentityFromValue(n)
	return nil
}

package auditlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidEntry = errors.New("auditlog: invalid entry")

// Store appends rows. Implementations must write through the caller's transaction so a
// rolled back change takes its log rows with it.
type Store interface {
	Insert(ctx context.Context, e Entry) error
}

type AccountStore interface {
	InsertAccount(ctx context.Context, e AccountEntry) error
}

// Record normalizes the actor and appends e. Store failures are returned, never swallowed.
func Record(ctx context.Context, s Store, e Entry) error {
	if e.WorkorderID <= 0 {
		return fmt.Errorf("%w: workorder id %d", ErrInvalidEntry, e.WorkorderID)
	}
	if !e.Event.Valid() {
		return fmt.Errorf("%w: event %q", ErrInvalidEntry, e.Event)
	}
	e.Actor = NormalizeActor(e.Actor)
	if err := s.Insert(ctx, e); err != nil {
		return fmt.Errorf("auditlog: record %s for workorder %d: %w", e.Event, e.WorkorderID, err)
	}
	return nil
}

func RecordAccount(ctx context.Context, s AccountStore, userID int64, ev AccountEvent) error {
	if userID <= 0 {
		return fmt.Errorf("%w: user id %d", ErrInvalidEntry, userID)
	}
	if err := s.InsertAccount(ctx, AccountEntry{UserID: userID, Event: ev}); err != nil {
		return fmt.Errorf("auditlog: record %s for user %d: %w", ev, userID, err)
	}
	return nil
}

// NormalizeActor turns a raw actor id into a 2-char upper-case code: longer values are
// truncated, a single character is padded with X, and empty or non-alphanumeric input
// becomes UnknownActor.
func NormalizeActor(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return UnknownActor
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return UnknownActor
		}
	}
	switch {
	case len(s) > 2:
		return s[:2]
	case len(s) == 1:
		return s + "X"
	}
	return s
}

package deliveries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/ops-portal/internal/domain/auditlog"
	"github.com/Spok95/ops-portal/internal/infra/db"
)

var (
	ErrInvalid          = errors.New("deliveries: invalid delivery")
	ErrUnknownWorkorder = errors.New("deliveries: linked work order does not exist")
)

type Notifier interface {
	DeliveryCreated(ctx context.Context, d Delivery) error
}

// Service is the delivery CRUD used by the HTTP layer. Writes that touch a linked work
// order log against it in the same transaction.
type Service struct {
	pool   *pgxpool.Pool
	notify Notifier
	log    *slog.Logger
}

func NewService(pool *pgxpool.Pool, notify Notifier, log *slog.Logger) *Service {
	return &Service{pool: pool, notify: notify, log: log}
}

func (s *Service) Repo() *Repo { return NewRepo(s.pool) }

func (s *Service) Get(ctx context.Context, id int64) (*Delivery, error) {
	return s.Repo().GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, status Status) ([]Delivery, error) {
	return s.Repo().List(ctx, status)
}

// Delete removes the delivery only; the work order log keeps its history.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	return s.Repo().Delete(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor string, d Delivery) (*Delivery, error) {
	if err := validate(&d); err != nil {
		return nil, err
	}
	var out *Delivery
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := checkWorkorder(ctx, tx, d.WorkorderID); err != nil {
			return err
		}
		var err error
		if out, err = NewRepo(tx).Create(ctx, d); err != nil {
			return err
		}
		if out.WorkorderID == nil {
			return nil
		}
		return auditlog.Record(ctx, auditlog.NewRepo(tx), auditlog.Entry{
			WorkorderID: *out.WorkorderID,
			Event:       auditlog.DeliveryCreated,
			Actor:       actor,
		})
	})
	if err != nil {
		return nil, err
	}
	if s.notify != nil {
		if err := s.notify.DeliveryCreated(ctx, *out); err != nil {
			s.log.Warn("delivery notification failed", "delivery_id", out.ID, "err", err)
		}
	}
	return out, nil
}

// Update replaces the delivery. Nil is returned when it does not exist.
func (s *Service) Update(ctx context.Context, actor string, d Delivery) (*Delivery, error) {
	if err := validate(&d); err != nil {
		return nil, err
	}
	var out *Delivery
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		repo := NewRepo(tx)
		prev, err := repo.GetForUpdate(ctx, d.ID)
		if err != nil || prev == nil {
			return err
		}
		if err := checkWorkorder(ctx, tx, d.WorkorderID); err != nil {
			return err
		}
		if out, err = repo.Update(ctx, d); err != nil {
			return err
		}
		ev, ok := TransitionEvent(prev.Status, out.Status)
		if !ok || out.WorkorderID == nil {
			return nil
		}
		return auditlog.Record(ctx, auditlog.NewRepo(tx), auditlog.Entry{
			WorkorderID: *out.WorkorderID,
			Event:       ev,
			Actor:       actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TransitionEvent is the work order log event for a delivery status change, if any.
func TransitionEvent(from, to Status) (auditlog.Event, bool) {
	if from == to {
		return "", false
	}
	switch to {
	case StatusBooked:
		return auditlog.DeliveryBooked, true
	case StatusCompleted:
		return auditlog.OrderDispatched, true
	}
	return "", false
}

func validate(d *Delivery) error {
	if missing := d.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	if d.Status == "" {
		d.Status = StatusToBeBooked
	}
	if !d.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, d.Status)
	}
	if d.Charged.IsNegative() || d.Quoted.IsNegative() {
		return fmt.Errorf("%w: amounts must not be negative", ErrInvalid)
	}
	return nil
}

func checkWorkorder(ctx context.Context, q db.Querier, id *int64) error {
	if id == nil {
		return nil
	}
	var ok bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM workorder WHERE workorder_id = $1)`, *id).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownWorkorder, *id)
	}
	return nil
}

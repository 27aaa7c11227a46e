package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/smartclaim/intake/internal/models"
	"github.com/smartclaim/intake/internal/utils"
)

const (
	NotificationTicketCreated = "ticket_created"
	notifyTitleRunes          = 60
)

type NotificationStore interface {
	ListDepartmentManagers(ctx context.Context, departmentID string) ([]models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	InsertNotifications(ctx context.Context, notes []models.Notification) error
}

// Notifier tells every manager of the assigned department about a new ticket.
type Notifier struct {
	Store  NotificationStore
	Now    func() time.Time
	Logger zerolog.Logger
}

// Fanout is a no-op for unassigned tickets.
func (n Notifier) Fanout(ctx context.Context, t models.Ticket) error {
	if t.AssignedDepartment == nil {
		return nil
	}
	managers, err := n.Store.ListDepartmentManagers(ctx, *t.AssignedDepartment)
	if err != nil {
		return errors.Wrap(err, "list managers")
	}
	if len(managers) == 0 {
		n.Logger.Debug().Str("ticket", t.Number).Msg("department has no managers to notify")
		return nil
	}

	submitter := t.CreatedBy
	if u, err := n.Store.GetUser(ctx, t.CreatedBy); err == nil && u.DisplayName != "" {
		submitter = u.DisplayName
	}

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	created := now().UTC()
	message := fmt.Sprintf("%s submitted %s (priority: %s, category: %s): %s",
		submitter, t.Number, t.Priority, t.Category, utils.Truncate(t.Title, notifyTitleRunes))

	notes := make([]models.Notification, 0, len(managers))
	for _, m := range managers {
		notes = append(notes, models.Notification{
			ID:          uuid.NewString(),
			RecipientID: m.ID,
			TicketID:    t.ID,
			Title:       "New ticket " + t.Number,
			Message:     message,
			Type:        NotificationTicketCreated,
			CreatedAt:   created,
		})
	}
	if err := n.Store.InsertNotifications(ctx, notes); err != nil {
		return errors.Wrap(err, "insert notifications")
	}
	return nil
}

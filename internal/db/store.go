package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/smartclaim/intake/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const ActivityStatusChanged = "status_changed"

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open pool")
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateTicket writes the ticket, its attachments and the creation activity in
// one transaction. The returned ticket carries the generated number and timestamps.
func (s *Store) CreateTicket(ctx context.Context, b models.TicketBundle) (models.Ticket, error) {
	t := b.Ticket
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO tickets (id, title, description, category, priority, status, created_by,
				assigned_department, assigned_user, input_type, original_content, confidence_score,
				ai_summary, sla_deadline)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			RETURNING number, created_at
		`, t.ID, t.Title, t.Description, t.Category, t.Priority, t.Status, t.CreatedBy,
			t.AssignedDepartment, t.AssignedUser, t.InputType, []byte(t.OriginalContent), t.ConfidenceScore,
			t.AISummary, t.SLADeadline).Scan(&t.Number, &t.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "insert ticket")
		}

		if len(b.Attachments) > 0 {
			rows := make([][]any, 0, len(b.Attachments))
			for _, a := range b.Attachments {
				rows = append(rows, []any{a.ID, t.ID, a.FileName, a.FileType, a.FileSize, a.StorageURL, a.AnalysisBlob, t.CreatedAt})
			}
			if _, err := tx.CopyFrom(ctx, pgx.Identifier{"attachments"},
				[]string{"id", "ticket_id", "file_name", "file_type", "file_size", "storage_url", "analysis", "created_at"},
				pgx.CopyFromRows(rows)); err != nil {
				return errors.Wrap(err, "insert attachments")
			}
		}

		act := b.Activity
		if _, err := tx.Exec(ctx, `
			INSERT INTO activities (id, ticket_id, actor_id, type, description, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, act.ID, t.ID, act.ActorID, act.Type, act.Description, t.CreatedAt); err != nil {
			return errors.Wrap(err, "insert activity")
		}
		return nil
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return t, nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]models.Department, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name FROM departments ORDER BY name ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list departments")
	}
	defer rows.Close()

	var out []models.Department
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ListDepartmentManagers(ctx context.Context, departmentID string) ([]models.User, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, display_name, role, department_id FROM users
		WHERE department_id = $1 AND role = $2
		ORDER BY id ASC
	`, departmentID, models.RoleDepartmentManager)
	if err != nil {
		return nil, errors.Wrap(err, "list department managers")
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.Role, &u.DepartmentID); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.Pool.QueryRow(ctx, `SELECT id, display_name, role, department_id FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.DisplayName, &u.Role, &u.DepartmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, errors.Wrap(err, "get user")
}

// InsertNotifications writes a batch of notifications atomically.
func (s *Store) InsertNotifications(ctx context.Context, notes []models.Notification) error {
	if len(notes) == 0 {
		return nil
	}
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		rows := make([][]any, 0, len(notes))
		for _, n := range notes {
			rows = append(rows, []any{n.ID, n.RecipientID, n.TicketID, n.Title, n.Message, n.Type, n.IsRead, n.CreatedAt})
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"notifications"},
			[]string{"id", "recipient_id", "ticket_id", "title", "message", "type", "is_read", "created_at"},
			pgx.CopyFromRows(rows))
		return errors.Wrap(err, "insert notifications")
	})
}

type TicketFilter struct {
	Status     string
	Category   string
	Department string
	Query      string
	Limit      int
	Offset     int
}

const ticketColumns = `id, number, title, description, category, priority, status, created_by,
	assigned_department, assigned_user, input_type, original_content, confidence_score, ai_summary,
	sla_deadline, created_at, resolved_at, closed_at`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var t models.Ticket
	var original []byte
	err := row.Scan(&t.ID, &t.Number, &t.Title, &t.Description, &t.Category, &t.Priority, &t.Status, &t.CreatedBy,
		&t.AssignedDepartment, &t.AssignedUser, &t.InputType, &original, &t.ConfidenceScore, &t.AISummary,
		&t.SLADeadline, &t.CreatedAt, &t.ResolvedAt, &t.ClosedAt)
	t.OriginalContent = original
	return t, err
}

func (s *Store) ListTickets(ctx context.Context, f TicketFilter) ([]models.Ticket, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets`
	var args []any
	var wheres []string
	if f.Status != "" {
		args = append(args, f.Status)
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		wheres = append(wheres, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Department != "" {
		args = append(args, f.Department)
		wheres = append(wheres, fmt.Sprintf("assigned_department = $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		wheres = append(wheres, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d OR number ILIKE $%d)", len(args), len(args), len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT $" + fmt.Sprint(len(args)+1) + " OFFSET $" + fmt.Sprint(len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list tickets")
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTicket(ctx context.Context, id string) (models.Ticket, error) {
	t, err := scanTicket(s.Pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, errors.Wrap(err, "get ticket")
}

type TicketDetails struct {
	Ticket      models.Ticket       `json:"ticket"`
	Attachments []models.Attachment `json:"attachments"`
	Activities  []models.Activity   `json:"activities"`
}

func (s *Store) GetTicketDetails(ctx context.Context, id string) (TicketDetails, error) {
	t, err := s.GetTicket(ctx, id)
	if err != nil {
		return TicketDetails{}, err
	}
	out := TicketDetails{Ticket: t, Attachments: []models.Attachment{}, Activities: []models.Activity{}}

	rows, err := s.Pool.Query(ctx, `
		SELECT id, ticket_id, file_name, file_type, file_size, storage_url, analysis, created_at
		FROM attachments WHERE ticket_id = $1 ORDER BY created_at ASC, file_name ASC
	`, id)
	if err != nil {
		return out, errors.Wrap(err, "list attachments")
	}
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.TicketID, &a.FileName, &a.FileType, &a.FileSize, &a.StorageURL, &a.AnalysisBlob, &a.CreatedAt); err != nil {
			rows.Close()
			return out, err
		}
		out.Attachments = append(out.Attachments, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	rows, err = s.Pool.Query(ctx, `
		SELECT id, ticket_id, actor_id, type, description, created_at
		FROM activities WHERE ticket_id = $1 ORDER BY created_at ASC
	`, id)
	if err != nil {
		return out, errors.Wrap(err, "list activities")
	}
	defer rows.Close()
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.TicketID, &a.ActorID, &a.Type, &a.Description, &a.CreatedAt); err != nil {
			return out, err
		}
		out.Activities = append(out.Activities, a)
	}
	return out, rows.Err()
}

// UpdateTicketStatus moves a ticket forward in its lifecycle and records the
// change as an activity. The row is locked for the duration of the check.
func (s *Store) UpdateTicketStatus(ctx context.Context, id string, to models.TicketStatus, actorID string) (models.Ticket, error) {
	var out models.Ticket
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var from models.TicketStatus
		err := tx.QueryRow(ctx, `SELECT status FROM tickets WHERE id = $1 FOR UPDATE`, id).Scan(&from)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "lock ticket")
		}
		if !models.CanTransition(from, to) {
			return errors.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
		}

		t, err := scanTicket(tx.QueryRow(ctx, `
			UPDATE tickets SET status = $2,
				resolved_at = CASE WHEN $2 = 'resolved' THEN now() ELSE resolved_at END,
				closed_at = CASE WHEN $2 IN ('closed', 'rejected') THEN now() ELSE closed_at END
			WHERE id = $1
			RETURNING `+ticketColumns, id, to))
		if err != nil {
			return errors.Wrap(err, "update ticket status")
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO activities (id, ticket_id, actor_id, type, description, created_at)
			VALUES ($1,$2,$3,$4,$5,now())
		`, uuid.NewString(), id, actorID, ActivityStatusChanged, fmt.Sprintf("Status changed from %s to %s", from, to)); err != nil {
			return errors.Wrap(err, "insert activity")
		}
		out = t
		return nil
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return out, nil
}

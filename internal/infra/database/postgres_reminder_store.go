// internal/infra/database/postgres_reminder_store.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/reminder"

	"github.com/lib/pq" // For pq.Array
)

const defaultQueryTimeout = 10 * time.Second

// StaffRoles lists sender roles in order of preference.
var StaffRoles = []string{"counselor", "nurse", "teacher", "staff", "admin"}

var requiredReminderColumns = []string{
	"reminder_enabled",
	"reminder_interval_hours",
	"last_missed_checkin_at",
	"last_reminder_sent_at",
}

var probedTables = []string{"students", "checkins", "reminder_logs", "audit_logs", "alerts", "messages", "users"}

// PostgresReminderStore implements reminder.Store for one tenant database.
type PostgresReminderStore struct {
	db           *sql.DB
	queryTimeout time.Duration
}

func NewPostgresReminderStore(db *sql.DB, queryTimeout time.Duration) *PostgresReminderStore {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &PostgresReminderStore{db: db, queryTimeout: queryTimeout}
}

func (s *PostgresReminderStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// --- Capability probe ---

func (s *PostgresReminderStore) Probe(ctx context.Context) (reminder.Capabilities, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT table_name, column_name
               FROM information_schema.columns
               WHERE table_schema = current_schema() AND table_name = ANY($1::text[])`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(probedTables))
	if err != nil {
		return reminder.Capabilities{}, fmt.Errorf("error probing tenant schema: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]map[string]bool)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return reminder.Capabilities{}, fmt.Errorf("error scanning schema probe row: %w", err)
		}
		if columns[table] == nil {
			columns[table] = make(map[string]bool)
		}
		columns[table][column] = true
	}
	if err := rows.Err(); err != nil {
		return reminder.Capabilities{}, fmt.Errorf("error iterating schema probe rows: %w", err)
	}

	return capabilitiesFromColumns(columns), nil
}

func capabilitiesFromColumns(columns map[string]map[string]bool) reminder.Capabilities {
	caps := reminder.Capabilities{}

	students := columns["students"]
	caps.Reminders = students != nil && columns["checkins"]["checkin_date"]
	for _, col := range requiredReminderColumns {
		if !students[col] {
			caps.Reminders = false
			break
		}
	}
	caps.ReminderLog = columns["reminder_logs"] != nil
	caps.Audit = columns["audit_logs"] != nil
	caps.Alerts = columns["alerts"] != nil
	caps.Messages = columns["messages"] != nil
	caps.Users = columns["users"]["role"]
	return caps
}

// --- Candidates ---

func (s *PostgresReminderStore) ListCandidates(ctx context.Context, asOf time.Time) ([]*reminder.Candidate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// $1 is asOf's calendar date; DATE - INTEGER yields a DATE.
	query := `SELECT s.id, COALESCE(s.full_name, ''), s.email, s.reminder_enabled,
                      COALESCE(s.reminder_interval_hours, 0), lc.last_checkin_date,
                      s.last_missed_checkin_at, s.last_reminder_sent_at, s.created_at
               FROM students s
               LEFT JOIN (
                   SELECT student_id, MAX(checkin_date) AS last_checkin_date
                   FROM checkins GROUP BY student_id
               ) lc ON lc.student_id = s.id
               WHERE s.reminder_enabled = TRUE
                 AND (lc.last_checkin_date IS NULL OR lc.last_checkin_date < $1::date - 1)
               ORDER BY s.id`
	rows, err := s.db.QueryContext(ctx, query, asOf.Format("2006-01-02"))
	if err != nil {
		if IsSchemaError(err) {
			return nil, fmt.Errorf("%w: %v", ErrSchemaIncompatible, err)
		}
		return nil, fmt.Errorf("error querying reminder candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]*reminder.Candidate, 0)
	for rows.Next() {
		c := reminder.Candidate{}
		if err := rows.Scan(
			&c.StudentID, &c.DisplayName, &c.ContactEmail, &c.ReminderEnabled,
			&c.ReminderIntervalHours, &c.LastCheckinDate,
			&c.LastMissedCheckinAt, &c.LastReminderSentAt, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning candidate row: %w", err)
		}
		candidates = append(candidates, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate rows: %w", err)
	}
	return candidates, nil
}

// --- Writers ---

func (s *PostgresReminderStore) MarkMissedCheckin(ctx context.Context, studentID int64, at time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `UPDATE students SET last_missed_checkin_at = $2
               WHERE id = $1 AND last_missed_checkin_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, studentID, at); err != nil {
		return fmt.Errorf("error marking missed check-in for student %d: %w", studentID, err)
	}
	return nil
}

func (s *PostgresReminderStore) OpenStaffAlert(ctx context.Context, alert *reminder.StaffAlert) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// NOT EXISTS covers tenants without the partial unique index; ON CONFLICT covers the race.
	query := `INSERT INTO alerts (student_id, alert_type, status, message, created_at)
               SELECT $1, $2, $3, $4, $5
               WHERE NOT EXISTS (
                   SELECT 1 FROM alerts WHERE student_id = $1 AND alert_type = $2 AND status = $3
               )
               ON CONFLICT DO NOTHING
               RETURNING id`
	err := s.db.QueryRowContext(ctx, query, alert.StudentID, alert.Type, alert.Status, alert.Message, alert.CreatedAt).Scan(&alert.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("error opening staff alert for student %d: %w", alert.StudentID, err)
	}
	return true, nil
}

func (s *PostgresReminderStore) ClaimReminderSlot(ctx context.Context, studentID int64, at time.Time, minGap time.Duration) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `UPDATE students SET last_reminder_sent_at = $2
               WHERE id = $1
                 AND (last_reminder_sent_at IS NULL OR last_reminder_sent_at <= $3)`
	res, err := s.db.ExecContext(ctx, query, studentID, at, at.Add(-minGap))
	if err != nil {
		return false, fmt.Errorf("error claiming reminder slot for student %d: %w", studentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading claim result for student %d: %w", studentID, err)
	}
	return n == 1, nil
}

func (s *PostgresReminderStore) InsertReminderRecord(ctx context.Context, rec *reminder.Record) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO reminder_logs (student_id, tier, interval_hours, days_since_checkin, sent_at, channel, status)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               ON CONFLICT (student_id, sent_at) DO NOTHING
               RETURNING id`
	err := s.db.QueryRowContext(ctx, query,
		rec.StudentID, rec.Tier, rec.IntervalHours, rec.DaysSinceCheckin, rec.SentAt, rec.Channel, rec.Status,
	).Scan(&rec.ID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("error inserting reminder record for student %d: %w", rec.StudentID, err)
	}
	return nil
}

func (s *PostgresReminderStore) InsertAuditEvent(ctx context.Context, ev *reminder.AuditEvent) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	details, err := json.Marshal(ev.Details)
	if err != nil {
		return fmt.Errorf("error encoding audit details: %w", err)
	}
	query := `INSERT INTO audit_logs (actor, action, entity_type, entity_id, details, created_at)
               VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.ExecContext(ctx, query, ev.Actor, ev.Action, ev.EntityType, ev.EntityID, string(details), ev.CreatedAt); err != nil {
		return fmt.Errorf("error inserting audit event: %w", err)
	}
	return nil
}

func (s *PostgresReminderStore) FindStaffSender(ctx context.Context) (*reminder.Sender, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT id, role FROM users
               WHERE role = ANY($1::text[])
               ORDER BY array_position($1::text[], role::text), id
               LIMIT 1`
	sender := reminder.Sender{}
	err := s.db.QueryRowContext(ctx, query, pq.Array(StaffRoles)).Scan(&sender.UserID, &sender.Role)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSenderNotFound
		}
		return nil, fmt.Errorf("error finding staff sender: %w", err)
	}
	return &sender, nil
}

func (s *PostgresReminderStore) InsertMessage(ctx context.Context, msg *reminder.Message) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO messages (sender_id, recipient_student_id, subject, body, priority, created_at)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id`
	err := s.db.QueryRowContext(ctx, query,
		msg.SenderID, msg.RecipientStudentID, msg.Subject, msg.Body, msg.Priority, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("error inserting message for student %d: %w", msg.RecipientStudentID, err)
	}
	return nil
}

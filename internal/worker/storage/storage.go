package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/hr-records-be/internal/worker/domain"
)

// Storage handles all database operations for the workers
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// InsertEmployee persists a single employee record
func (s *Storage) InsertEmployee(ctx context.Context, employee *domain.Employee) error {
	query := `
		INSERT INTO employees (id, name, age, position, salary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		employee.ID,
		employee.Name,
		employee.Age,
		employee.Position,
		employee.Salary,
	).Scan(&employee.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert employee: %w", err)
	}

	s.logger.Info("Employee persisted",
		slog.String("employee_id", employee.ID),
		slog.String("name", employee.Name),
	)

	return nil
}

// BulkInsertEmployees persists a batch of employees in one statement.
// A failure fails the whole batch; partial batches are never split further.
func (s *Storage) BulkInsertEmployees(ctx context.Context, employees []domain.Employee) error {
	if len(employees) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO employees (id, name, age, position, salary, created_at, updated_at) VALUES ")

	args := make([]interface{}, 0, len(employees)*5)
	for i, emp := range employees {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, NOW(), NOW())", base+1, base+2, base+3, base+4, base+5)
		args = append(args, emp.ID, emp.Name, emp.Age, emp.Position, emp.Salary)
	}

	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to bulk insert employees: %w", err)
	}

	s.logger.Info("Employee batch persisted",
		slog.Int("count", len(employees)),
	)

	return nil
}

// CreateNotification writes a durable notification record
func (s *Storage) CreateNotification(ctx context.Context, notification *domain.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}

	var metadata []byte
	if notification.Metadata != nil {
		var err error
		metadata, err = json.Marshal(notification.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal notification metadata: %w", err)
		}
	}

	query := `
		INSERT INTO notifications (id, title, message, type, read, job_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, $5, $6, NOW(), NOW())
	`

	_, err := s.db.ExecContext(ctx, query,
		notification.ID,
		notification.Title,
		notification.Message,
		notification.Type,
		nullable(notification.JobID),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	s.logger.Info("Notification created",
		slog.String("notification_id", notification.ID),
		slog.String("type", notification.Type),
		slog.String("job_id", notification.JobID),
	)

	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

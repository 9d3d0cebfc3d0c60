package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/hr-records-be/internal/api/model"
	"github.com/cuongbtq/hr-records-be/shared/postgresql"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// ErrInvalidSort is returned for sort expressions that don't parse or name
// an unknown column
var ErrInvalidSort = errors.New("invalid sort expression")

// sortableEmployeeFields whitelists columns accepted in sort expressions
var sortableEmployeeFields = map[string]bool{
	"name":       true,
	"age":        true,
	"position":   true,
	"salary":     true,
	"created_at": true,
	"updated_at": true,
}

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// EmployeeFilter narrows and pages the employee listing
type EmployeeFilter struct {
	Page   int
	Limit  int
	Search string
	Sort   string // "field:asc" or "field:desc"
}

// ListEmployees returns one page of employees plus the total match count
func (s *Storage) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]model.Employee, int, error) {
	orderBy, err := employeeOrderBy(filter.Sort)
	if err != nil {
		return nil, 0, err
	}

	where := ""
	args := []interface{}{}
	argIdx := 1

	if filter.Search != "" {
		where = fmt.Sprintf(" WHERE (name ILIKE $%d OR position ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM employees" + where
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count employees: %w", err)
	}

	query := `
		SELECT id, name, age, position, salary, created_at, updated_at
		FROM employees
	` + where + orderBy + fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	employees := []model.Employee{}
	if err := s.db.SelectContext(ctx, &employees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list employees: %w", err)
	}

	return employees, total, nil
}

func employeeOrderBy(sort string) (string, error) {
	if sort == "" {
		return " ORDER BY created_at DESC", nil
	}

	field, direction, ok := strings.Cut(sort, ":")
	if !ok || !sortableEmployeeFields[field] {
		return "", fmt.Errorf("%w: %s", ErrInvalidSort, sort)
	}

	switch strings.ToLower(direction) {
	case "asc":
		return " ORDER BY " + field + " ASC", nil
	case "desc":
		return " ORDER BY " + field + " DESC", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidSort, sort)
	}
}

func (s *Storage) GetEmployeeByID(ctx context.Context, id string) (*model.Employee, error) {
	var employee model.Employee
	query := `
		SELECT id, name, age, position, salary, created_at, updated_at
		FROM employees
		WHERE id = $1
	`

	err := s.db.GetContext(ctx, &employee, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return &employee, nil
}

func (s *Storage) CreateEmployee(ctx context.Context, employee *model.Employee) error {
	query := `
		INSERT INTO employees (id, name, age, position, salary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowxContext(
		ctx,
		query,
		employee.ID,
		employee.Name,
		employee.Age,
		employee.Position,
		employee.Salary,
	).Scan(&employee.CreatedAt, &employee.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}

	return nil
}

func (s *Storage) UpdateEmployee(ctx context.Context, employee *model.Employee) error {
	query := `
		UPDATE employees
		SET name = $2, age = $3, position = $4, salary = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := s.db.QueryRowxContext(
		ctx,
		query,
		employee.ID,
		employee.Name,
		employee.Age,
		employee.Position,
		employee.Salary,
	).Scan(&employee.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}

	return nil
}

func (s *Storage) DeleteEmployee(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// NotificationFilter pages the notification listing
type NotificationFilter struct {
	Page       int
	Limit      int
	UnreadOnly bool
}

// ListNotifications returns one page of notifications, the total match count
// and the overall unread count
func (s *Storage) ListNotifications(ctx context.Context, filter NotificationFilter) ([]model.Notification, int, int, error) {
	where := ""
	if filter.UnreadOnly {
		where = ` WHERE read = false`
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications"+where); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
		SELECT id, title, message, type, read, job_id, metadata, created_at, updated_at
		FROM notifications
	` + where + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	notifications := []model.Notification{}
	if err := s.db.SelectContext(ctx, &notifications, query, filter.Limit, (filter.Page-1)*filter.Limit); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	var unread int
	if err := s.db.GetContext(ctx, &unread, `SELECT COUNT(*) FROM notifications WHERE read = false`); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return notifications, total, unread, nil
}

func (s *Storage) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = true, updated_at = NOW() WHERE read = false`)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return nil
}

// CreateNotification writes a durable notification from the API side
// (employee update and delete outcomes)
func (s *Storage) CreateNotification(ctx context.Context, notification *model.Notification) error {
	query := `
		INSERT INTO notifications (id, title, message, type, read, job_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, $5, $6, NOW(), NOW())
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		notification.ID,
		notification.Title,
		notification.Message,
		notification.Type,
		notification.JobID,
		notification.Metadata,
	)

	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	query := `
		SELECT id, name, email, password, role, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	err := s.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

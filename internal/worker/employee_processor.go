package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/hr-records-be/internal/jobs"
	"github.com/cuongbtq/hr-records-be/internal/pubsub"
	"github.com/cuongbtq/hr-records-be/internal/worker/domain"
)

// requiredEmployeeFields in the order missing-field errors report them
var requiredEmployeeFields = []string{"name", "age", "position", "salary"}

// EmployeeStore persists single employee records
type EmployeeStore interface {
	InsertEmployee(ctx context.Context, employee *domain.Employee) error
}

// NotificationStore writes durable job-outcome notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, notification *domain.Notification) error
}

// EventPublisher broadcasts job-outcome events to live subscribers
type EventPublisher interface {
	Publish(ctx context.Context, event pubsub.Event) error
}

// EmployeeProcessor handles create-employee jobs: validate the submitted
// record, persist it, and emit outcome events. Both the event publish and the
// durable notification are best-effort; once the record is persisted their
// failure never fails the job.
type EmployeeProcessor struct {
	store         EmployeeStore
	notifications NotificationStore
	publisher     EventPublisher
	logger        *slog.Logger
}

// NewEmployeeProcessor creates a processor for the create-employee topic
func NewEmployeeProcessor(store EmployeeStore, notifications NotificationStore, publisher EventPublisher, logger *slog.Logger) *EmployeeProcessor {
	return &EmployeeProcessor{
		store:         store,
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
	}
}

// Process runs one create-employee job. Validation failures are terminal:
// malformed input will not become valid on retry. Persistence failures take
// the retry path until attempts are exhausted.
func (p *EmployeeProcessor) Process(ctx context.Context, env *jobs.Envelope) error {
	var payload jobs.EmployeeCreationPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		p.logger.Error("Failed to decode employee creation payload",
			slog.String("job_id", env.JobID),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	employee, err := validateEmployeeData(payload.EmployeeData)
	if err != nil {
		p.emitFailure(ctx, payload, err)
		return err
	}

	if err := p.store.InsertEmployee(ctx, employee); err != nil {
		p.logger.Error("Failed to persist employee",
			slog.String("job_id", payload.JobID),
			slog.Int("attempt", env.Attempt),
			slog.Any("error", err),
		)

		if env.Attempt < env.MaxAttempts {
			return domain.NewRetryableError(fmt.Errorf("employee persistence failed: %w", err))
		}

		p.emitFailure(ctx, payload, err)
		return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, err)
	}

	p.emitSuccess(ctx, payload, employee)

	return nil
}

// emitSuccess publishes the success event and writes the durable notification.
// Failures here are logged only; the employee record is already persisted.
func (p *EmployeeProcessor) emitSuccess(ctx context.Context, payload jobs.EmployeeCreationPayload, employee *domain.Employee) {
	event := pubsub.Event{
		Type:   pubsub.EventEmployeeCreated,
		UserID: payload.UserID,
		JobID:  payload.JobID,
		Status: pubsub.StatusSuccess,
		Data: map[string]any{
			"employee": map[string]any{
				"id":         employee.ID,
				"name":       employee.Name,
				"age":        employee.Age,
				"position":   employee.Position,
				"salary":     employee.Salary,
				"created_at": employee.CreatedAt.UTC().Format(time.RFC3339),
			},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Error("Failed to publish success event",
			slog.String("job_id", payload.JobID),
			slog.Any("error", err),
		)
	}

	notification := &domain.Notification{
		Title:   "Employee Created Successfully",
		Message: fmt.Sprintf("Employee %q has been created successfully.", employee.Name),
		Type:    domain.NotificationEmployeeCreated,
		JobID:   payload.JobID,
		Metadata: map[string]any{
			"employeeId":   employee.ID,
			"employeeName": employee.Name,
			"position":     employee.Position,
		},
	}

	if err := p.notifications.CreateNotification(ctx, notification); err != nil {
		p.logger.Error("Failed to create success notification",
			slog.String("job_id", payload.JobID),
			slog.Any("error", err),
		)
	}
}

// emitFailure publishes the error event and writes the durable failure
// notification. Called once per terminal outcome, never per retry attempt.
func (p *EmployeeProcessor) emitFailure(ctx context.Context, payload jobs.EmployeeCreationPayload, cause error) {
	event := pubsub.Event{
		Type:      pubsub.EventEmployeeCreated,
		UserID:    payload.UserID,
		JobID:     payload.JobID,
		Status:    pubsub.StatusError,
		Error:     cause.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Error("Failed to publish failure event",
			slog.String("job_id", payload.JobID),
			slog.Any("error", err),
		)
	}

	notification := &domain.Notification{
		Title:   "Employee Creation Failed",
		Message: fmt.Sprintf("Failed to create employee: %s", cause.Error()),
		Type:    domain.NotificationEmployeeFailed,
		JobID:   payload.JobID,
		Metadata: map[string]any{
			"error":        cause.Error(),
			"employeeData": payload.EmployeeData,
		},
	}

	if err := p.notifications.CreateNotification(ctx, notification); err != nil {
		p.logger.Error("Failed to create failure notification",
			slog.String("job_id", payload.JobID),
			slog.Any("error", err),
		)
	}
}

// validateEmployeeData checks shape and field semantics of a submitted record
// and returns the employee ready to persist.
func validateEmployeeData(data map[string]any) (*domain.Employee, error) {
	if data == nil {
		return nil, domain.NewValidationError("Employee data is required")
	}

	var missing []string
	for _, field := range requiredEmployeeFields {
		if value, ok := data[field]; !ok || value == nil {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, domain.NewValidationError("Missing required fields: " + strings.Join(missing, ", "))
	}

	name, ok := data["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return nil, domain.NewValidationError("Name is required")
	}

	age, ok := parseIntValue(data["age"])
	if !ok {
		return nil, domain.NewValidationError("Age must be a number")
	}

	position, ok := data["position"].(string)
	if !ok || strings.TrimSpace(position) == "" {
		return nil, domain.NewValidationError("Position is required")
	}

	salary, ok := parseFloatValue(data["salary"])
	if !ok || salary <= 0 {
		return nil, domain.NewValidationError("Salary must be a positive number")
	}

	return &domain.Employee{
		ID:       uuid.New().String(),
		Name:     name,
		Age:      age,
		Position: position,
		Salary:   salary,
	}, nil
}

// parseIntValue accepts JSON numbers and numeric strings, truncating decimals
func parseIntValue(v any) (int, bool) {
	switch value := v.(type) {
	case float64:
		return int(value), true
	case int:
		return value, true
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return 0, false
		}
		return int(f), true
	case string:
		trimmed := strings.TrimSpace(value)
		if n, err := strconv.Atoi(trimmed); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// parseFloatValue accepts JSON numbers and numeric strings
func parseFloatValue(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/hr-records-be/internal/api/dto"
	"github.com/cuongbtq/hr-records-be/internal/api/model"
	"github.com/cuongbtq/hr-records-be/internal/api/storage"
	"github.com/cuongbtq/hr-records-be/internal/jobs"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 10000
)

// EmployeeHandler handles employee HTTP requests
type EmployeeHandler struct {
	logger       *slog.Logger
	storage      *storage.Storage
	rabbitClient JobEnqueuer
	maxAttempts  int
}

// NewEmployeeHandler creates a new EmployeeHandler instance
func NewEmployeeHandler(deps *Dependencies) *EmployeeHandler {
	return &EmployeeHandler{
		logger:       deps.Logger,
		storage:      deps.Storage,
		rabbitClient: deps.RabbitClient,
		maxAttempts:  deps.MaxAttempts,
	}
}

// ListEmployees handles GET /api/employees
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	page, err := positiveIntQuery(c, "page", defaultPage)
	if err != nil {
		respondValidationError(c, []string{"Page must be a positive integer"}, "Validation failed")
		return
	}

	limit, err := positiveIntQuery(c, "limit", defaultLimit)
	if err != nil || limit > maxLimit {
		respondValidationError(c, []string{"Limit must be between 1 and 10000"}, "Validation failed")
		return
	}

	filter := storage.EmployeeFilter{
		Page:   page,
		Limit:  limit,
		Search: c.Query("search"),
		Sort:   c.Query("sort"),
	}

	employees, total, err := h.storage.ListEmployees(c.Request.Context(), filter)
	if errors.Is(err, storage.ErrInvalidSort) {
		respondValidationError(c, []string{`Sort must be in format "field:direction" (e.g., "name:asc")`}, "Validation failed")
		return
	}
	if err != nil {
		h.logger.Error("Failed to list employees", slog.String("error", err.Error()))
		respondInternalError(c)
		return
	}

	respondSuccess(c, dto.EmployeeListResponse{
		Employees: employees,
		Pagination: dto.Pagination{
			CurrentPage:  page,
			TotalPages:   totalPages(total, limit),
			TotalItems:   total,
			ItemsPerPage: limit,
		},
	})
}

// GetEmployee handles GET /api/employees/:id
func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondNotFound(c, "Employee not found")
		return
	}

	employee, err := h.storage.GetEmployeeByID(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondNotFound(c, "Employee not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get employee", slog.String("error", err.Error()))
		respondInternalError(c)
		return
	}

	respondSuccess(c, gin.H{"employee": employee})
}

// CreateEmployee handles POST /api/employees (synchronous create)
func (h *EmployeeHandler) CreateEmployee(c *gin.Context) {
	var req dto.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, []string{err.Error()}, "Validation failed")
		return
	}

	if *req.Salary < 0 {
		respondValidationError(c, []string{"Salary must be a positive number"}, "Validation failed")
		return
	}

	employee := model.Employee{
		ID:       uuid.New().String(),
		Name:     req.Name,
		Age:      *req.Age,
		Position: req.Position,
		Salary:   *req.Salary,
	}

	if err := h.storage.CreateEmployee(c.Request.Context(), &employee); err != nil {
		h.logger.Error("Failed to create employee", slog.String("error", err.Error()))
		respondInternalError(c)
		return
	}

	respondCreated(c, gin.H{"employee": employee}, "Employee created successfully")
}

// CreateEmployeeAsync handles POST /api/employees/async. The submitted record
// is validated by the worker; enqueue failures surface to the caller.
func (h *EmployeeHandler) CreateEmployeeAsync(c *gin.Context) {
	var employeeData dto.AsyncCreateEmployeeRequest
	if err := c.ShouldBindJSON(&employeeData); err != nil {
		respondValidationError(c, []string{err.Error()}, "Validation failed")
		return
	}

	jobID := uuid.New().String()

	payload := jobs.EmployeeCreationPayload{
		EmployeeData: employeeData,
		JobID:        jobID,
		UserID:       c.GetString("userID"),
	}

	env, err := jobs.NewEnvelope(jobs.TopicCreateEmployee, h.maxAttempts, payload)
	if err != nil {
		h.logger.Error("Failed to build job envelope", slog.String("error", err.Error()))
		respondInternalError(c)
		return
	}

	body, err := env.Encode()
	if err != nil {
		h.logger.Error("Failed to encode job envelope", slog.String("error", err.Error()))
		respondInternalError(c)
		return
	}

	if err := h.rabbitClient.Publish(c.Request.Context(), jobs.TopicCreateEmployee, body); err != nil {
		h.logger.Error("Failed to enqueue employee creation",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusServiceUnavailable, "Failed to enqueue employee creation")
		return
	}

	respondAccepted(c, gin.H{"jobId": jobID}, "Employee creation queued")
}

// UpdateEmployee handles PUT /api/employees/:id
func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondNotFound(c, "Employee not found")
		return
	}

	var req dto.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, []string{err.Error()}, "Validation failed")
		return
	}

	if req.Salary != nil && *req.Salary < 0 {
		respondValidationError(c, []string{"Salary must be a positive number"}, "Validation failed")
		return
	}

	employee, err := h.storage.GetEmployeeByID(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondNotFound(c, "Employee not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get employee", slog.String("error", err.Error()))
		respondInternalError(c)
		return
	}

	if req.Name != nil {
		employee.Name = *req.Name
	}
	if req.Age != nil {
		employee.Age = *req.Age
	}
	if req.Position != nil {
		employee.Position = *req.Position
	}
	if req.Salary != nil {
		employee.Salary = *req.Salary
	}

	if err := h.storage.UpdateEmployee(c.Request.Context(), employee); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondNotFound(c, "Employee not found")
			return
		}
		h.logger.Error("Failed to update employee", slog.String("error", err.Error()))
		respondInternalError(c)
		return
	}

	h.writeChangeNotification(c, "employee_updated", "Employee Updated",
		fmt.Sprintf("Employee %q has been updated.", employee.Name), employee)

	respondSuccessMessage(c, gin.H{"employee": employee}, "Employee updated successfully")
}

// DeleteEmployee handles DELETE /api/employees/:id
func (h *EmployeeHandler) DeleteEmployee(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondNotFound(c, "Employee not found")
		return
	}

	employee, err := h.storage.GetEmployeeByID(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondNotFound(c, "Employee not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get employee", slog.String("error", err.Error()))
		respondInternalError(c)
		return
	}

	if err := h.storage.DeleteEmployee(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondNotFound(c, "Employee not found")
			return
		}
		h.logger.Error("Failed to delete employee", slog.String("error", err.Error()))
		respondInternalError(c)
		return
	}

	h.writeChangeNotification(c, "employee_deleted", "Employee Deleted",
		fmt.Sprintf("Employee %q has been deleted.", employee.Name), employee)

	respondSuccessMessage(c, nil, "Employee deleted successfully")
}

// writeChangeNotification records a durable notification for a direct
// employee change. Best-effort: the change itself already succeeded.
func (h *EmployeeHandler) writeChangeNotification(c *gin.Context, notifType, title, message string, employee *model.Employee) {
	metadata, err := json.Marshal(gin.H{
		"employeeId":   employee.ID,
		"employeeName": employee.Name,
		"position":     employee.Position,
	})
	if err != nil {
		h.logger.Error("Failed to encode notification metadata", slog.String("error", err.Error()))
		return
	}

	notification := &model.Notification{
		ID:       uuid.New().String(),
		Title:    title,
		Message:  message,
		Type:     notifType,
		Metadata: metadata,
	}

	if err := h.storage.CreateNotification(c.Request.Context(), notification); err != nil {
		h.logger.Error("Failed to create notification",
			slog.String("type", notifType),
			slog.String("error", err.Error()),
		)
	}
}

func positiveIntQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, fmt.Errorf("invalid %s: %s", name, raw)
	}

	return value, nil
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

package dto

import "github.com/cuongbtq/hr-records-be/internal/api/model"

// LoginRequest is the POST /api/auth/login body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginUser is the user payload returned on successful login
type LoginUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResponse is the data payload of a successful login
type LoginResponse struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// CreateEmployeeRequest is the POST /api/employees body
type CreateEmployeeRequest struct {
	Name     string   `json:"name" binding:"required,max=100"`
	Age      *int     `json:"age" binding:"required"`
	Position string   `json:"position" binding:"required,max=50"`
	Salary   *float64 `json:"salary" binding:"required"`
}

// UpdateEmployeeRequest is the PUT /api/employees/:id body; nil fields are
// left unchanged
type UpdateEmployeeRequest struct {
	Name     *string  `json:"name" binding:"omitempty,max=100"`
	Age      *int     `json:"age"`
	Position *string  `json:"position" binding:"omitempty,max=50"`
	Salary   *float64 `json:"salary"`
}

// AsyncCreateEmployeeRequest is the POST /api/employees/async body; validated
// by the worker, not the API
type AsyncCreateEmployeeRequest map[string]any

// Pagination describes an employee list page
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// EmployeeListResponse is the GET /api/employees data payload
type EmployeeListResponse struct {
	Employees  []model.Employee `json:"employees"`
	Pagination Pagination       `json:"pagination"`
}

// ImportStartedResponse is the POST /api/import/employees data payload
type ImportStartedResponse struct {
	JobID        string `json:"jobId"`
	TotalRows    int    `json:"totalRows"`
	TotalBatches int    `json:"totalBatches"`
	BatchSize    int    `json:"batchSize"`
}

// NotificationPagination describes a notification list page
type NotificationPagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NotificationListResponse is the GET /api/notifications data payload
type NotificationListResponse struct {
	Notifications []model.Notification   `json:"notifications"`
	Pagination    NotificationPagination `json:"pagination"`
	UnreadCount   int                    `json:"unreadCount"`
}

// ConnectionStatusResponse is the GET /api/notifications/status data payload
type ConnectionStatusResponse struct {
	UserID                 string `json:"userId"`
	ActiveConnections      int    `json:"activeConnections"`
	TotalActiveConnections int    `json:"totalActiveConnections"`
	Timestamp              string `json:"timestamp"`
}

package domain

import "time"

// Notification types written by the workers
const (
	NotificationEmployeeCreated = "employee_created"
	NotificationEmployeeFailed  = "employee_failed"
)

// Employee is a record as the workers persist it
type Employee struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Age       int       `db:"age"`
	Position  string    `db:"position"`
	Salary    float64   `db:"salary"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Notification is a durable record of a job outcome, written once per
// job+outcome and independent of live delivery
type Notification struct {
	ID       string
	Title    string
	Message  string
	Type     string
	JobID    string
	Metadata map[string]any
}

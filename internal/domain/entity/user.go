package entity

import "time"

// UserRole determines which approval duties a user may perform
type UserRole string

const (
	RoleEmployee            UserRole = "EMPLOYEE"
	RoleSupervisor          UserRole = "SUPERVISOR"
	RoleBenefitsCoordinator UserRole = "BENEFITS_COORDINATOR"
)

// User is a directory entry carrying the reimbursement balance ledger.
// Balances are mutated only in step with request transitions.
type User struct {
	Username           string    `json:"username"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Role               UserRole  `json:"role"`
	DepartmentName     string    `json:"department"`
	SupervisorUsername string    `json:"supervisor_username,omitempty"`
	PendingBalance     float64   `json:"pending_balance"`
	AwardedBalance     float64   `json:"awarded_balance"`
	ChatID             string    `json:"chat_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Department maps a department name to the username of its head
type Department struct {
	Name         string `json:"name"`
	HeadUsername string `json:"head_username"`
}

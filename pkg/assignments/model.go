package assignments

import (
	"time"

	"garrison/pkg/apperr"
	"garrison/pkg/assets"
)

type AssignmentStatus string

const (
	StatusActive   AssignmentStatus = "ACTIVE"
	StatusReturned AssignmentStatus = "RETURNED"
	StatusLost     AssignmentStatus = "LOST"
	StatusDamaged  AssignmentStatus = "DAMAGED"
)

// ParseAssignmentStatus accepts the canonical uppercase tags only.
func ParseAssignmentStatus(s string) (AssignmentStatus, error) {
	switch AssignmentStatus(s) {
	case StatusActive, StatusReturned, StatusLost, StatusDamaged:
		return AssignmentStatus(s), nil
	}
	return "", apperr.InvalidArgument("invalid assignment status: %s", s)
}

// IsClosing reports whether the status ends an assignment.
func (s AssignmentStatus) IsClosing() bool {
	return s == StatusReturned || s == StatusLost || s == StatusDamaged
}

type Assignment struct {
	ID                     string            `json:"id"`
	AssignmentID           string            `json:"assignmentId"`
	AssetID                string            `json:"assetId"`
	AssignedTo             string            `json:"assignedTo"`
	AssignedBy             string            `json:"assignedBy"`
	Base                   string            `json:"base"`
	Status                 AssignmentStatus  `json:"status"`
	StartDate              time.Time         `json:"startDate"`
	EndDate                *time.Time        `json:"endDate,omitempty"`
	Purpose                string            `json:"purpose"`
	ConditionAtAssignment  assets.Condition  `json:"conditionAtAssignment"`
	ConditionAtReturn      *assets.Condition `json:"conditionAtReturn,omitempty"`
	Notes                  string            `json:"notes,omitempty"`
	ReturnNotes            string            `json:"returnNotes,omitempty"`
	MaintenanceRequired    bool              `json:"maintenanceRequired"`
	MaintenanceDescription string            `json:"maintenanceDescription,omitempty"`
	MaintenanceCost        float64           `json:"maintenanceCost,omitempty"`
	CreatedAt              time.Time         `json:"createdAt"`
}

type AssignmentFilters struct {
	Status     *AssignmentStatus
	Base       *string
	AssetID    *string
	AssignedTo *string
}

type AssignmentList struct {
	Items []Assignment `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

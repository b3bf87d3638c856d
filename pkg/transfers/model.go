package transfers

import (
	"time"

	"garrison/pkg/apperr"
)

type TransferStatus string

const (
	StatusPending   TransferStatus = "PENDING"
	StatusApproved  TransferStatus = "APPROVED"
	StatusInTransit TransferStatus = "IN_TRANSIT"
	StatusCompleted TransferStatus = "COMPLETED"
	StatusCancelled TransferStatus = "CANCELLED"
)

// transferTransitions is the full shipment lifecycle. COMPLETED and CANCELLED
// are terminal; cancellation is allowed from any open state.
var transferTransitions = map[TransferStatus][]TransferStatus{
	StatusPending:   {StatusApproved, StatusCancelled},
	StatusApproved:  {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s TransferStatus) CanTransitionTo(to TransferStatus) bool {
	for _, allowed := range transferTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s TransferStatus) IsTerminal() bool {
	return len(transferTransitions[s]) == 0
}

// ParseTransferStatus accepts the canonical uppercase tags only.
func ParseTransferStatus(s string) (TransferStatus, error) {
	switch TransferStatus(s) {
	case StatusPending, StatusApproved, StatusInTransit, StatusCompleted, StatusCancelled:
		return TransferStatus(s), nil
	}
	return "", apperr.InvalidArgument("invalid transfer status: %s", s)
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return Priority(s), nil
	}
	return "", apperr.InvalidArgument("invalid transfer priority: %s", s)
}

// TransportDetails describes how a shipment moves between bases.
type TransportDetails struct {
	Method    string `json:"method,omitempty"`
	VehicleID string `json:"vehicleId,omitempty"`
	Driver    string `json:"driver,omitempty"`
	Escort    string `json:"escort,omitempty"`
}

// TransferAsset is one manifest line.
type TransferAsset struct {
	AssetID  string `json:"assetId"`
	Quantity int    `json:"quantity"`
}

type Transfer struct {
	ID                 string           `json:"id"`
	TransferID         string           `json:"transferId"`
	FromBase           string           `json:"fromBase"`
	ToBase             string           `json:"toBase"`
	Status             TransferStatus   `json:"status"`
	RequestedBy        string           `json:"requestedBy"`
	ApprovedBy         *string          `json:"approvedBy,omitempty"`
	Reason             string           `json:"reason"`
	Priority           Priority         `json:"priority"`
	ScheduledDate      time.Time        `json:"scheduledDate"`
	ActualTransferDate *time.Time       `json:"actualTransferDate,omitempty"`
	Transport          TransportDetails `json:"transportDetails"`
	Notes              string           `json:"notes,omitempty"`
	Assets             []TransferAsset  `json:"assets"`
	CreatedAt          time.Time        `json:"createdAt"`
}

type TransferFilters struct {
	Status   *TransferStatus
	Priority *Priority
	// Base matches transfers touching the base on either end.
	Base *string
}

type TransferList struct {
	Items []Transfer `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

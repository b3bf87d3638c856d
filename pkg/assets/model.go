package assets

import (
	"time"

	"garrison/pkg/apperr"
)

type AssetType string

const (
	TypeWeapon     AssetType = "WEAPON"
	TypeVehicle    AssetType = "VEHICLE"
	TypeAmmunition AssetType = "AMMUNITION"
	TypeEquipment  AssetType = "EQUIPMENT"
)

func ParseAssetType(s string) (AssetType, error) {
	switch AssetType(s) {
	case TypeWeapon, TypeVehicle, TypeAmmunition, TypeEquipment:
		return AssetType(s), nil
	default:
		return "", apperr.InvalidArgument("invalid asset type %q", s)
	}
}

type AssetStatus string

const (
	StatusAvailable      AssetStatus = "AVAILABLE"
	StatusAssigned       AssetStatus = "ASSIGNED"
	StatusMaintenance    AssetStatus = "MAINTENANCE"
	StatusDecommissioned AssetStatus = "DECOMMISSIONED"
)

func ParseAssetStatus(s string) (AssetStatus, error) {
	switch AssetStatus(s) {
	case StatusAvailable, StatusAssigned, StatusMaintenance, StatusDecommissioned:
		return AssetStatus(s), nil
	default:
		return "", apperr.InvalidArgument("invalid asset status %q", s)
	}
}

// assetTransitions is the asset status machine. DECOMMISSIONED is terminal.
// ASSIGNED leaves only through assignment closure.
var assetTransitions = map[AssetStatus][]AssetStatus{
	StatusAvailable:   {StatusAssigned, StatusMaintenance, StatusDecommissioned},
	StatusAssigned:    {StatusAvailable, StatusMaintenance},
	StatusMaintenance: {StatusAvailable, StatusDecommissioned},
}

func (s AssetStatus) CanTransitionTo(to AssetStatus) bool {
	for _, next := range assetTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Condition string

const (
	ConditionNew  Condition = "NEW"
	ConditionGood Condition = "GOOD"
	ConditionFair Condition = "FAIR"
	ConditionPoor Condition = "POOR"
)

func ParseCondition(s string) (Condition, error) {
	switch Condition(s) {
	case ConditionNew, ConditionGood, ConditionFair, ConditionPoor:
		return Condition(s), nil
	default:
		return "", apperr.InvalidArgument("invalid condition %q", s)
	}
}

type MaintenanceRecord struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	PerformedBy string    `json:"performedBy"`
	Cost        float64   `json:"cost"`
}

type TransferRecord struct {
	ID           string    `json:"id"`
	FromBase     string    `json:"fromBase"`
	ToBase       string    `json:"toBase"`
	Date         time.Time `json:"date"`
	AuthorizedBy string    `json:"authorizedBy"`
	Reason       string    `json:"reason"`
}

type Asset struct {
	ID                 string              `json:"id"`
	AssetID            string              `json:"assetId"`
	Name               string              `json:"name"`
	Type               AssetType           `json:"type"`
	Category           string              `json:"category"`
	SerialNumber       string              `json:"serialNumber"`
	CurrentBase        string              `json:"currentBase"`
	Status             AssetStatus         `json:"status"`
	Condition          Condition           `json:"condition"`
	PurchaseDate       time.Time           `json:"purchaseDate"`
	PurchasePrice      float64             `json:"purchasePrice"`
	Supplier           string              `json:"supplier"`
	Specifications     map[string]string   `json:"specifications"`
	AssignedTo         *string             `json:"assignedTo"`
	MaintenanceHistory []MaintenanceRecord `json:"maintenanceHistory,omitempty"`
	TransferHistory    []TransferRecord    `json:"transferHistory,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

type AssetFilters struct {
	Type   *AssetType
	Status *AssetStatus
	Base   *string
}

type AssetList struct {
	Items []Asset `json:"items"`
	Total int64   `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}

// Metrics is the dashboard payload. Field names match the wire contract of
// existing deployments.
type Metrics struct {
	TotalAssets        int64            `json:"totalAssets"`
	ActiveAssets       int64            `json:"activeAssets"`
	PendingTransfers   int64            `json:"pendingTransfers"`
	ActiveAssignments  int64            `json:"activeAssignments"`
	StatusDistribution map[string]int64 `json:"statusDistribution"`
}

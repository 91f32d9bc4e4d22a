package domain

import "time"

// Equipment statuses.
const (
	EquipmentAssigned    = "assigned"
	EquipmentAvailable   = "available"
	EquipmentMaintenance = "maintenance"
)

// Equipment represents a tracked asset, optionally assigned to personnel.
type Equipment struct {
	ID           string
	Name         string
	Type         string
	Status       string
	AssignedTo   *string
	Condition    string
	SerialNumber string
	CreatedAt    time.Time
}

package models

import (
	"fmt"
	"strings"
	"time"
)

// Document field names shared by every store backend.
const (
	FieldVehicleNumber    = "vehicle_number"
	FieldUserName         = "user_name"
	FieldVehicleModel     = "vehicle_model"
	FieldIssueDescription = "issue_description"
	FieldActionTaken      = "action_taken"
	FieldRepairNotes      = "repair_notes"
	FieldCreatedAt        = "created_at"
	FieldUpdatedAt        = "updated_at"
)

// EditableFields lists the user-editable attributes in form order.
var EditableFields = []string{
	FieldVehicleNumber,
	FieldUserName,
	FieldVehicleModel,
	FieldIssueDescription,
	FieldActionTaken,
	FieldRepairNotes,
}

// RequiredFields lists the attributes that must be non-empty on submit.
var RequiredFields = []string{
	FieldVehicleNumber,
	FieldUserName,
	FieldIssueDescription,
	FieldActionTaken,
}

// Fields captures the user-editable attributes of a maintenance entry.
type Fields struct {
	VehicleNumber    string `bson:"vehicle_number" json:"vehicle_number"`
	UserName         string `bson:"user_name" json:"user_name"`
	VehicleModel     string `bson:"vehicle_model" json:"vehicle_model"`
	IssueDescription string `bson:"issue_description" json:"issue_description"`
	ActionTaken      string `bson:"action_taken" json:"action_taken"`
	RepairNotes      string `bson:"repair_notes" json:"repair_notes"`
}

// Record is one persisted maintenance entry.
type Record struct {
	ID        string `bson:"-" json:"id,omitempty"`
	Fields    `bson:",inline"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Get returns the value of the named field.
func (f Fields) Get(name string) (string, error) {
	switch name {
	case FieldVehicleNumber:
		return f.VehicleNumber, nil
	case FieldUserName:
		return f.UserName, nil
	case FieldVehicleModel:
		return f.VehicleModel, nil
	case FieldIssueDescription:
		return f.IssueDescription, nil
	case FieldActionTaken:
		return f.ActionTaken, nil
	case FieldRepairNotes:
		return f.RepairNotes, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
}

// Set assigns value to the named field.
func (f *Fields) Set(name, value string) error {
	switch name {
	case FieldVehicleNumber:
		f.VehicleNumber = value
	case FieldUserName:
		f.UserName = value
	case FieldVehicleModel:
		f.VehicleModel = value
	case FieldIssueDescription:
		f.IssueDescription = value
	case FieldActionTaken:
		f.ActionTaken = value
	case FieldRepairNotes:
		f.RepairNotes = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return nil
}

// Missing returns the required fields that are empty, in form order.
func (f Fields) Missing() []string {
	var missing []string
	for _, name := range RequiredFields {
		value, _ := f.Get(name)
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Validate reports a ValidationError when a required field is empty.
func (f Fields) Validate() error {
	if missing := f.Missing(); len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Map renders the fields as a document body keyed by field name.
func (f Fields) Map() map[string]string {
	out := make(map[string]string, len(EditableFields))
	for _, name := range EditableFields {
		value, _ := f.Get(name)
		out[name] = value
	}
	return out
}

package inventory

import (
	"errors"
	"fmt"

	"hardware-inventory/internal/models"
)

var (
	// ErrMissingField reports a blank required field (name, brand, model, serialNumber).
	ErrMissingField = errors.New("required field is missing")
	// ErrDuplicateSerial reports a serial number already used by another item.
	ErrDuplicateSerial = errors.New("serial number already exists")
	// ErrReservedCharacter reports a name, brand or model containing the
	// group key separator.
	ErrReservedCharacter = errors.New(`must not contain "` + models.GroupKeySeparator + `"`)
	// ErrInvalidCost reports a negative monthly cost.
	ErrInvalidCost = errors.New("monthly cost must not be negative")
	// ErrNotFound reports an unknown item id.
	ErrNotFound = errors.New("item not found")
	// ErrCorruptState reports a persisted blob that cannot be decoded.
	ErrCorruptState = errors.New("persisted inventory is corrupt")
	// ErrClosed is returned by mutations after Close.
	ErrClosed = errors.New("inventory store is closed")
)

// ValidationError is a user-facing rejection of a save. It wraps one of
// ErrMissingField, ErrReservedCharacter, ErrDuplicateSerial or ErrInvalidCost.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMissingField):
		return fmt.Sprintf("%s is required", fieldLabel(e.Field))
	case errors.Is(e.Err, ErrDuplicateSerial):
		return "an item with this serial number already exists"
	default:
		return fmt.Sprintf("%s: %v", fieldLabel(e.Field), e.Err)
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func fieldLabel(field string) string {
	switch field {
	case FieldName:
		return "Name"
	case FieldBrand:
		return "Brand"
	case FieldModel:
		return "Model"
	case FieldSerialNumber:
		return "Serial number"
	case FieldMonthlyCost:
		return "Monthly cost"
	default:
		return field
	}
}

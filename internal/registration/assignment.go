package registration

import (
	"time"

	"github.com/nerrad567/gray-logic-iot/internal/iot/provisioning"
)

// Assignment is the durable record of one provisioning outcome.
type Assignment struct {
	ID                string
	RegistrationID    string
	OperationID       string
	Status            provisioning.OperationStatus
	AssignedHub       string
	DeviceID          string
	ExtendedErrorCode uint32
	ErrorMessage      string
	CreatedAt         time.Time
}

// Usable reports whether the assignment names a hub the device can connect to.
func (a *Assignment) Usable() bool {
	return a.Status == provisioning.OperationStatusAssigned && a.AssignedHub != "" && a.DeviceID != ""
}

// FromResponse copies the outcome in resp into an Assignment. The response
// views point into a receive buffer, so every field is copied.
func FromResponse(registrationID string, resp *provisioning.RegisterResponse) Assignment {
	result := resp.RegistrationResult
	return Assignment{
		RegistrationID:    registrationID,
		OperationID:       string(resp.OperationID),
		Status:            provisioning.Classify(resp),
		AssignedHub:       string(result.AssignedHubHostname),
		DeviceID:          string(result.DeviceID),
		ExtendedErrorCode: result.ExtendedErrorCode,
		ErrorMessage:      string(result.ErrorMessage),
	}
}

package blocking

import (
	"errors"
	"fmt"
)

// ErrTimeout indicates a blocking operation reached its deadline before the
// radio reported completion. The hardware is left in whatever state the
// last poll observed; the capability interface has no cancel primitive.
var ErrTimeout = errors.New("blocking: operation timed out")

// ErrInvalidPollInterval indicates a Policy with a non-positive poll
// interval.
var ErrInvalidPollInterval = errors.New("blocking: poll interval must be positive")

// DeviceError wraps a hardware fault reported through the capability
// interface. Device errors are terminal for the current command; unlike
// timeouts they are not absorbed by any retry loop.
type DeviceError struct {
	// Op names the operation that failed, e.g. "transmit", "receive",
	// "rssi", or "set power".
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("blocking: %s: %s", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// IsTimeout reports whether err classifies as an operation deadline
// expiry.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsDeviceError reports whether err classifies as a hardware fault.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}

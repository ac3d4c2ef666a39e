package errcode

// Code is a stable kernel error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes. Every fallible kernel operation returns one of these.
const (
	OK                 Code = "ok"
	NotInitialized     Code = "not_initialized"
	InvalidParameter   Code = "invalid_parameter"
	Timeout            Code = "timeout"
	BufferFull         Code = "buffer_full"
	BufferEmpty        Code = "buffer_empty"
	AlreadyInitialized Code = "already_initialized"
	CommunicationError Code = "communication_error"
	HardwareError      Code = "hardware_error"
)

// Of extracts a Code from an error, defaulting to HardwareError for
// errors that did not originate in the kernel.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return HardwareError
}

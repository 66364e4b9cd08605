package service

// Status classifies the outcome of one request.
type Status int

const (
	StatusSuccess Status = iota
	StatusBadFormat
	StatusUnknown
	StatusNoConnection
	StatusError
)

// String returns the status text carried on the wire.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusBadFormat:
		return "Bad Message Format"
	case StatusUnknown:
		return "Unknown Command"
	case StatusNoConnection:
		return "No Route To Provider"
	default:
		return "Internal Server Error"
	}
}

// Code returns the short status name used in logs and metric labels.
func (s Status) Code() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusBadFormat:
		return "BAD_FORMAT"
	case StatusUnknown:
		return "UNKNOWN"
	case StatusNoConnection:
		return "NO_CONNECTION"
	default:
		return "ERROR"
	}
}

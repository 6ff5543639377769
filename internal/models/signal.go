package models

// SignalStatus tells a genuinely acquired value apart from a substituted default
// or a missing one.
type SignalStatus int

const (
	SignalUnavailable SignalStatus = iota
	SignalOK
	SignalDefaulted
)

func (s SignalStatus) String() string {
	switch s {
	case SignalOK:
		return "ok"
	case SignalDefaulted:
		return "defaulted"
	default:
		return "unavailable"
	}
}

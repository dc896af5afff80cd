package usage

// Record is the persisted guest usage: one Unix epoch millisecond timestamp
// per recorded message, oldest first.
type Record struct {
	Messages []int64 `json:"messages"`
}

// Stats is the derived view handed to the UI. It is computed on every query
// and never stored.
type Stats struct {
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
	// TimeUntilReset is the formatted wait until the oldest counted message
	// expires, or nil when nothing is pending.
	TimeUntilReset *string `json:"timeUntilReset"`
	IsLimitReached bool    `json:"isLimitReached"`
	IsRunningLow   bool    `json:"isRunningLow"`
}

// State is the banner a guest should see for a given Stats.
type State string

const (
	StateAvailable    State = "available"
	StateRunningLow   State = "running_low"
	StateLimitReached State = "limit_reached"
)

// DefaultResetText is shown in place of a countdown when the limit is
// reached but no reset time could be computed.
const DefaultResetText = "a few hours"

// State classifies the stats, limit first.
func (s Stats) State() State {
	switch {
	case s.IsLimitReached:
		return StateLimitReached
	case s.IsRunningLow:
		return StateRunningLow
	default:
		return StateAvailable
	}
}

// ResetText returns the formatted countdown or DefaultResetText.
func (s Stats) ResetText() string {
	if s.TimeUntilReset == nil {
		return DefaultResetText
	}
	return *s.TimeUntilReset
}

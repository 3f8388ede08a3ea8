package domain

// ChannelStatus is the settlement state of a payment channel.
//
//	open ⇄ settling → closed
type ChannelStatus string

const (
	ChannelOpen     ChannelStatus = "open"
	ChannelSettling ChannelStatus = "settling"
	ChannelClosed   ChannelStatus = "closed"
)

// Valid reports whether s is a known channel status.
func (s ChannelStatus) Valid() bool {
	switch s {
	case ChannelOpen, ChannelSettling, ChannelClosed:
		return true
	}
	return false
}

// CanTransition reports whether a channel may move from s to next.
// Staying in the same state is always allowed.
func (s ChannelStatus) CanTransition(next ChannelStatus) bool {
	if s == next {
		return next.Valid()
	}
	switch s {
	case ChannelOpen:
		return next == ChannelSettling
	case ChannelSettling:
		return next == ChannelOpen || next == ChannelClosed
	}
	return false
}

// Channel is an off-ledger payment channel between two robots.
type Channel struct {
	ID       string        `json:"id"`
	From     string        `json:"from"`
	To       string        `json:"to"`
	Capacity float64       `json:"capacity"`
	Status   ChannelStatus `json:"status"`
}

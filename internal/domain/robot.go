// Package domain holds the fleet marketplace state model: robots, tasks,
// payment channels, aggregate metrics and the wallet session.
// Domain types are pure, with no infrastructure dependency.
package domain

// RobotCategory classifies what a robot physically does.
type RobotCategory string

const (
	RobotForklift RobotCategory = "forklift"
	RobotAMR      RobotCategory = "amr"
	RobotCleaning RobotCategory = "cleaning"
	RobotDelivery RobotCategory = "delivery"
)

// Valid reports whether c is a known category.
func (c RobotCategory) Valid() bool {
	switch c {
	case RobotForklift, RobotAMR, RobotCleaning, RobotDelivery:
		return true
	}
	return false
}

// Robot is an autonomous agent in the fleet. Immutable for a session.
type Robot struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Category   RobotCategory `json:"type"`
	Reputation int           `json:"reputation"` // 0–100
}

package monitor

import "show-service/internal/types"

// Tumble fires when the supervisor reports a loss of upright orientation
// while the show module is flying the vehicle.
type Tumble struct{}

func NewTumble() *Tumble {
	return &Tumble{}
}

// Update reports whether the vehicle must go to the error state this tick.
func (t *Tumble) Update(enabled bool, state types.ShowState, tumbled bool) bool {
	return enabled && state.IsAirborne() && tumbled
}

package fsm

// Actions defines the hooks and guards of the show state machine.
// ShowSystem implements this interface.
type Actions interface {
	// Runs on every switch before the state specific action
	EnterAnyState(c *Context) error

	// State entry actions
	EnterIdle(c *Context) error
	EnterWaitForPreflightCheck(c *Context) error
	EnterTakeoff(c *Context) error
	EnterPerformingShow(c *Context) error
	EnterLanding(c *Context) error // both regular and low battery landing
	EnterLanded(c *Context) error

	// Guards for conditional transitions
	IsEnabled() bool
	IsPreflightPassing() bool
	CanStartWithFailingChecks() bool // trajectory and lights check passing
	HasStartTimePassed() bool
	HasTakeoffTimePassed() bool
	IsTakeoffComplete() bool
	IsTrajectoryFinished() bool
	HasLandedTimeoutElapsed() bool

	// Runs every tick of the takeoff phase until it completes
	CountDownTakeoff()
}

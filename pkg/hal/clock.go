package hal

// Clock counts periodic interrupt ticks as an unsigned 32-bit value
// with silent wraparound. The tick source is external: the board's
// timer context calls TickISR once per period.
type Clock struct {
	sect     *Section
	ticks    uint32
	callback func(Guard)
}

// NewClock creates a Clock serialized by sect.
func NewClock(sect *Section) *Clock {
	return &Clock{sect: sect}
}

// Reset zeroes the tick counter.
func (c *Clock) Reset(o *Owner) {
	g := o.Enter(Restore)
	c.ticks = 0
	g.Leave()
}

// Query reads the tick counter from main-line code.
func (c *Clock) Query(o *Owner) uint32 {
	g := o.Enter(Restore)
	t := c.ticks
	g.Leave()
	return t
}

// QueryISR reads the tick counter from inside the section, skipping
// the redundant exclusion.
func (c *Clock) QueryISR(g Guard) uint32 {
	c.sect.mustHold(g)
	return c.ticks
}

// RegisterCallback installs fn to be invoked on every tick, inside the
// section. fn must return quickly: the whole board is suspended while
// it runs.
func (c *Clock) RegisterCallback(o *Owner, fn func(Guard)) {
	g := o.Enter(Restore)
	c.callback = fn
	g.Leave()
}

// TickISR advances the counter and invokes the callback, if any.
func (c *Clock) TickISR(g Guard) {
	c.sect.mustHold(g)
	c.ticks++
	if c.callback != nil {
		c.callback(g)
	}
}

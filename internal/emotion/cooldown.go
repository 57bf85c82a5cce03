package emotion

// Cooldowns maps emotion names to the time of their last trigger in milliseconds.
// An emotion without an entry has never triggered and is always ready.
type Cooldowns map[string]int64

// Ready reports whether name may trigger at now given its interval.
func (c Cooldowns) Ready(name string, now, interval int64) bool {
	last, ok := c[name]
	return !ok || now-last >= interval
}

// Mark records a trigger of name at now.
func (c Cooldowns) Mark(name string, now int64) {
	c[name] = now
}

// Clone returns an independent copy.
func (c Cooldowns) Clone() Cooldowns {
	out := make(Cooldowns, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

package preprocessor

// condMode is what happens to the lines following an if macro.
type condMode int

const (
	skipToElse condMode = iota
	keepToElse
	skipToEndif
	keepToEndif
)

type condStack struct {
	stack []condMode
}

func (c *condStack) Depth() int { return len(c.stack) }

func (c *condStack) Push(mode condMode) {
	c.stack = append(c.stack, mode)
}

// Top returns the mode of the innermost frame.
func (c *condStack) Top() (condMode, bool) {
	if len(c.stack) == 0 {
		return 0, false
	}
	return c.stack[len(c.stack)-1], true
}

// Set replaces the mode of the innermost frame.
func (c *condStack) Set(mode condMode) {
	if len(c.stack) == 0 {
		return
	}
	c.stack[len(c.stack)-1] = mode
}

func (c *condStack) Pop() {
	if len(c.stack) == 0 {
		return
	}
	c.stack = c.stack[:len(c.stack)-1]
}

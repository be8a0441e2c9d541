package nn

// RegCounter reports how many registers a program touches: one more than
// the highest register index it names.
type RegCounter struct {
	n int
}

func (c *RegCounter) Count() int { return c.n }

func (c *RegCounter) BeginAssignment(dst Reg) error {
	c.see(dst)
	return nil
}

func (c *RegCounter) Interpret(e Expr) error {
	switch e := e.(type) {
	case Linear:
		c.see(e.In)
	case MatMul:
		c.binary(e.Binary)
	case Concat:
		c.binary(e.Binary)
	case CompAdd:
		c.binary(e.Binary)
	case CompMul:
		c.binary(e.Binary)
	case ReLU:
		c.see(e.In)
	case Sigmoid:
		c.see(e.In)
	case Tanh:
		c.see(e.In)
	}
	return nil
}

func (c *RegCounter) binary(e Binary) {
	c.see(e.Left)
	c.see(e.Right)
}

func (c *RegCounter) see(r Reg) {
	c.n = max(c.n, int(r)+1)
}

package interp

const arenaBlockSize = 128

// Arena allocates ObjectValues in fixed-size blocks. Blocks are never
// reallocated, so returned pointers stay valid for the arena's lifetime and
// serve as stable handles. An arena is not safe for concurrent allocation.
type Arena struct {
	blocks [][]ObjectValue
	used   int
}

func NewArena() *Arena {
	return &Arena{}
}

// New allocates an empty object.
func (a *Arena) New(className string, kind ObjectKind) *ObjectValue {
	if len(a.blocks) == 0 || a.used == arenaBlockSize {
		a.blocks = append(a.blocks, make([]ObjectValue, arenaBlockSize))
		a.used = 0
	}
	o := &a.blocks[len(a.blocks)-1][a.used]
	a.used++
	o.className = className
	o.kind = kind
	return o
}

// NewFunction allocates a function object with the given call result.
func (a *Arena) NewFunction(name string, returns Value) *ObjectValue {
	fn := a.New(name, KindFunction)
	fn.returns = returns
	return fn
}

// Len is the number of objects allocated so far.
func (a *Arena) Len() int {
	if len(a.blocks) == 0 {
		return 0
	}
	return (len(a.blocks)-1)*arenaBlockSize + a.used
}

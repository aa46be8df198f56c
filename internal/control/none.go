package control

// NewNone returns a channel with zero output, used to disable an axis.
func NewNone() Channel {
	return Channel{}
}

// NewStatic returns a memoryless channel y = k·u.
func NewStatic(k float64) Channel {
	return Channel{D: k}
}

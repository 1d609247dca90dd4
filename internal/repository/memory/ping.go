package memory

import "context"

// Pinger is a health probe target that is always reachable.
type Pinger struct{}

func (Pinger) Ping(context.Context) error { return nil }

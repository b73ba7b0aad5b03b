package nfs3

import "context"

// CallContext carries the per-call information a handler needs beyond the
// decoded arguments: cancellation, the client's address, and the identity
// conveyed by its credential.
type CallContext struct {
	Context    context.Context
	ClientAddr string
	AuthFlavor uint32
	UID        uint32
	GID        uint32
	GIDs       []uint32
}

func (c *CallContext) cancelled() bool {
	select {
	case <-c.Context.Done():
		return true
	default:
		return false
	}
}

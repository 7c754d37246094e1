package domain

// Participant is a member of a room. Online is maintained by the persistent
// store's own join/leave bookkeeping, never computed locally.
type Participant struct {
	ID     string
	Name   string
	Avatar string
	Online bool
}

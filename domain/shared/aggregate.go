package shared

// AggregateRoot is the entry point of an aggregate. It owns the
// consistency boundary: all mutations go through it, it carries the
// optimistic-lock version, and it records the domain events its
// mutations produce.
type AggregateRoot interface {
	// ID returns the globally unique identity of the aggregate.
	ID() string

	// Version returns the optimistic-lock version. The persistence
	// layer increments it on every committed mutation; a concurrent
	// writer holding a stale version must fail its write.
	Version() int

	// PullEvents returns and clears the events recorded by the
	// aggregate since it was created or last saved.
	PullEvents() []DomainEvent
}

// Entity has identity; equality is by ID, not by attributes.
type Entity interface {
	ID() string
}

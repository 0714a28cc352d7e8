package model

// Actor identifies who performs a mutation. Every store mutation takes one explicitly.
type Actor struct {
	UserID uint
	Name   string
}

// SystemActor stamps mutations made by the scheduler and queue consumer.
var SystemActor = Actor{Name: "system"}

// IsSystem reports whether the actor is not a real user.
func (a Actor) IsSystem() bool { return a.UserID == 0 }

func (a Actor) String() string {
	if a.Name != "" {
		return a.Name
	}
	if a.IsSystem() {
		return "system"
	}
	return "user"
}

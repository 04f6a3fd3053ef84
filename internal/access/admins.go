// ABOUTME: Immutable set of administrator user IDs
// ABOUTME: Built from configuration and handed to the dispatcher

package access

// Admins is the set of users allowed to run admin commands.
type Admins struct {
	ids map[int64]struct{}
}

// NewAdmins builds an admin set from ids.
func NewAdmins(ids ...int64) Admins {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return Admins{ids: set}
}

// IsAdmin reports whether id is an administrator
func (a Admins) IsAdmin(id int64) bool {
	_, ok := a.ids[id]
	return ok
}

// Len returns the number of administrators
func (a Admins) Len() int {
	return len(a.ids)
}

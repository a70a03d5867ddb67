// Package records holds the user record model and the upstream client that
// loads it.
package records

// Record is a single user entry as served by the upstream directory.
type Record struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
}

// Edit carries the three user-editable fields of a Record.
type Edit struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// EditOf returns the editable fields of r.
func EditOf(r Record) Edit {
	return Edit{Name: r.Name, Email: r.Email, Username: r.Username}
}

// Set is an ordered record sequence. A Set is never modified in place once
// built; edits produce a new Set.
type Set []Record

// Find returns the first record with the given id.
func (s Set) Find(id int) (Record, bool) {
	for _, r := range s {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// ReplaceFields returns a new Set in which every record matching id carries
// the edited name, email and username. All other records, and all other
// fields of the matched record, are copied unchanged.
func (s Set) ReplaceFields(id int, e Edit) Set {
	out := make(Set, len(s))
	for i, r := range s {
		if r.ID == id {
			r.Name = e.Name
			r.Email = e.Email
			r.Username = e.Username
		}
		out[i] = r
	}
	return out
}

package entity

// Identity is an already-resolved actor supplied by the identity provider
type Identity struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email,omitempty" yaml:"email"`
	Role  Role   `json:"role" yaml:"role"`
}

// IsZero reports whether no identity was resolved
func (i Identity) IsZero() bool {
	return i.ID == ""
}

// Is reports whether the identity carries the given capability
func (i Identity) Is(role Role) bool {
	return i.Role == role
}

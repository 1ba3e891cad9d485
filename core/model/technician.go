package model

// Technician is a field employee able to service requests.
type Technician struct {
	ID       string      `json:"id" yaml:"id"`
	Name     string      `json:"name" yaml:"name"`
	Phone    string      `json:"phone,omitempty" yaml:"phone,omitempty"`
	Location *Coordinate `json:"location,omitempty" yaml:"location,omitempty"`
}

// DisplayName falls back to the id when no name is known.
func (t Technician) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

func (t Technician) Clone() Technician {
	c := t
	if t.Location != nil {
		l := *t.Location
		c.Location = &l
	}
	return c
}

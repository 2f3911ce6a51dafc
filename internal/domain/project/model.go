package project

// Contact is the project's point of contact.
type Contact struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Project represents a published volunteer project. The category serves as
// the partition key, the generated id as the row key.
type Project struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Contact     Contact `json:"contact"`
}

// Totals aggregates capacity across all of a project's slots. Each slot's
// filled contribution is capped at its own capacity so drifted counters
// can't push a project past its total.
type Totals struct {
	TotalSlots     int  `json:"totalSlots"`
	TotalCapacity  int  `json:"totalCapacity"`
	TotalFilled    int  `json:"totalFilled"`
	SpotsRemaining int  `json:"spotsRemaining"`
	HasOpenSlots   bool `json:"hasOpenSlots"`
}

// Summary is a project with its slot totals, for listings.
type Summary struct {
	Project
	Totals Totals `json:"totals"`
}

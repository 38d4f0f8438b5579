package domain

// Matter represents a case or client engagement in the practice-management
// system. IDs are kept as opaque strings; the remote API owns their format.
type Matter struct {
	ID            string
	DisplayNumber string
	Description   string
	Status        string
}

// internal/models/prospect.go
package models

// ProspectContext carries the prospect fields the drafter substitutes into
// messages. CompanyName may be empty; the drafter falls back to a generic
// phrase.
type ProspectContext struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	CompanyName string `json:"company_name,omitempty"`
}

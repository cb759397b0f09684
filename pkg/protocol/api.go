// Package protocol defines the listing envelopes returned by the Slack Web API.
package protocol

import "github.com/fruitsalade/slackfiles/pkg/models"

// Paging is the paging metadata of a paginated listing. Page is 1-indexed,
// Pages is the total page count.
type Paging struct {
	Count int `json:"count,omitempty"`
	Total int `json:"total,omitempty"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// Page is one response of a paginated listing method such as files.list.
type Page struct {
	OK     bool
	Error  string
	Items  map[string][]models.Record
	Paging *Paging
}

// ItemsFor returns the items listed under key.
func (p *Page) ItemsFor(key string) []models.Record {
	if p == nil {
		return nil
	}
	return p.Items[key]
}

// Valid reports whether the page is usable: ok and carrying paging metadata.
func (p *Page) Valid() bool {
	return p != nil && p.OK && p.Paging != nil
}

// Listing is the response of a one-shot listing method such as users.list.
type Listing struct {
	OK    bool
	Error string
	Items []models.Record
}

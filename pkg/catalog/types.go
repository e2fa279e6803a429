package catalog

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/comics-character-sync/pkg/dataset"
)

// Character is a character as returned by /v1/public/characters.
type Character struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Comics struct {
		Available int `json:"available"`
	} `json:"comics"`
}

// ToRecord projects the character onto the persisted record. CRLF line
// breaks in the name become LF, which is what a CSV reader returns for them.
func (c *Character) ToRecord() dataset.Record {
	return dataset.Record{
		ID:         c.ID,
		Name:       strings.ReplaceAll(c.Name, "\r\n", "\n"),
		ComicCount: c.Comics.Available,
	}
}

// Page is the data container of a character list response.
type Page struct {
	Offset  int         `json:"offset"`
	Limit   int         `json:"limit"`
	Total   int         `json:"total"`
	Count   int         `json:"count"`
	Results []Character `json:"results"`
}

// Records converts the page results to records.
func (p *Page) Records() []dataset.Record {
	out := make([]dataset.Record, len(p.Results))
	for i := range p.Results {
		out[i] = p.Results[i].ToRecord()
	}
	return out
}

// envelope is the response wrapper shared by all catalog endpoints.
type envelope struct {
	Code    any    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
	ETag    string `json:"etag"`
	Data    *Page  `json:"data"`
}

// codeString renders the code field, which is a number on success and a
// string on most errors.
func (e *envelope) codeString() string {
	switch v := e.Code.(type) {
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%d", int(v))
	default:
		return fmt.Sprint(v)
	}
}

// text returns whichever human readable message the error body carries.
func (e *envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Status
}

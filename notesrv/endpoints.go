package notesrv

import (
	"fmt"
	"net/url"

	"github.com/google/go-querystring/query"
)

// SearchQuery defines the query parameters for GET /etapi/notes.
type SearchQuery struct {
	Search          string `url:"search"`
	AncestorNoteID  string `url:"ancestorNoteId,omitempty"`
	FastSearch      bool   `url:"fastSearch,omitempty"`
	IncludeArchived bool   `url:"includeArchivedNotes,omitempty"`
	OrderBy         string `url:"orderBy,omitempty"`
	Limit           int    `url:"limit,omitempty"`
}

func (a *API) searchNotesEndpoint(opts SearchQuery) (*url.URL, error) {
	if opts.Search == "" {
		return nil, fmt.Errorf("notesrv: please provide a search expression")
	}

	ep, err := a.resolveEndpoint("/etapi/notes")
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't resolve endpoint: %w", err)
	}

	v, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't encode query params: %w", err)
	}
	ep.RawQuery = v.Encode()

	return ep, nil
}

func (a *API) noteEndpoint(id string) (*url.URL, error) {
	if id == "" {
		return nil, fmt.Errorf("notesrv: please provide a note ID")
	}
	return a.resolveEndpoint("/etapi/notes/" + url.PathEscape(id))
}

func (a *API) noteContentEndpoint(id string) (*url.URL, error) {
	if id == "" {
		return nil, fmt.Errorf("notesrv: please provide a note ID")
	}
	return a.resolveEndpoint("/etapi/notes/" + url.PathEscape(id) + "/content")
}

func (a *API) createNoteEndpoint() (*url.URL, error) {
	return a.resolveEndpoint("/etapi/create-note")
}

func (a *API) attributesEndpoint() (*url.URL, error) {
	return a.resolveEndpoint("/etapi/attributes")
}

func (a *API) noteAttachmentsEndpoint(noteID string) (*url.URL, error) {
	if noteID == "" {
		return nil, fmt.Errorf("notesrv: please provide a note ID")
	}
	return a.resolveEndpoint("/etapi/notes/" + url.PathEscape(noteID) + "/attachments")
}

func (a *API) attachmentsEndpoint() (*url.URL, error) {
	return a.resolveEndpoint("/etapi/attachments")
}

func (a *API) attachmentContentEndpoint(id string) (*url.URL, error) {
	if id == "" {
		return nil, fmt.Errorf("notesrv: please provide an attachment ID")
	}
	return a.resolveEndpoint("/etapi/attachments/" + url.PathEscape(id) + "/content")
}

func (a *API) appInfoEndpoint() (*url.URL, error) {
	return a.resolveEndpoint("/etapi/app-info")
}

// Do a bit of error checking on endpoint format, and return it relative to the base URI.
func (a *API) resolveEndpoint(endpoint string) (*url.URL, error) {
	baseUri := a.BaseURI

	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("notesrv: failed to parse endpoint ref: %w", err)
	}

	return baseUri.ResolveReference(ref), nil
}

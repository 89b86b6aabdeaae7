package notesrv

import (
	"fmt"
	"net/http"
	"net/url"
)

// NewAPI builds a client for the note server's REST API.  serverURL is the
// base address, e.g. http://localhost:8080; the API itself lives under /etapi.
func NewAPI(serverURL string, token string) (*API, error) {
	if serverURL == "" {
		return &API{}, fmt.Errorf("notesrv: configure your note server address with --server")
	}
	if token == "" {
		return &API{}, fmt.Errorf("notesrv: auth token is empty, please check auth-token-cmd")
	}

	u, err := url.ParseRequestURI(serverURL)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't parse REST API URL: %w", err)
	}

	a := &API{
		BaseURI: u,
		token:   token,
	}
	a.Client = &http.Client{}

	return a, nil
}

type API struct {
	// Base address of the note server, e.g. http://localhost:8080.
	BaseURI *url.URL

	// An HTTP client - you can substitute VCR or whatnot.
	Client *http.Client

	// Auth info
	token string
}

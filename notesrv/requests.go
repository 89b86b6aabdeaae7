package notesrv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

func (api *API) GetNote(ctx context.Context, id string) (*Note, error) {
	ep, err := api.noteEndpoint(id)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't get note endpoint: %w", err)
	}

	body, err := api.request(ctx, http.MethodGet, ep, nil, "")
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't perform request: %w", err)
	}

	var note Note
	if err := json.Unmarshal(body, &note); err != nil {
		return nil, fmt.Errorf("notesrv: couldn't parse json response: %w", err)
	}

	return &note, nil
}

// GetNoteContent fetches the raw content of a note.  Text notes come back as
// HTML; code notes as plain text.
func (api *API) GetNoteContent(ctx context.Context, id string) ([]byte, error) {
	ep, err := api.noteContentEndpoint(id)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't get note content endpoint: %w", err)
	}

	body, err := api.request(ctx, http.MethodGet, ep, nil, "")
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't perform request: %w", err)
	}

	return body, nil
}

func (api *API) CreateNote(ctx context.Context, req CreateNoteRequest) (*NoteWithBranch, error) {
	ep, err := api.createNoteEndpoint()
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't get create-note endpoint: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't marshal create-note payload: %w", err)
	}

	body, err := api.request(ctx, http.MethodPost, ep, payload, "application/json")
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't perform request: %w", err)
	}

	var created NoteWithBranch
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("notesrv: couldn't parse json response: %w", err)
	}

	return &created, nil
}

func (api *API) UpdateNote(ctx context.Context, id string, patch NotePatch) (*Note, error) {
	ep, err := api.noteEndpoint(id)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't get note endpoint: %w", err)
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't marshal note patch: %w", err)
	}

	body, err := api.request(ctx, http.MethodPatch, ep, payload, "application/json")
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't perform request: %w", err)
	}

	var note Note
	if err := json.Unmarshal(body, &note); err != nil {
		return nil, fmt.Errorf("notesrv: couldn't parse json response: %w", err)
	}

	return &note, nil
}

func (api *API) UpdateNoteContent(ctx context.Context, id string, content []byte) error {
	ep, err := api.noteContentEndpoint(id)
	if err != nil {
		return fmt.Errorf("notesrv: couldn't get note content endpoint: %w", err)
	}

	if _, err := api.request(ctx, http.MethodPut, ep, content, "text/plain"); err != nil {
		return fmt.Errorf("notesrv: couldn't perform request: %w", err)
	}

	return nil
}

func (api *API) DeleteNote(ctx context.Context, id string) error {
	ep, err := api.noteEndpoint(id)
	if err != nil {
		return fmt.Errorf("notesrv: couldn't get note endpoint: %w", err)
	}

	if _, err := api.request(ctx, http.MethodDelete, ep, nil, ""); err != nil {
		return fmt.Errorf("notesrv: couldn't perform request: %w", err)
	}

	return nil
}

// GetAttributes returns the attributes already attached to a note.  They come
// embedded in the note representation rather than behind their own endpoint.
func (api *API) GetAttributes(ctx context.Context, noteID string) ([]Attribute, error) {
	note, err := api.GetNote(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't fetch note for attributes: %w", err)
	}

	return note.Attributes, nil
}

func (api *API) CreateAttribute(ctx context.Context, attr Attribute) (*Attribute, error) {
	ep, err := api.attributesEndpoint()
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't get attributes endpoint: %w", err)
	}

	payload, err := json.Marshal(attr)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't marshal attribute: %w", err)
	}

	body, err := api.request(ctx, http.MethodPost, ep, payload, "application/json")
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't perform request: %w", err)
	}

	var created Attribute
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("notesrv: couldn't parse json response: %w", err)
	}

	return &created, nil
}

func (api *API) GetAttachments(ctx context.Context, noteID string) ([]Attachment, error) {
	ep, err := api.noteAttachmentsEndpoint(noteID)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't get attachments endpoint: %w", err)
	}

	body, err := api.request(ctx, http.MethodGet, ep, nil, "")
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't perform request: %w", err)
	}

	var attachments []Attachment
	if err := json.Unmarshal(body, &attachments); err != nil {
		return nil, fmt.Errorf("notesrv: couldn't parse json response: %w", err)
	}

	return attachments, nil
}

func (api *API) CreateAttachment(ctx context.Context, req CreateAttachmentRequest) (*Attachment, error) {
	ep, err := api.attachmentsEndpoint()
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't get attachments endpoint: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't marshal attachment: %w", err)
	}

	body, err := api.request(ctx, http.MethodPost, ep, payload, "application/json")
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't perform request: %w", err)
	}

	var created Attachment
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("notesrv: couldn't parse json response: %w", err)
	}

	return &created, nil
}

func (api *API) GetAttachmentContent(ctx context.Context, id string) ([]byte, error) {
	ep, err := api.attachmentContentEndpoint(id)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't get attachment content endpoint: %w", err)
	}

	body, err := api.request(ctx, http.MethodGet, ep, nil, "")
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't perform request: %w", err)
	}

	return body, nil
}

func (api *API) SearchNotes(ctx context.Context, opts SearchQuery) (*SearchResponse, error) {
	ep, err := api.searchNotesEndpoint(opts)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't get search endpoint: %w", err)
	}

	body, err := api.request(ctx, http.MethodGet, ep, nil, "")
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't perform request: %w", err)
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("notesrv: couldn't parse json response: %w", err)
	}

	return &resp, nil
}

// AppInfo queries the server's build information; handy as a login check.
func (api *API) AppInfo(ctx context.Context) (*AppInfo, error) {
	ep, err := api.appInfoEndpoint()
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't get app-info endpoint: %w", err)
	}

	body, err := api.request(ctx, http.MethodGet, ep, nil, "")
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't perform http request: %w", err)
	}

	var info AppInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("notesrv: couldn't parse json response: %w", err)
	}

	return &info, nil
}

// request implements the basic request function shared by every endpoint.
func (api *API) request(ctx context.Context, method string, url *url.URL, payload []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't instantiate http request: %w", err)
	}

	req.Header.Add("Accept", "application/json, */*")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if api.token != "" {
		req.Header.Set("Authorization", api.token)
	}

	response, err := api.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't perform http request: %w", err)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("notesrv: couldn't read http response body: %w", err)
	}

	if err := response.Body.Close(); err != nil {
		return nil, fmt.Errorf("notesrv: couldn't close response body: %w", err)
	}

	switch response.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusPartialContent, http.StatusNoContent, http.StatusResetContent:
		return body, nil
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("notesrv: authentication failed")
	case http.StatusNotFound:
		return nil, fmt.Errorf("notesrv: not found: %s", url.Path)
	case http.StatusServiceUnavailable:
		return nil, fmt.Errorf("notesrv: service is not available: %s", response.Status)
	case http.StatusInternalServerError:
		return nil, fmt.Errorf("notesrv: internal server error: %s", response.Status)
	case http.StatusConflict:
		return nil, fmt.Errorf("notesrv: conflict: %s", response.Status)
	}

	return nil, fmt.Errorf("notesrv: unknown HTTP response status: %s: %s", response.Status, url.String())
}

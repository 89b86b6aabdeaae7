// Package fakerepo is an in-memory stand-in for the note server, used by
// handler tests.
package fakerepo

import (
	"context"
	"fmt"
	"sync"

	"github.com/noteport/noteport/notesrv"
)

// Repo holds the note tree in maps.  Every mutator takes the lock, so it is
// safe for the concurrent batch workers the handlers use.
type Repo struct {
	mu sync.Mutex

	notes       map[string]*notesrv.Note
	contents    map[string][]byte
	attributes  map[string][]notesrv.Attribute
	attachments map[string]*notesrv.Attachment
	attContents map[string][]byte

	nextID int

	// Calls counts every method invocation by name; tests use it to prove
	// dry runs never touch the repository.
	Calls map[string]int

	// FailCreateTitles makes CreateNote fail for specific titles, so tests
	// can exercise per-item error isolation.
	FailCreateTitles map[string]bool
}

func New() *Repo {
	r := &Repo{
		notes:            map[string]*notesrv.Note{},
		contents:         map[string][]byte{},
		attributes:       map[string][]notesrv.Attribute{},
		attachments:      map[string]*notesrv.Attachment{},
		attContents:      map[string][]byte{},
		Calls:            map[string]int{},
		FailCreateTitles: map[string]bool{},
	}
	r.notes["root"] = &notesrv.Note{NoteID: "root", Title: "root", Type: "book"}
	return r
}

func (r *Repo) count(method string) {
	r.Calls[method]++
}

// TotalCalls sums every recorded invocation.
func (r *Repo) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.Calls {
		total += n
	}
	return total
}

// Note returns the stored note, or nil.
func (r *Repo) Note(id string) *notesrv.Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notes[id]
}

// Content returns the stored note body.
func (r *Repo) Content(id string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contents[id]
}

// SetNote seeds a note with content, wiring it under the given parent.
func (r *Repo) SetNote(note *notesrv.Note, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[note.NoteID] = note
	r.contents[note.NoteID] = content
	for _, parentID := range note.ParentNoteIDs {
		if p, ok := r.notes[parentID]; ok {
			p.ChildNoteIDs = append(p.ChildNoteIDs, note.NoteID)
		}
	}
}

func (r *Repo) GetNote(ctx context.Context, id string) (*notesrv.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("GetNote")
	note, ok := r.notes[id]
	if !ok {
		return nil, fmt.Errorf("fakerepo: no note %s", id)
	}
	copied := *note
	return &copied, nil
}

func (r *Repo) GetNoteContent(ctx context.Context, id string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("GetNoteContent")
	content, ok := r.contents[id]
	if !ok {
		if _, exists := r.notes[id]; exists {
			return []byte{}, nil
		}
		return nil, fmt.Errorf("fakerepo: no note %s", id)
	}
	return content, nil
}

func (r *Repo) CreateNote(ctx context.Context, req notesrv.CreateNoteRequest) (*notesrv.NoteWithBranch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("CreateNote")

	if r.FailCreateTitles[req.Title] {
		return nil, fmt.Errorf("fakerepo: induced failure creating %q", req.Title)
	}

	parent, ok := r.notes[req.ParentNoteID]
	if !ok {
		return nil, fmt.Errorf("fakerepo: no parent note %s", req.ParentNoteID)
	}

	r.nextID++
	id := fmt.Sprintf("note%04d", r.nextID)

	note := &notesrv.Note{
		NoteID:        id,
		Title:         req.Title,
		Type:          req.Type,
		Mime:          req.Mime,
		ParentNoteIDs: []string{req.ParentNoteID},
	}
	r.notes[id] = note
	r.contents[id] = []byte(req.Content)
	parent.ChildNoteIDs = append(parent.ChildNoteIDs, id)

	return &notesrv.NoteWithBranch{
		Note:   *note,
		Branch: notesrv.Branch{NoteID: id, ParentNoteID: req.ParentNoteID},
	}, nil
}

func (r *Repo) UpdateNote(ctx context.Context, id string, patch notesrv.NotePatch) (*notesrv.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("UpdateNote")
	note, ok := r.notes[id]
	if !ok {
		return nil, fmt.Errorf("fakerepo: no note %s", id)
	}
	if patch.Title != nil {
		note.Title = *patch.Title
	}
	if patch.Type != nil {
		note.Type = *patch.Type
	}
	if patch.Mime != nil {
		note.Mime = *patch.Mime
	}
	copied := *note
	return &copied, nil
}

func (r *Repo) UpdateNoteContent(ctx context.Context, id string, content []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("UpdateNoteContent")
	if _, ok := r.notes[id]; !ok {
		return fmt.Errorf("fakerepo: no note %s", id)
	}
	r.contents[id] = content
	return nil
}

func (r *Repo) DeleteNote(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("DeleteNote")
	if _, ok := r.notes[id]; !ok {
		return fmt.Errorf("fakerepo: no note %s", id)
	}
	delete(r.notes, id)
	delete(r.contents, id)
	return nil
}

func (r *Repo) GetAttributes(ctx context.Context, noteID string) ([]notesrv.Attribute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("GetAttributes")
	return append([]notesrv.Attribute{}, r.attributes[noteID]...), nil
}

func (r *Repo) CreateAttribute(ctx context.Context, attr notesrv.Attribute) (*notesrv.Attribute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("CreateAttribute")
	if _, ok := r.notes[attr.NoteID]; !ok {
		return nil, fmt.Errorf("fakerepo: no note %s", attr.NoteID)
	}
	r.nextID++
	attr.AttributeID = fmt.Sprintf("attr%04d", r.nextID)
	r.attributes[attr.NoteID] = append(r.attributes[attr.NoteID], attr)
	return &attr, nil
}

func (r *Repo) GetAttachments(ctx context.Context, noteID string) ([]notesrv.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("GetAttachments")
	out := []notesrv.Attachment{}
	for _, att := range r.attachments {
		if att.OwnerID == noteID {
			out = append(out, *att)
		}
	}
	return out, nil
}

func (r *Repo) CreateAttachment(ctx context.Context, req notesrv.CreateAttachmentRequest) (*notesrv.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("CreateAttachment")
	if _, ok := r.notes[req.OwnerID]; !ok {
		return nil, fmt.Errorf("fakerepo: no owner note %s", req.OwnerID)
	}
	r.nextID++
	att := &notesrv.Attachment{
		AttachmentID:  fmt.Sprintf("att%04d", r.nextID),
		OwnerID:       req.OwnerID,
		Role:          req.Role,
		Mime:          req.Mime,
		Title:         req.Title,
		ContentLength: int64(len(req.Content)),
	}
	r.attachments[att.AttachmentID] = att
	r.attContents[att.AttachmentID] = []byte(req.Content)
	return att, nil
}

func (r *Repo) GetAttachmentContent(ctx context.Context, id string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("GetAttachmentContent")
	content, ok := r.attContents[id]
	if !ok {
		return nil, fmt.Errorf("fakerepo: no attachment %s", id)
	}
	return content, nil
}

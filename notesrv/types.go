package notesrv

// Note is the server's representation of a single note.  Content is not
// included here; it lives behind a separate /content endpoint and is fetched
// with GetNoteContent.
type Note struct {
	NoteID          string   `json:"noteId,omitempty"`
	Title           string   `json:"title,omitempty"`
	Type            string   `json:"type,omitempty"` // text, code, file, image, book, ...
	Mime            string   `json:"mime,omitempty"`
	IsProtected     bool     `json:"isProtected,omitempty"`
	ParentNoteIDs   []string `json:"parentNoteIds,omitempty"`
	ChildNoteIDs    []string `json:"childNoteIds,omitempty"`
	ParentBranchIDs []string `json:"parentBranchIds,omitempty"`
	ChildBranchIDs  []string `json:"childBranchIds,omitempty"`

	DateCreated  string `json:"dateCreated,omitempty"`
	DateModified string `json:"dateModified,omitempty"`

	Attributes []Attribute `json:"attributes,omitempty"`
}

// Branch ties a note into one position of the tree.  A note may have several
// branches (clones); import only ever creates the first one.
type Branch struct {
	BranchID     string `json:"branchId,omitempty"`
	NoteID       string `json:"noteId,omitempty"`
	ParentNoteID string `json:"parentNoteId,omitempty"`
	Prefix       string `json:"prefix,omitempty"`
	NotePosition int    `json:"notePosition,omitempty"`
	IsExpanded   bool   `json:"isExpanded,omitempty"`
}

// Attribute is a label or relation attached to a note.
type Attribute struct {
	AttributeID   string `json:"attributeId,omitempty"`
	NoteID        string `json:"noteId,omitempty"`
	Type          string `json:"type,omitempty"` // label or relation
	Name          string `json:"name,omitempty"`
	Value         string `json:"value,omitempty"`
	Position      int    `json:"position,omitempty"`
	IsInheritable bool   `json:"isInheritable,omitempty"`
}

// Attachment is a binary blob owned by a note.
type Attachment struct {
	AttachmentID  string `json:"attachmentId,omitempty"`
	OwnerID       string `json:"ownerId,omitempty"`
	Role          string `json:"role,omitempty"` // image or file
	Mime          string `json:"mime,omitempty"`
	Title         string `json:"title,omitempty"`
	ContentLength int64  `json:"contentLength,omitempty"`
}

// CreateNoteRequest is the payload for POST /create-note.
type CreateNoteRequest struct {
	ParentNoteID string `json:"parentNoteId"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	Mime         string `json:"mime,omitempty"`
	Content      string `json:"content"`
	NotePosition int    `json:"notePosition,omitempty"`
}

// NoteWithBranch is what the server hands back after note creation.
type NoteWithBranch struct {
	Note   Note   `json:"note"`
	Branch Branch `json:"branch"`
}

// NotePatch carries the mutable fields for PATCH /notes/{id}.  Pointers so
// that zero values can be distinguished from "leave alone".
type NotePatch struct {
	Title *string `json:"title,omitempty"`
	Type  *string `json:"type,omitempty"`
	Mime  *string `json:"mime,omitempty"`
}

// CreateAttachmentRequest is the payload for POST /attachments.
type CreateAttachmentRequest struct {
	OwnerID  string `json:"ownerId"`
	Role     string `json:"role"`
	Mime     string `json:"mime"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Position int    `json:"position,omitempty"`
}

// AppInfo describes the server build; used as a connectivity check.
type AppInfo struct {
	AppVersion             string `json:"appVersion,omitempty"`
	DBVersion              int    `json:"dbVersion,omitempty"`
	SyncVersion            int    `json:"syncVersion,omitempty"`
	BuildDate              string `json:"buildDate,omitempty"`
	BuildRevision          string `json:"buildRevision,omitempty"`
	DataDirectory          string `json:"dataDirectory,omitempty"`
	ClipperProtocolVersion string `json:"clipperProtocolVersion,omitempty"`
}

// SearchResponse is the shape of GET /notes?search=...
type SearchResponse struct {
	Results []Note `json:"results"`
}

package pipeline

import (
	"context"

	"github.com/noteport/noteport/notesrv"
)

// Repository is the slice of the note server the pipeline needs.  The real
// client (notesrv.API) satisfies it; tests substitute an in-memory fake.
// Calls perform network I/O and may fail with transport or authorization
// errors, which handlers surface as item-level failures.
type Repository interface {
	GetNote(ctx context.Context, id string) (*notesrv.Note, error)
	GetNoteContent(ctx context.Context, id string) ([]byte, error)
	CreateNote(ctx context.Context, req notesrv.CreateNoteRequest) (*notesrv.NoteWithBranch, error)
	UpdateNote(ctx context.Context, id string, patch notesrv.NotePatch) (*notesrv.Note, error)
	UpdateNoteContent(ctx context.Context, id string, content []byte) error
	DeleteNote(ctx context.Context, id string) error

	GetAttributes(ctx context.Context, noteID string) ([]notesrv.Attribute, error)
	CreateAttribute(ctx context.Context, attr notesrv.Attribute) (*notesrv.Attribute, error)

	GetAttachments(ctx context.Context, noteID string) ([]notesrv.Attachment, error)
	CreateAttachment(ctx context.Context, req notesrv.CreateAttachmentRequest) (*notesrv.Attachment, error)
	GetAttachmentContent(ctx context.Context, id string) ([]byte, error)
}

var _ Repository = (*notesrv.API)(nil)

// FindChildByTitle looks for a direct child of parentID whose title matches.
// Used by the duplicate-handling policies before creating a note.
func FindChildByTitle(ctx context.Context, repo Repository, parentID string, title string) (*notesrv.Note, error) {
	parent, err := repo.GetNote(ctx, parentID)
	if err != nil {
		return nil, err
	}

	for _, childID := range parent.ChildNoteIDs {
		child, err := repo.GetNote(ctx, childID)
		if err != nil {
			return nil, err
		}
		if child.Title == title {
			return child, nil
		}
	}

	return nil, nil
}

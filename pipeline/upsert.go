package pipeline

import (
	"context"

	"github.com/noteport/noteport/notesrv"
)

// UpsertNote creates a note under parentID, applying the duplicate policy
// when a child with the same title already exists: skip returns the existing
// note untouched, overwrite replaces its content, merge appends the new body
// after a rule.
func UpsertNote(ctx context.Context, repo Repository, parentID, title, htmlBody string, policy DuplicatePolicy) (noteID string, updated bool, skipped bool, opErr *OpError) {
	existing, err := FindChildByTitle(ctx, repo, parentID, title)
	if err != nil {
		return "", false, false, WrapErr(CodeRepositoryCall, err).WithDetail("title", title)
	}

	if existing == nil {
		created, err := repo.CreateNote(ctx, notesrv.CreateNoteRequest{
			ParentNoteID: parentID,
			Title:        title,
			Type:         "text",
			Mime:         "text/html",
			Content:      htmlBody,
		})
		if err != nil {
			return "", false, false, WrapErr(CodeRepositoryCall, err).WithDetail("title", title)
		}
		return created.Note.NoteID, false, false, nil
	}

	switch policy {
	case DuplicateSkip:
		return existing.NoteID, false, true, nil

	case DuplicateOverwrite:
		if err := repo.UpdateNoteContent(ctx, existing.NoteID, []byte(htmlBody)); err != nil {
			return "", false, false, WrapErr(CodeRepositoryCall, err).WithDetail("noteId", existing.NoteID)
		}
		return existing.NoteID, true, false, nil

	case DuplicateMerge:
		old, err := repo.GetNoteContent(ctx, existing.NoteID)
		if err != nil {
			return "", false, false, WrapErr(CodeRepositoryCall, err).WithDetail("noteId", existing.NoteID)
		}
		merged := string(old) + "\n<hr>\n" + htmlBody
		if err := repo.UpdateNoteContent(ctx, existing.NoteID, []byte(merged)); err != nil {
			return "", false, false, WrapErr(CodeRepositoryCall, err).WithDetail("noteId", existing.NoteID)
		}
		return existing.NoteID, true, false, nil
	}

	return "", false, false, Errf(CodeBadConfig, "unknown duplicate policy %q", policy)
}

package workflow

import (
	"github.com/pkg/errors"
)

// Per-post edit lifecycle:
//
//	Viewing -> Editing -> { Saving -> Viewing | Saving -> Editing(with error) }
//	Viewing -> Deleting(confirm) -> { Removed | Viewing(with error) }
//
// At most one post may be in Editing or Deleting at a time per session, the
// UI shows a single active dialog.

type dialogKind int

const (
	dialogEdit dialogKind = iota + 1
	dialogDelete
)

func (k dialogKind) String() string {
	if k == dialogDelete {
		return "delete"
	}
	return "edit"
}

type dialog struct {
	kind    dialogKind
	postId  string
	lastErr error
}

// BeginEdit opens the edit dialog for a post. Fails when any dialog is
// already open or the post is unknown.
func (m *Manager) BeginEdit(postId string) error {
	return m.beginDialog(dialogEdit, postId)
}

// BeginDelete opens the delete confirmation dialog for a post.
func (m *Manager) BeginDelete(postId string) error {
	return m.beginDialog(dialogDelete, postId)
}

func (m *Manager) beginDialog(kind dialogKind, postId string) error {
	if m.dialog != nil {
		return errors.Errorf("a %s dialog is already open for post %s", m.dialog.kind, m.dialog.postId)
	}
	if _, ok := m.findPost(postId); !ok {
		return errors.Errorf("no post with id %s", postId)
	}
	m.dialog = &dialog{kind: kind, postId: postId}
	return nil
}

// CancelDialog returns the active post to Viewing. Draft sets owned by the
// caller must be closed by the caller, cancellation is one of their release
// obligations.
func (m *Manager) CancelDialog() {
	m.dialog = nil
}

// DialogError reports the error of the last failed save/confirm while the
// dialog remains open, nil otherwise.
func (m *Manager) DialogError() error {
	if m.dialog == nil {
		return nil
	}
	return m.dialog.lastErr
}

// EditingPost returns the post id of the open dialog and whether one is
// open.
func (m *Manager) EditingPost() (string, bool) {
	if m.dialog == nil {
		return "", false
	}
	return m.dialog.postId, true
}

func (m *Manager) requireDialog(kind dialogKind, postId string) error {
	if m.dialog == nil || m.dialog.kind != kind || m.dialog.postId != postId {
		return errors.Errorf("no open %s dialog for post %s", kind, postId)
	}
	return nil
}

// failDialog records the error on the open dialog and returns it, leaving
// the dialog open so the caller can retry or cancel.
func (m *Manager) failDialog(err error) error {
	if m.dialog != nil {
		m.dialog.lastErr = err
	}
	return err
}

func (m *Manager) closeDialog() {
	m.dialog = nil
}

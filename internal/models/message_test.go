package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeletionPatchAppliesOneSideOnly(t *testing.T) {
	sentAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := Message{ID: 5, SenderID: 1, ReceiverID: 2, Content: "hi", Time: sentAt, Status: MessageSent}

	patch := DeletionPatch{MessageID: 5, DeletedForSender: true}
	now := time.Now().UTC()
	patch.Apply(&msg, now)

	assert.True(t, msg.DeletedForSender)
	assert.False(t, msg.DeletedForReceiver)
	assert.True(t, msg.DeletedStatus)
	require.NotNil(t, msg.DeletedAt)
	assert.Equal(t, now, *msg.DeletedAt)

	// Everything outside the deletion fields stays untouched.
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, sentAt, msg.Time)
	assert.Equal(t, MessageSent, msg.Status)
}

func TestDeletionPatchFlagsAreMonotonic(t *testing.T) {
	deletedAt := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	msg := Message{ID: 5, DeletedStatus: true, DeletedForReceiver: true, DeletedAt: &deletedAt}

	// A patch with both flags false cannot undelete.
	DeletionPatch{MessageID: 5}.Apply(&msg, time.Now().UTC())

	assert.True(t, msg.DeletedForReceiver)
	assert.True(t, msg.DeletedStatus)
	assert.Equal(t, deletedAt, *msg.DeletedAt)
}

func TestDeletionPatchKeepsClientDeletedAt(t *testing.T) {
	msg := Message{ID: 5}
	clientAt := time.Date(2024, 5, 3, 9, 30, 0, 0, time.UTC)

	DeletionPatch{MessageID: 5, DeletedForReceiver: true, DeletedAt: &clientAt}.Apply(&msg, time.Now().UTC())

	require.NotNil(t, msg.DeletedAt)
	assert.Equal(t, clientAt, *msg.DeletedAt)
}

func TestPatchFromMessageDropsContentFields(t *testing.T) {
	patch := PatchFromMessage(Message{ID: 9, Content: "junk", SenderID: 3, DeletedForSender: true})

	assert.Equal(t, 9, patch.MessageID)
	assert.True(t, patch.DeletedForSender)
	assert.False(t, patch.DeletedForReceiver)
}

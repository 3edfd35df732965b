package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatapp/internal/audit"
	"chatapp/internal/broker"
	"chatapp/internal/mocks"
	"chatapp/internal/models"
	"chatapp/internal/repositories"
)

type engineFixture struct {
	messages  *mocks.MessageRepositoryMock
	history   *mocks.HistoryRepositoryMock
	hub       *mocks.BroadcasterMock
	publisher *mocks.PublisherMock
	engine    *Engine
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		messages:  new(mocks.MessageRepositoryMock),
		history:   new(mocks.HistoryRepositoryMock),
		hub:       new(mocks.BroadcasterMock),
		publisher: new(mocks.PublisherMock),
	}
	sink := audit.NewSink(f.history, nil, "audit.chat", "chatapp", "test")
	f.engine = NewEngine(f.messages, sink, f.hub, f.publisher)
	return f
}

func TestSendAssignsServerFields(t *testing.T) {
	f := newEngineFixture()
	before := time.Now().UTC()

	clientTime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	draft := models.Message{
		SenderID:   1,
		ReceiverID: 2,
		Content:    "hi",
		Time:       clientTime,
		Status:     models.MessageSeen,
		Read:       true,
	}

	f.messages.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.Status == models.MessageSent &&
			m.MessageType == models.TypeText &&
			!m.Read &&
			!m.DeletedStatus && !m.DeletedForSender && !m.DeletedForReceiver &&
			m.DeletedAt == nil &&
			!m.Time.Before(before)
	})).Return(models.Message{ID: 7, SenderID: 1, ReceiverID: 2, Content: "hi", Status: models.MessageSent, MessageType: models.TypeText}, nil).Once()
	f.history.On("Append", mock.Anything, 1, models.ActionMessageSent, "Message to user 2", mock.Anything).
		Return(models.History{ID: 1}, nil).Once()
	f.hub.On("Broadcast", broker.TopicMessages, mock.Anything).Once()
	f.publisher.On("Publish", mock.Anything, broker.TopicMessages, mock.Anything).Return(nil).Once()

	msg, err := f.engine.Send(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, 7, msg.ID)

	f.messages.AssertExpectations(t)
	f.history.AssertExpectations(t)
	f.hub.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestSendImageAuditsImageAction(t *testing.T) {
	f := newEngineFixture()

	f.messages.On("CreateMessage", mock.Anything, mock.Anything).
		Return(models.Message{ID: 8, SenderID: 1, ReceiverID: 3, MessageType: models.TypeImage, Status: models.MessageSent}, nil).Once()
	f.history.On("Append", mock.Anything, 1, models.ActionImageSent, "Message to user 3", mock.Anything).
		Return(models.History{ID: 2}, nil).Once()
	f.hub.On("Broadcast", broker.TopicMessages, mock.Anything).Once()
	f.publisher.On("Publish", mock.Anything, broker.TopicMessages, mock.Anything).Return(nil).Once()

	_, err := f.engine.Send(context.Background(), models.Message{SenderID: 1, ReceiverID: 3, MessageType: models.TypeImage})
	require.NoError(t, err)

	f.history.AssertExpectations(t)
}

func TestDeleteUnknownMessageRelaysPatchUnchanged(t *testing.T) {
	f := newEngineFixture()

	patch := models.Message{ID: 99, Content: "stale", DeletedForSender: true}
	f.messages.On("GetMessage", mock.Anything, 99).Return(models.Message{}, repositories.ErrMessageNotFound).Once()
	f.hub.On("Broadcast", broker.TopicMessages, mock.Anything).Once()
	f.publisher.On("Publish", mock.Anything, broker.TopicMessages, mock.Anything).Return(nil).Once()

	result := f.engine.Delete(context.Background(), patch)
	assert.Equal(t, patch, result)

	f.messages.AssertNotCalled(t, "UpdateDeletion", mock.Anything, mock.Anything)
	f.hub.AssertExpectations(t)
}

func TestDeleteMergesOnlyDeletionFields(t *testing.T) {
	f := newEngineFixture()

	sentAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	existing := models.Message{
		ID: 5, SenderID: 1, ReceiverID: 2, Content: "hi",
		Time: sentAt, Status: models.MessageSeen, MessageType: models.TypeText,
	}
	patch := models.Message{
		ID:               5,
		SenderID:         9,     // client-supplied junk, must not leak into the record
		Content:          "xxx", // likewise
		DeletedForSender: true,
	}

	f.messages.On("GetMessage", mock.Anything, 5).Return(existing, nil).Once()
	f.messages.On("UpdateDeletion", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.ID == 5 &&
			m.SenderID == 1 && m.ReceiverID == 2 &&
			m.Content == "hi" && m.Time.Equal(sentAt) && m.Status == models.MessageSeen &&
			m.DeletedStatus && m.DeletedForSender && !m.DeletedForReceiver &&
			m.DeletedAt != nil
	})).Return(models.Message{ID: 5, SenderID: 1, ReceiverID: 2, Content: "hi", DeletedStatus: true, DeletedForSender: true}, nil).Once()
	f.hub.On("Broadcast", broker.TopicMessages, mock.Anything).Once()
	f.publisher.On("Publish", mock.Anything, broker.TopicMessages, mock.Anything).Return(nil).Once()

	result := f.engine.Delete(context.Background(), patch)
	assert.True(t, result.DeletedForSender)
	assert.False(t, result.DeletedForReceiver)
	assert.Equal(t, "hi", result.Content)

	f.messages.AssertExpectations(t)
}

func TestTypingRelaysPayloadVerbatim(t *testing.T) {
	f := newEngineFixture()

	payload := json.RawMessage(`{"senderId":1,"receiverId":2,"isTyping":true,"extra":"anything"}`)
	f.hub.On("Broadcast", broker.TopicTyping, mock.MatchedBy(func(body []byte) bool {
		var event models.ChatEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return false
		}
		return event.Type == "typing" && string(event.Payload) == string(payload)
	})).Once()
	f.publisher.On("Publish", mock.Anything, broker.TopicTyping, mock.Anything).Return(nil).Once()

	f.engine.Typing(context.Background(), payload)

	f.hub.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
	f.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	f.history.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

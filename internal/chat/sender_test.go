package chat_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"bitbucket.org/sotavant/chatsync/internal/api"
	"bitbucket.org/sotavant/chatsync/internal/chat"
	"bitbucket.org/sotavant/chatsync/internal/chat/mock"
	"bitbucket.org/sotavant/chatsync/internal/models"
	"bitbucket.org/sotavant/chatsync/internal/state"
)

func TestSend(t *testing.T) {
	created := models.Message{ID: "m2", SenderID: "me", ReceiverID: "u1", Text: "yo"}
	existing := models.Message{ID: "m1", SenderID: "u1", ReceiverID: "me", Text: "hi"}

	testCases := []struct {
		name       string
		selected   string
		switchTo   string
		reselect   bool
		messages   []models.Message
		sendErr    error
		wantNotice string
		want       []models.Message
	}{
		{
			name:     "appends_created",
			selected: "u1",
			messages: []models.Message{existing},
			want:     []models.Message{existing, created},
		},
		{
			name:     "already_present",
			selected: "u1",
			messages: []models.Message{existing, created},
			want:     []models.Message{existing, created},
		},
		{
			name:     "selection_moved_on",
			selected: "u1",
			switchTo: "u2",
			messages: []models.Message{existing},
			want:     []models.Message{existing},
		},
		{
			name:     "conversation_reopened",
			selected: "u1",
			reselect: true,
			messages: []models.Message{existing},
			want:     []models.Message{{ID: "b1", SenderID: "u2", ReceiverID: "me"}},
		},
		{
			name:       "server_error",
			selected:   "u1",
			messages:   []models.Message{existing},
			sendErr:    &api.Error{StatusCode: http.StatusBadRequest, Message: "Receiver not found"},
			wantNotice: "Receiver not found",
			want:       []models.Message{existing},
		},
		{
			name:       "network_error",
			selected:   "u1",
			messages:   []models.Message{existing},
			sendErr:    errors.New("reset by peer"),
			wantNotice: chat.FallbackSendMessage,
			want:       []models.Message{existing},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			apiMock := mock.NewMockAPI(ctrl)
			notifier := mock.NewMockNotifier(ctrl)
			st := state.New()
			st.Write(func(s *state.State) {
				s.SelectedPeer = &models.Peer{ID: tc.selected}
				s.Messages = tc.messages
			})

			apiMock.EXPECT().
				SendMessage(gomock.Any(), tc.selected, models.OutgoingMessage{Text: "yo"}).
				DoAndReturn(func(context.Context, string, models.OutgoingMessage) (models.Message, error) {
					if tc.switchTo != "" {
						st.Write(func(s *state.State) { s.SelectedPeer = &models.Peer{ID: tc.switchTo} })
					}
					if tc.reselect {
						// away to u2 and back: same peer, list not yet reloaded
						st.Write(func(s *state.State) {
							s.Generation += 2
							s.Messages = []models.Message{{ID: "b1", SenderID: "u2", ReceiverID: "me"}}
						})
					}
					if tc.sendErr != nil {
						return models.Message{}, tc.sendErr
					}
					return created, nil
				})
			if tc.wantNotice != "" {
				notifier.EXPECT().Error(tc.wantNotice)
			}

			chat.NewSender(st, apiMock, notifier).Send(context.Background(), models.OutgoingMessage{Text: "yo"})

			assert.Equal(t, tc.want, st.Read().Messages)
		})
	}
}

func TestSendWithoutSelection(t *testing.T) {
	ctrl := gomock.NewController(t)
	apiMock := mock.NewMockAPI(ctrl)
	notifier := mock.NewMockNotifier(ctrl)
	apiMock.EXPECT().SendMessage(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	notifier.EXPECT().Error(gomock.Any()).Times(0)

	chat.NewSender(state.New(), apiMock, notifier).Send(context.Background(), models.OutgoingMessage{Text: "yo"})
}

func TestSendEmptyMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	apiMock := mock.NewMockAPI(ctrl)
	notifier := mock.NewMockNotifier(ctrl)
	st := state.New()
	st.Write(func(s *state.State) { s.SelectedPeer = &models.Peer{ID: "u1"} })

	apiMock.EXPECT().SendMessage(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	notifier.EXPECT().Error(chat.FallbackSendMessage)

	chat.NewSender(st, apiMock, notifier).Send(context.Background(), models.OutgoingMessage{})
}

package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockMessageCreator struct {
	req   *larkIm.CreateMessageReq
	calls int
	resp  *larkIm.CreateMessageResp
	err   error
}

func (m *mockMessageCreator) Create(ctx context.Context, req *larkIm.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkIm.CreateMessageResp, error) {
	m.req = req
	m.calls++
	return m.resp, m.err
}

func okResponse(messageID string) *larkIm.CreateMessageResp {
	return &larkIm.CreateMessageResp{
		Data: &larkIm.CreateMessageRespData{MessageId: &messageID},
	}
}

func TestNotifier_Notify(t *testing.T) {
	creator := &mockMessageCreator{resp: okResponse("om_1")}
	n := NewNotifierWithCreator(creator, "", zap.NewNop())

	err := n.Notify(context.Background(), "P7", `Task 3 "expired"`)
	require.NoError(t, err)

	assert.NotNil(t, creator.req)
	assert.Equal(t, 1, creator.calls)
}

func TestTextMessageBody(t *testing.T) {
	body, err := textMessageBody("P7", `Task 3 "expired"`)
	require.NoError(t, err)

	require.NotNil(t, body.ReceiveId)
	assert.Equal(t, "P7", *body.ReceiveId)
	require.NotNil(t, body.MsgType)
	assert.Equal(t, "text", *body.MsgType)
	require.NotNil(t, body.Uuid)
	assert.NotEmpty(t, *body.Uuid)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(*body.Content), &content))
	assert.Equal(t, `Task 3 "expired"`, content["text"])

	again, err := textMessageBody("P7", "x")
	require.NoError(t, err)
	assert.NotEqual(t, *body.Uuid, *again.Uuid, "every send gets its own uuid")
}

func TestNotifier_Notify_Validation(t *testing.T) {
	n := NewNotifierWithCreator(&mockMessageCreator{resp: okResponse("x")}, "open_id", zap.NewNop())

	assert.Error(t, n.Notify(context.Background(), "", "hello"))
	assert.Error(t, n.Notify(context.Background(), "P1", ""))
	assert.Equal(t, 0, n.messages.(*mockMessageCreator).calls)
}

func TestNotifier_Notify_TransportError(t *testing.T) {
	creator := &mockMessageCreator{err: errors.New("connection refused")}
	n := NewNotifierWithCreator(creator, "user_id", zap.NewNop())

	err := n.Notify(context.Background(), "P1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNotifier_Notify_APIFailure(t *testing.T) {
	resp := &larkIm.CreateMessageResp{}
	resp.Code = 230001
	resp.Msg = "invalid receive_id"
	n := NewNotifierWithCreator(&mockMessageCreator{resp: resp}, "user_id", zap.NewNop())

	err := n.Notify(context.Background(), "P1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "230001")
}

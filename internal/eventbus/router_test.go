package eventbus

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"

	"github.com/battala/voicemesh/internal/core"
	"github.com/battala/voicemesh/internal/eventbus/rpc"
)

const (
	mockUserID = core.UserID("0c4038d6-da68-11ec-9d64-0242ac120002")
)

type MockCallbacks struct {
	JoinedChannel      core.ChannelID
	JoinCallbackFired  bool
	LeaveCallbackFired bool
	OfferFired         bool
	OfferTarget        core.UserID
	AnswerFired        bool
	ICECandidateFired  bool
	VoiceStateFired    bool
	VoiceStateParams   rpc.VoiceStateParams
	SpeakingFired      bool
	SpeakingValue      bool
	LinkStateFired     bool
}

func (m *MockCallbacks) OnJoin(userID core.UserID, channelID core.ChannelID) error {
	m.JoinCallbackFired = true
	m.JoinedChannel = channelID

	return nil
}

func (m *MockCallbacks) OnLeave(userID core.UserID) error {
	m.LeaveCallbackFired = true

	return nil
}

func (m *MockCallbacks) OnOffer(userID core.UserID, params rpc.SDPParams) error {
	m.OfferFired = true
	m.OfferTarget = params.Target

	return nil
}

func (m *MockCallbacks) OnAnswer(userID core.UserID, params rpc.SDPParams) error {
	m.AnswerFired = true

	return nil
}

func (m *MockCallbacks) OnICECandidate(userID core.UserID, params rpc.ICECandidateParams) error {
	m.ICECandidateFired = true

	return nil
}

func (m *MockCallbacks) OnVoiceState(userID core.UserID, params rpc.VoiceStateParams) error {
	m.VoiceStateFired = true
	m.VoiceStateParams = params

	return nil
}

func (m *MockCallbacks) OnSpeaking(userID core.UserID, speaking bool) error {
	m.SpeakingFired = true
	m.SpeakingValue = speaking

	return nil
}

func (m *MockCallbacks) OnLinkState(userID core.UserID, params rpc.LinkStateParams) error {
	m.LinkStateFired = true

	return nil
}

func TestNewRouter(t *testing.T) {
	mockBus := NewMockBus()
	defer mockBus.Close()

	s := NewMockSubscriber(mockBus)

	_, err := NewRouter(s)
	assert.Nil(t, err)

	assert.Equal(t, true, s.ServerSubscribed)
	assert.Equal(t, false, s.ClientSubscribed)
}

func TestParseRpc(t *testing.T) {
	payload, err := mockServerMessagePayload(rpc.JoinMethod, `{"channel_id":"c1"}`)
	assert.Nil(t, err)

	uid, r, err := parseRpc(string(payload))
	assert.Nil(t, err)

	assert.Equal(t, mockUserID, uid)
	assert.Equal(t, rpc.JoinMethod, r.GetMethod())
}

func TestParseRpcRejectsMissingUser(t *testing.T) {
	payload := `{"rpc":{"jsonrpc":"2.0","method":"leave","params":null}}`

	_, _, err := parseRpc(payload)
	assert.Error(t, err)
}

func TestOnJoin(t *testing.T) {
	callbacks := &MockCallbacks{}

	router, mockBus := startedRouter(t, callbacks)
	router.OnJoin(callbacks.OnJoin)

	deliver(t, mockBus, rpc.JoinMethod, `{"channel_id":"c1"}`)
	<-router.Stop()

	assert.Equal(t, true, callbacks.JoinCallbackFired)
	assert.Equal(t, core.ChannelID("c1"), callbacks.JoinedChannel)
}

func TestOnLeave(t *testing.T) {
	callbacks := &MockCallbacks{}

	router, mockBus := startedRouter(t, callbacks)
	router.OnLeave(callbacks.OnLeave)

	deliver(t, mockBus, rpc.LeaveMethod, "null")
	<-router.Stop()

	assert.Equal(t, true, callbacks.LeaveCallbackFired)
}

func TestOnOffer(t *testing.T) {
	callbacks := &MockCallbacks{}

	router, mockBus := startedRouter(t, callbacks)
	router.OnOffer(callbacks.OnOffer)

	deliver(t, mockBus, rpc.SDPOfferMethod, `{"type":"offer","sdp":"v=0","target":"u2"}`)
	<-router.Stop()

	assert.Equal(t, true, callbacks.OfferFired)
	assert.Equal(t, core.UserID("u2"), callbacks.OfferTarget)
}

func TestOnAnswer(t *testing.T) {
	callbacks := &MockCallbacks{}

	router, mockBus := startedRouter(t, callbacks)
	router.OnAnswer(callbacks.OnAnswer)

	deliver(t, mockBus, rpc.SDPAnswerMethod, `{"type":"answer","sdp":"v=0","target":"u1"}`)
	<-router.Stop()

	assert.Equal(t, true, callbacks.AnswerFired)
}

func TestOnAddICECandidate(t *testing.T) {
	callbacks := &MockCallbacks{}

	router, mockBus := startedRouter(t, callbacks)
	router.OnAddICECandidate(callbacks.OnICECandidate)

	deliver(t, mockBus, rpc.ICECandidateMethod, `{"candidate":"candidate:1","target":"u2"}`)
	<-router.Stop()

	assert.Equal(t, true, callbacks.ICECandidateFired)
}

func TestOnVoiceState(t *testing.T) {
	callbacks := &MockCallbacks{}

	router, mockBus := startedRouter(t, callbacks)
	router.OnVoiceState(callbacks.OnVoiceState)

	deliver(t, mockBus, rpc.VoiceStateMethod, `{"is_muted":true,"is_deafened":false,"is_screen_sharing":false}`)
	<-router.Stop()

	assert.Equal(t, true, callbacks.VoiceStateFired)
	assert.Equal(t, true, callbacks.VoiceStateParams.IsMuted)
}

func TestOnSpeaking(t *testing.T) {
	callbacks := &MockCallbacks{}

	router, mockBus := startedRouter(t, callbacks)
	router.OnSpeaking(callbacks.OnSpeaking)

	deliver(t, mockBus, rpc.SpeakingMethod, `{"speaking":true}`)
	<-router.Stop()

	assert.Equal(t, true, callbacks.SpeakingFired)
	assert.Equal(t, true, callbacks.SpeakingValue)
}

func TestOnLinkState(t *testing.T) {
	callbacks := &MockCallbacks{}

	router, mockBus := startedRouter(t, callbacks)
	router.OnLinkState(callbacks.OnLinkState)

	deliver(t, mockBus, rpc.LinkStateMethod, `{"target":"u2","state":"connected"}`)
	<-router.Stop()

	assert.Equal(t, true, callbacks.LinkStateFired)
}

func startedRouter(t *testing.T, callbacks *MockCallbacks) (*Router, *MockBus) {
	t.Helper()

	mockBus := NewMockBus()
	s := NewMockSubscriber(mockBus)

	router, err := NewRouter(s)
	assert.Nil(t, err)

	router.OnJoin(callbacks.OnJoin)
	router.OnLeave(callbacks.OnLeave)
	router.OnOffer(callbacks.OnOffer)
	router.OnAnswer(callbacks.OnAnswer)
	router.OnAddICECandidate(callbacks.OnICECandidate)
	router.OnVoiceState(callbacks.OnVoiceState)
	router.OnSpeaking(callbacks.OnSpeaking)
	router.OnLinkState(callbacks.OnLinkState)

	<-router.Start()

	return router, mockBus
}

func deliver(t *testing.T, mockBus *MockBus, method rpc.Method, params string) {
	t.Helper()

	payload, err := mockServerMessagePayload(method, params)
	assert.Nil(t, err)

	mockBus.Messages <- &redis.Message{Payload: string(payload)}
}

func mockServerMessagePayload(method rpc.Method, params string) ([]byte, error) {
	rpcBytes := []byte(fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"%s","params":%s}`,
		string(method),
		params,
	))

	serverMessage := &ServerMessage{
		UserID:  mockUserID,
		Message: rpcBytes,
	}

	return json.Marshal(serverMessage)
}

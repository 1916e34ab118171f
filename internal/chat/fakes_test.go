package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/realtime"
)

type fakeDirectory struct {
	list []domain.Conversation
	err  error
}

func (f *fakeDirectory) ListConversations(_ context.Context) ([]domain.Conversation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

// fakeHistory permite bloquear la respuesta por partner para simular llegadas tardías.
type fakeHistory struct {
	mu     sync.Mutex
	data   map[string][]domain.Message
	err    error
	gates  map[string]chan struct{}
	called chan string
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{
		data:   make(map[string][]domain.Message),
		gates:  make(map[string]chan struct{}),
		called: make(chan string, 8),
	}
}

func (f *fakeHistory) gate(partnerID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gates[partnerID] = g
	return g
}

func (f *fakeHistory) ListMessages(ctx context.Context, partnerID string) ([]domain.Message, error) {
	f.called <- partnerID
	f.mu.Lock()
	g := f.gates[partnerID]
	data := f.data[partnerID]
	err := f.err
	f.mu.Unlock()
	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

type fakePartners struct {
	mu       sync.Mutex
	partners map[string]domain.ChatPartner
	err      error
	lastRole domain.Role
}

func (f *fakePartners) ResolvePartner(_ context.Context, partnerID string, role domain.Role) (domain.ChatPartner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRole = role
	if f.err != nil {
		return domain.ChatPartner{}, f.err
	}
	p, ok := f.partners[partnerID]
	if !ok {
		return domain.ChatPartner{}, errors.New("not found")
	}
	return p, nil
}

type fakeChannel struct {
	mu      sync.Mutex
	state   domain.ChannelState
	handler realtime.FrameHandler
	openErr error
	sendErr error
	sent    []domain.OutboundFrame
	closed  int
}

func (f *fakeChannel) Open(_ context.Context, h realtime.FrameHandler) error {
	f.mu.Lock()
	f.handler = h
	err := f.openErr
	f.mu.Unlock()
	h.OnChannelState(domain.ChannelConnecting)
	if err != nil {
		f.setState(domain.ChannelClosed)
		return err
	}
	f.setState(domain.ChannelOpen)
	return nil
}

func (f *fakeChannel) setState(state domain.ChannelState) {
	f.mu.Lock()
	f.state = state
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h.OnChannelState(state)
	}
}

func (f *fakeChannel) Send(_ context.Context, frame domain.OutboundFrame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != domain.ChannelOpen {
		return nil
	}
	f.sent = append(f.sent, frame)
	return f.sendErr
}

func (f *fakeChannel) State() domain.ChannelState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	f.setState(domain.ChannelClosed)
	return nil
}

func (f *fakeChannel) sentFrames() []domain.OutboundFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OutboundFrame(nil), f.sent...)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

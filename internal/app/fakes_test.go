package app

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"typerace/internal/domain"
)

const testParagraph = "Sphinx of black quartz, judge my vow. The five boxing wizards jump quickly."

// sentEvent is one delivery observed by recordingTransport
type sentEvent struct {
	to    string // connection ID for unicast, "room:<id>" for broadcasts
	event *domain.GameEvent
}

// recordingTransport records deliveries and delivers broadcasts to subscribed connections
type recordingTransport struct {
	mu       sync.Mutex
	sent     []sentEvent
	channels map[string]map[string]bool
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{channels: make(map[string]map[string]bool)}
}

func (r *recordingTransport) BroadcastToRoom(roomID string, event *domain.GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentEvent{to: "room:" + roomID, event: event})
}

func (r *recordingTransport) SendTo(connID string, event *domain.GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentEvent{to: connID, event: event})
}

func (r *recordingTransport) Subscribe(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels[roomID] == nil {
		r.channels[roomID] = make(map[string]bool)
	}
	r.channels[roomID][connID] = true
}

func (r *recordingTransport) Unsubscribe(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels[roomID], connID)
}

func (r *recordingTransport) subscribers(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels[roomID])
}

// events returns every recorded event of the given type
func (r *recordingTransport) events(eventType domain.EventType) []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]sentEvent, 0)
	for _, s := range r.sent {
		if s.event.Type == eventType {
			out = append(out, s)
		}
	}
	return out
}

func (r *recordingTransport) count(eventType domain.EventType) int {
	return len(r.events(eventType))
}

func (r *recordingTransport) last(eventType domain.EventType) *sentEvent {
	evs := r.events(eventType)
	if len(evs) == 0 {
		return nil
	}
	return &evs[len(evs)-1]
}

func (r *recordingTransport) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// mockParagraphs is a testify mock of ParagraphSource
type mockParagraphs struct {
	mock.Mock
}

func (m *mockParagraphs) PickParagraph() string {
	args := m.Called()
	return args.String(0)
}

type fixedParagraph string

func (f fixedParagraph) PickParagraph() string { return string(f) }

func newTestMetrics() *Metrics {
	return NewMetrics("typerace_test", prometheus.NewRegistry())
}

func newTestConfig(t *testing.T, transport Broadcaster) SessionConfig {
	t.Helper()
	settings := domain.DefaultGameSettings()
	settings.MinRoundSeconds = 1
	return SessionConfig{
		Settings:     settings,
		TickInterval: 5 * time.Millisecond,
		Broadcaster:  transport,
		Paragraphs:   fixedParagraph(testParagraph),
		Logger:       zap.NewNop(),
		Metrics:      newTestMetrics(),
	}
}

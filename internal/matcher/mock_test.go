package matcher

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/brasilintel/internal/completion"
	"github.com/sells-group/brasilintel/internal/model"
)

// mockService implements completion.Service for testing.
type mockService struct {
	mock.Mock
}

func (m *mockService) Complete(ctx context.Context, req completion.Request) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// memRecorder captures telemetry events.
type memRecorder struct {
	mu     sync.Mutex
	events []model.APIEvent
}

func (r *memRecorder) Record(_ context.Context, ev model.APIEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *memRecorder) all() []model.APIEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.APIEvent, len(r.events))
	copy(out, r.events)
	return out
}

func testRoster() []model.Insurer {
	return []model.Insurer{
		{ID: 1, Name: "Porto Seguro", Enabled: true},
		{ID: 2, Name: "SulAmérica", SearchTerms: model.ParseSearchTerms("Sul America Seguros"), Enabled: true},
		{ID: 3, Name: "AIG", Enabled: true},
		{ID: 4, Name: "Bradesco Seguros", SearchTerms: model.ParseSearchTerms("Bradesco Saúde, BS"), Enabled: true},
		{ID: 5, Name: "Mapfre", Enabled: false},
	}
}

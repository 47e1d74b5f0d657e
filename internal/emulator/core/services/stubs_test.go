package services

import (
	"context"
	"fmt"
	"sync"

	"ride-sim/internal/emulator/core/domain/dto"
	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/emulator/core/myerrors"
)

type pushCall struct {
	RideID string
	Status model.RideStatus
}

type evalCall struct {
	RideID string
	Score  int
}

type stubDispatch struct {
	mu           sync.Mutex
	reports      []model.Coordinate
	pushes       []pushCall
	availability []bool
	evaluations  []evalCall

	pushErr     error
	activityErr error
	evalErr     error
	pushed      chan pushCall
	// failPushes makes that many pushes fail in transport before pushErr applies.
	failPushes  int
}

func (s *stubDispatch) ReportVehiclePosition(ctx context.Context, cred model.Credential, coord model.Coordinate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, coord)
	return nil
}

func (s *stubDispatch) PushRideStatus(ctx context.Context, cred model.Credential, rideID string, status model.RideStatus) error {
	s.mu.Lock()
	call := pushCall{RideID: rideID, Status: status}
	s.pushes = append(s.pushes, call)
	err := s.pushErr
	if s.failPushes > 0 {
		s.failPushes--
		err = fmt.Errorf("%w: dispatch unreachable", myerrors.ErrTransport)
	}
	ch := s.pushed
	s.mu.Unlock()
	if ch != nil {
		ch <- call
	}
	return err
}

func (s *stubDispatch) SetAvailability(ctx context.Context, cred model.Credential, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activityErr != nil {
		return s.activityErr
	}
	s.availability = append(s.availability, active)
	return nil
}

func (s *stubDispatch) SubmitEvaluation(ctx context.Context, cred model.Credential, rideID string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluations = append(s.evaluations, evalCall{RideID: rideID, Score: score})
	return s.evalErr
}

func (s *stubDispatch) Reports() []model.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Coordinate(nil), s.reports...)
}

func (s *stubDispatch) Pushes() []pushCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pushCall(nil), s.pushes...)
}

func (s *stubDispatch) Evaluations() []evalCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]evalCall(nil), s.evaluations...)
}

func (s *stubDispatch) countPushes(status model.RideStatus) int {
	n := 0
	for _, p := range s.Pushes() {
		if p.Status == status {
			n++
		}
	}
	return n
}

type stubPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []dto.EmulatorEvent
}

func (p *stubPublisher) Publish(ctx context.Context, routingKey string, msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	if ev, ok := msg.(dto.EmulatorEvent); ok {
		p.events = append(p.events, ev)
	}
	return nil
}

func (p *stubPublisher) Events() []dto.EmulatorEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dto.EmulatorEvent(nil), p.events...)
}

type stubPositions struct {
	mu      sync.Mutex
	current map[string]model.Coordinate
	start   map[string]model.Coordinate
}

func newStubPositions() *stubPositions {
	return &stubPositions{current: map[string]model.Coordinate{}, start: map[string]model.Coordinate{}}
}

func (s *stubPositions) SaveCurrent(ctx context.Context, vehicleID string, coord model.Coordinate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[vehicleID] = coord
	return nil
}

func (s *stubPositions) SaveStart(ctx context.Context, vehicleID string, coord model.Coordinate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start[vehicleID] = coord
	return nil
}

func (s *stubPositions) Load(ctx context.Context, vehicleID string) (model.Coordinate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.current[vehicleID]
	return c, ok, nil
}

type stubJournal struct {
	mu     sync.Mutex
	events []dto.EmulatorEvent
}

func (j *stubJournal) Record(ctx context.Context, event dto.EmulatorEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
	return nil
}

func (j *stubJournal) Recent(ctx context.Context, vehicleID string, limit int) ([]dto.EmulatorEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []dto.EmulatorEvent
	for i := len(j.events) - 1; i >= 0 && len(out) < limit; i-- {
		if j.events[i].VehicleID == vehicleID {
			out = append(out, j.events[i])
		}
	}
	return out, nil
}

func (j *stubJournal) Events() []dto.EmulatorEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]dto.EmulatorEvent(nil), j.events...)
}

// stubTransport hands out channels the test writes to.
type stubTransport struct {
	mu      sync.Mutex
	streams []chan model.RideNotification
	err     error
}

func (s *stubTransport) Subscribe(ctx context.Context, cred model.Credential) (<-chan model.RideNotification, error) {
	if s.err != nil {
		return nil, s.err
	}
	in := make(chan model.RideNotification)
	out := make(chan model.RideNotification)
	s.mu.Lock()
	s.streams = append(s.streams, in)
	s.mu.Unlock()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-in:
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *stubTransport) send(n model.RideNotification) {
	s.mu.Lock()
	in := s.streams[len(s.streams)-1]
	s.mu.Unlock()
	in <- n
}

func syncSpawn(f func()) { f() }

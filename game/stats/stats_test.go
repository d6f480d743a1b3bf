package stats

import (
	"sync"
	"testing"
)

func TestConnectionCounters(t *testing.T) {
	s := New()

	s.ConnectionOpened()
	s.ConnectionOpened()
	s.ConnectionOpened()
	s.ConnectionClosed()

	snap := s.Snapshot()
	if snap.ActiveConnections != 2 {
		t.Errorf("expected 2 active, got %d", snap.ActiveConnections)
	}
	if snap.TotalConnections != 3 {
		t.Errorf("expected 3 total, got %d", snap.TotalConnections)
	}
	if snap.PeakConnections != 3 {
		t.Errorf("expected peak 3, got %d", snap.PeakConnections)
	}

	// peak is a high-water mark: reconnecting below it leaves it alone
	s.ConnectionOpened()
	snap = s.Snapshot()
	if snap.PeakConnections != 3 {
		t.Errorf("expected peak to stay at 3, got %d", snap.PeakConnections)
	}
}

func TestMessageCounters(t *testing.T) {
	s := New()

	s.MessageReceived()
	s.MessageReceived()
	s.MessagesSent(5)
	s.MessagesSent(0)

	snap := s.Snapshot()
	if snap.MessagesReceived != 2 {
		t.Errorf("expected 2 received, got %d", snap.MessagesReceived)
	}
	if snap.MessagesSent != 5 {
		t.Errorf("expected 5 sent, got %d", snap.MessagesSent)
	}
}

func TestUptime(t *testing.T) {
	s := New()

	snap := s.Snapshot()
	if snap.Uptime < 0 {
		t.Errorf("uptime should never be negative, got %v", snap.Uptime)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ConnectionOpened()
			s.MessageReceived()
			s.MessagesSent(2)
			s.ConnectionClosed()
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.ActiveConnections != 0 {
		t.Errorf("expected 0 active after balanced open/close, got %d", snap.ActiveConnections)
	}
	if snap.TotalConnections != 50 {
		t.Errorf("expected 50 total, got %d", snap.TotalConnections)
	}
	if snap.PeakConnections < 1 || snap.PeakConnections > 50 {
		t.Errorf("implausible peak %d", snap.PeakConnections)
	}
	if snap.MessagesReceived != 50 || snap.MessagesSent != 100 {
		t.Errorf("unexpected message counters: %d/%d", snap.MessagesReceived, snap.MessagesSent)
	}
}

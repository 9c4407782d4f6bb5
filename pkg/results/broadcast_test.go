package results

import (
	"context"
	"testing"
	"time"

	"github.com/Digital-Creators-Team/round-engine/game"
)

func testOutcome(periodID int64) *game.Outcome {
	return &game.Outcome{
		PeriodID: periodID,
		Family:   game.FamilyNumberColorSize,
		DrawnAt:  time.Unix(1700000000, 0),
		Wingo:    &game.WingoResult{Number: 2, Color: game.ColorRed, Size: game.SizeSmall},
	}
}

func receive(t *testing.T, ch <-chan *game.Outcome) *game.Outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an outcome")
		return nil
	}
}

func TestPublishSubscribe(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(context.Background(), game.FamilyNumberColorSize, 60)
	defer cancel()

	b.Publish(Update{
		Family:      game.FamilyNumberColorSize,
		IntervalSec: 60,
		Outcome:     testOutcome(100),
	})

	if o := receive(t, ch); o.PeriodID != 100 {
		t.Errorf("period id = %d, want 100", o.PeriodID)
	}
}

func TestSubscribeFiltersByClock(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(context.Background(), game.FamilyNumberColorSize, 60)
	defer cancel()

	// wrong interval, wrong family
	b.Publish(Update{Family: game.FamilyNumberColorSize, IntervalSec: 30, Outcome: testOutcome(1)})
	b.Publish(Update{Family: game.FamilyTripleDiceSum, IntervalSec: 60, Outcome: testOutcome(2)})
	// the matching one
	b.Publish(Update{Family: game.FamilyNumberColorSize, IntervalSec: 60, Outcome: testOutcome(3)})

	if o := receive(t, ch); o.PeriodID != 3 {
		t.Errorf("received period %d, want only the matching period 3", o.PeriodID)
	}
}

func TestCancelClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(context.Background(), game.FamilyNumberColorSize, 60)

	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestSubscriberRemovedOnCancel(t *testing.T) {
	b := NewBroadcaster()
	_, cancel := b.Subscribe(context.Background(), game.FamilyNumberColorSize, 60)
	if got := b.Subscribers(); got != 1 {
		t.Fatalf("subscribers = %d, want 1", got)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for b.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroadcaster()
	_, cancel := b.Subscribe(context.Background(), game.FamilyNumberColorSize, 60)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// far more updates than any buffer holds; the publisher must
		// drop rather than stall
		for i := 0; i < 1000; i++ {
			b.Publish(Update{
				Family:      game.FamilyNumberColorSize,
				IntervalSec: 60,
				Outcome:     testOutcome(int64(i)),
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

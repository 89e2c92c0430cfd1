package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestDoReturnsJobError(t *testing.T) {
	q := NewQueue(4, quietLogger())
	q.Start()
	defer q.Stop()

	wantErr := errors.New("encode failed")
	if err := q.Do(context.Background(), "job-1", func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if err := q.Do(context.Background(), "job-2", func() error { return nil }); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
}

func TestJobsRunSequentiallyInOrder(t *testing.T) {
	q := NewQueue(8, quietLogger())
	q.Start()
	defer q.Stop()

	var mu sync.Mutex
	var order []int
	running := 0

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		// Stagger submissions so queue order is deterministic.
		time.Sleep(5 * time.Millisecond)
		go func() {
			defer wg.Done()
			q.Do(context.Background(), "job", func() error {
				mu.Lock()
				running++
				if running > 1 {
					t.Error("two jobs in flight at once")
				}
				order = append(order, i)
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("execution order %v, want ascending", order)
		}
	}
}

func TestDoRespectsCancelledContext(t *testing.T) {
	q := NewQueue(1, quietLogger())
	q.Start()
	defer q.Stop()

	release := make(chan struct{})
	go q.Do(context.Background(), "blocker", func() error {
		<-release
		return nil
	})
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err := q.Do(ctx, "waiter", func() error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
	close(release)
}

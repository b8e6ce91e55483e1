package logger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBufferConcurrentAccess(t *testing.T) {
	buffer := NewBuffer(100)

	var wg sync.WaitGroup
	numGoroutines := 10
	logsPerGoroutine := 100

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				buffer.Add(LogEntry{
					Timestamp: time.Now(),
					Level:     "info",
					Message:   fmt.Sprintf("Log from goroutine %d, iteration %d", id, j),
				})
			}
		}(i)
	}

	// Concurrent reads
	go func() {
		for i := 0; i < 50; i++ {
			_ = buffer.Recent(10)
		}
	}()

	wg.Wait()

	if got := buffer.Total(); got != uint64(numGoroutines*logsPerGoroutine) {
		t.Errorf("Expected %d entries, got %d", numGoroutines*logsPerGoroutine, got)
	}
	if got := len(buffer.Recent(0)); got != 100 {
		t.Errorf("Expected full ring of 100, got %d", got)
	}
}

func TestBufferRecentOrder(t *testing.T) {
	buffer := NewBuffer(3)
	for i := 0; i < 5; i++ {
		buffer.Add(LogEntry{Message: fmt.Sprint(i)})
	}

	recent := buffer.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(recent))
	}
	for i, want := range []string{"2", "3", "4"} {
		if recent[i].Message != want {
			t.Errorf("entry %d: expected %s, got %s", i, want, recent[i].Message)
		}
	}

	last := buffer.Recent(2)
	if len(last) != 2 || last[0].Message != "3" || last[1].Message != "4" {
		t.Errorf("Unexpected tail: %+v", last)
	}
}

func TestTUILoggerWritesToBuffer(t *testing.T) {
	buffer := NewBuffer(10)
	log := NewTUI(Config{}, buffer)

	log.Info("Tickets bought", zap.Int("count", 3))
	log.Debug("hidden at info level")

	recent := buffer.Recent(0)
	if len(recent) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(recent))
	}
	if recent[0].Message != "Tickets bought" || recent[0].Level != "info" {
		t.Errorf("Unexpected entry: %+v", recent[0])
	}
}

func TestShorten(t *testing.T) {
	if got := ShortenAddress("So11111111111111111111111111111111111111112"); got != "So11...1112" {
		t.Errorf("ShortenAddress = %s", got)
	}
	if got := ShortenAddress("short"); got != "short" {
		t.Errorf("ShortenAddress = %s", got)
	}
}

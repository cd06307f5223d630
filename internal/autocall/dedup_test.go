package autocall

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDedupMarkAndContains(t *testing.T) {
	d := NewDedup(10 * time.Minute)
	leadID := uuid.New()

	if d.Contains(leadID, "+15551234567") {
		t.Fatal("empty set must not contain anything")
	}

	d.MarkDialed(leadID, "+15551234567")
	if !d.Contains(leadID, "+15551234567") {
		t.Error("marked pair must be contained")
	}
	if d.Contains(leadID, "+15559999999") {
		t.Error("different phone must not match")
	}
	if d.Contains(uuid.New(), "+15551234567") {
		t.Error("different lead must not match")
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}
}

func TestDedupEntriesExpire(t *testing.T) {
	d := NewDedup(10 * time.Minute)
	current := time.Now()
	d.now = func() time.Time { return current }

	leadID := uuid.New()
	d.MarkDialed(leadID, "+15551234567")

	current = current.Add(9 * time.Minute)
	if !d.Contains(leadID, "+15551234567") {
		t.Error("entry must survive inside the TTL")
	}

	current = current.Add(2 * time.Minute)
	if d.Contains(leadID, "+15551234567") {
		t.Error("entry must expire after the TTL")
	}
	if d.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after expiry", d.Len())
	}
}

func TestDedupLazyPurge(t *testing.T) {
	d := NewDedup(time.Minute)
	current := time.Now()
	d.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		d.MarkDialed(uuid.New(), "+15551234567")
	}
	if d.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", d.Len())
	}

	current = current.Add(2 * time.Minute)
	d.MarkDialed(uuid.New(), "+15550000000")
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after purge", d.Len())
	}
}

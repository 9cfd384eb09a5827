package ids

import (
	"strings"
	"sync"
	"testing"
)

func TestUUIDCodesAreUniqueAndPrefixed(t *testing.T) {
	var g UUID
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := g.NewCode(PrefixPurchase)
		if !strings.HasPrefix(code, "PO-") {
			t.Fatalf("expected PO- prefix, got %q", code)
		}
		if seen[code] {
			t.Fatalf("duplicate code %q", code)
		}
		seen[code] = true
	}
}

func TestSequenceConcurrent(t *testing.T) {
	var s Sequence
	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code := s.NewCode(PrefixTransfer)
			mu.Lock()
			seen[code] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 50 {
		t.Errorf("expected 50 distinct codes, got %d", len(seen))
	}
	if got := s.NewCode(PrefixAssignment); got != "AS-000051" {
		t.Errorf("expected AS-000051, got %q", got)
	}
}

func TestAssetCode(t *testing.T) {
	got := AssetCode("VEH", "PO-000001", 1, 3)
	if got != "VEH-PO-000001-1-3" {
		t.Errorf("unexpected asset code %q", got)
	}
}

package subject_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"math"
	"testing"

	"github.com/xraph/dpledger/subject"
)

func testKey(t *testing.T) subject.Key {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	key, err := subject.KeyFromVerifyKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestKeyRoundTrip(t *testing.T) {
	key := testKey(t)

	parsed, err := subject.ParseKey(key.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed != key {
		t.Errorf("ParseKey(String()) = %v, want %v", parsed, key)
	}

	text, err := key.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var unmarshaled subject.Key
	if err := unmarshaled.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if unmarshaled != key {
		t.Errorf("UnmarshalText(MarshalText()) = %v, want %v", unmarshaled, key)
	}
}

func TestKeyFromBytesRejectsWrongSize(t *testing.T) {
	if _, err := subject.KeyFromBytes(make([]byte, 16)); err == nil {
		t.Fatal("expected error for short key bytes")
	}
}

func TestNilKey(t *testing.T) {
	if !subject.NilKey.IsNil() {
		t.Error("NilKey.IsNil() = false")
	}
	if testKey(t).IsNil() {
		t.Error("generated key reported nil")
	}
}

func TestAccumulateIsAdditive(t *testing.T) {
	led := subject.NewLedger(testKey(t))

	led.Accumulate(map[string]float64{"alice": 0.5, "bob": 1.25})
	led.Accumulate(map[string]float64{"alice": 0.25})

	if got := led.Constants["alice"]; math.Abs(got-0.75) > 1e-12 {
		t.Errorf("alice = %v, want 0.75", got)
	}
	if got := led.Constants["bob"]; math.Abs(got-1.25) > 1e-12 {
		t.Errorf("bob = %v, want 1.25", got)
	}
}

func TestSnapshotIsSortedAndAligned(t *testing.T) {
	led := subject.NewLedger(testKey(t))
	led.Accumulate(map[string]float64{"carol": 3, "alice": 1, "bob": 2})

	names, constants := led.Snapshot()

	wantNames := []string{"alice", "bob", "carol"}
	wantConstants := []float64{1, 2, 3}
	if len(names) != 3 || len(constants) != 3 {
		t.Fatalf("Snapshot lengths %d, %d, want 3, 3", len(names), len(constants))
	}
	for i := range wantNames {
		if names[i] != wantNames[i] || constants[i] != wantConstants[i] {
			t.Errorf("Snapshot[%d] = (%s, %v), want (%s, %v)",
				i, names[i], constants[i], wantNames[i], wantConstants[i])
		}
	}
}

func TestMarkUpdatedIncrementsCounter(t *testing.T) {
	led := subject.NewLedger(testKey(t))
	before := led.LastUpdated

	led.MarkUpdated()
	led.MarkUpdated()

	if led.UpdateCount != 2 {
		t.Errorf("UpdateCount = %d, want 2", led.UpdateCount)
	}
	if led.LastUpdated.Before(before) {
		t.Error("LastUpdated moved backwards")
	}
}

func TestEqualComparesPersistedFields(t *testing.T) {
	key := testKey(t)

	a := subject.NewLedger(key)
	a.Accumulate(map[string]float64{"alice": 0.5})

	b := subject.NewLedger(key)
	b.Accumulate(map[string]float64{"alice": 0.5})
	b.LastUpdated = a.LastUpdated

	if !a.Equal(b) {
		t.Error("identical ledgers reported unequal")
	}

	// The transient pending-save flag must not affect equality.
	b.PendingSave = true
	if !a.Equal(b) {
		t.Error("pending-save flag affected equality")
	}

	b.Accumulate(map[string]float64{"alice": 0.1})
	if a.Equal(b) {
		t.Error("diverged ledgers reported equal")
	}
	if a.Equal(nil) {
		t.Error("Equal(nil) = true")
	}
}

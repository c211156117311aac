package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/dpledger/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"SpendAttemptID", id.NewSpendAttemptID, "spnd_"},
		{"AuditEventID", id.NewAuditEventID, "aevt_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixSpendAttempt)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixSpendAttempt {
		t.Errorf("expected prefix %q, got %q", id.PrefixSpendAttempt, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	orig := id.NewAuditEventID()

	parsed, err := id.Parse(orig.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.String() != orig.String() {
		t.Errorf("Parse(String()) = %q, want %q", parsed.String(), orig.String())
	}
}

func TestParseWithPrefix(t *testing.T) {
	spend := id.NewSpendAttemptID()

	if _, err := id.ParseSpendAttemptID(spend.String()); err != nil {
		t.Errorf("ParseSpendAttemptID: %v", err)
	}
	if _, err := id.ParseAuditEventID(spend.String()); err == nil {
		t.Error("ParseAuditEventID accepted a spend attempt ID")
	}
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{"", "not-an-id", "spnd_!!!"} {
		if _, err := id.Parse(s); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", s)
		}
	}
}

func TestTextMarshaling(t *testing.T) {
	orig := id.NewSpendAttemptID()

	text, err := orig.MarshalText()
	if err != nil {
		t.Fatal(err)
	}

	var decoded id.ID
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if decoded.String() != orig.String() {
		t.Errorf("UnmarshalText = %q, want %q", decoded.String(), orig.String())
	}
}

func TestNilID(t *testing.T) {
	if !id.Nil.IsNil() {
		t.Error("Nil.IsNil() = false")
	}
	if id.Nil.String() != "" {
		t.Errorf("Nil.String() = %q, want empty", id.Nil.String())
	}
}

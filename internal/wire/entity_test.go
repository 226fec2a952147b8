package wire

import (
	"bytes"
	"testing"
	"time"
)

func TestParseEntityID(t *testing.T) {
	tests := []struct {
		in      string
		want    EntityID
		wantErr bool
	}{
		{in: "0.0.1001", want: NewEntityID(0, 0, 1001)},
		{in: " 1.2.3 ", want: NewEntityID(1, 2, 3)},
		{in: "0.0", wantErr: true},
		{in: "0.0.x", wantErr: true},
		{in: "0.-1.5", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseEntityID(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseEntityID(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseEntityID(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseEntityID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEntityIDValidate(t *testing.T) {
	if err := (EntityID{}).Validate(); err == nil {
		t.Fatal("expected zero id to be rejected")
	}
	if err := NewEntityID(0, 0, 2).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionIDStringRoundTrip(t *testing.T) {
	ids := []TransactionID{
		{Payer: NewEntityID(0, 0, 2), ValidStart: Timestamp{Seconds: 1700000000, Nanos: 42}},
		{Payer: NewEntityID(0, 0, 2), ValidStart: Timestamp{Seconds: 1700000000, Nanos: 42}, Scheduled: true},
		{Payer: NewEntityID(0, 0, 7), ValidStart: Timestamp{Seconds: 5}, Nonce: 3},
		{Payer: NewEntityID(1, 2, 3), ValidStart: Timestamp{Seconds: 9, Nanos: 999999999}, Scheduled: true, Nonce: 1},
	}
	for _, id := range ids {
		s := id.String()
		parsed, err := ParseTransactionID(s)
		if err != nil {
			t.Fatalf("ParseTransactionID(%q): %v", s, err)
		}
		if !parsed.Equal(id) {
			t.Fatalf("round trip mismatch: %v != %v", parsed, id)
		}
	}
}

func TestTransactionIDEqualityCoversAllFields(t *testing.T) {
	base := TransactionID{Payer: NewEntityID(0, 0, 2), ValidStart: Timestamp{Seconds: 10, Nanos: 1}}
	variants := []TransactionID{
		{Payer: NewEntityID(0, 0, 3), ValidStart: base.ValidStart},
		{Payer: base.Payer, ValidStart: Timestamp{Seconds: 10, Nanos: 2}},
		base.AsScheduled(),
		{Payer: base.Payer, ValidStart: base.ValidStart, Nonce: 1},
	}
	for _, v := range variants {
		if base.Equal(v) {
			t.Fatalf("expected %v != %v", base, v)
		}
		a, _ := Marshal(base)
		b, _ := Marshal(v)
		if bytes.Equal(a, b) {
			t.Fatalf("expected distinct encodings for %v and %v", base, v)
		}
	}
	if base.Scheduled {
		t.Fatal("AsScheduled must not mutate the receiver")
	}
}

func TestParseTransactionIDErrors(t *testing.T) {
	for _, in := range []string{"", "0.0.2", "0.0.2@abc", "0.0.2@1.x", "0.0.2@1.5/n", "x@1.5"} {
		if _, err := ParseTransactionID(in); err == nil {
			t.Fatalf("ParseTransactionID(%q): expected error", in)
		}
	}
}

func TestTimestamp(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC)
	ts := TimestampFromTime(now)
	if !ts.Time().Equal(now) {
		t.Fatalf("Time() = %v, want %v", ts.Time(), now)
	}
	later := ts.Add(time.Nanosecond)
	if !ts.Before(later) || later.Before(ts) {
		t.Fatal("Before ordering broken")
	}
	if got := (Timestamp{Seconds: 3, Nanos: 7}).String(); got != "3.000000007" {
		t.Fatalf("String() = %q", got)
	}
}

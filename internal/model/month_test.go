package model

import (
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid month", input: "2024-03", wantErr: false},
		{name: "valid december", input: "2023-12", wantErr: false},
		{name: "missing month part", input: "2024", wantErr: true},
		{name: "full date", input: "2024-03-15", wantErr: true},
		{name: "month out of range", input: "2024-13", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "march 2024", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMonth(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMonth(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		want    []string
		wantErr bool
	}{
		{
			name: "single month",
			from: "2024-03", to: "2024-03",
			want: []string{"2024-03"},
		},
		{
			name: "spans a year boundary",
			from: "2023-11", to: "2024-02",
			want: []string{"2023-11", "2023-12", "2024-01", "2024-02"},
		},
		{
			name: "end before start",
			from: "2024-03", to: "2024-01",
			wantErr: true,
		},
		{
			name: "invalid from",
			from: "2024", to: "2024-03",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MonthRange(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MonthRange(%q, %q) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("MonthRange(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("MonthRange(%q, %q)[%d] = %q, want %q", tt.from, tt.to, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMonthOf(t *testing.T) {
	date := time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC)
	if got := MonthOf(date); got != "2024-03" {
		t.Errorf("MonthOf(%v) = %q, want %q", date, got, "2024-03")
	}
}

func TestLedgerState_CanAdvanceTo(t *testing.T) {
	tests := []struct {
		from LedgerState
		to   LedgerState
		want bool
	}{
		{StateOpen, StateOpen, true},
		{StateOpen, StateSubmitted, true},
		{StateOpen, StateFinalized, true},
		{StateSubmitted, StateSubmitted, true},
		{StateSubmitted, StateFinalized, true},
		{StateSubmitted, StateOpen, false},
		{StateFinalized, StateFinalized, true},
		{StateFinalized, StateSubmitted, false},
		{StateFinalized, StateOpen, false},
		{LedgerState("BOGUS"), StateOpen, false},
		{StateOpen, LedgerState("BOGUS"), false},
	}

	for _, tt := range tests {
		if got := tt.from.CanAdvanceTo(tt.to); got != tt.want {
			t.Errorf("%s.CanAdvanceTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestMonthLedger_Locked(t *testing.T) {
	for _, tt := range []struct {
		state LedgerState
		want  bool
	}{
		{StateOpen, false},
		{StateSubmitted, false},
		{StateFinalized, true},
	} {
		ledger := MonthLedger{Month: "2024-01", State: tt.state}
		if got := ledger.Locked(); got != tt.want {
			t.Errorf("Locked() with state %s = %v, want %v", tt.state, got, tt.want)
		}
	}
}

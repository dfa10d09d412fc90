package slotkey

import (
	"testing"

	"github.com/JonCoulter/whenly/modules/availability/entity"
)

func TestDecodeDateKey(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Selector
		wantErr bool
	}{
		{
			name: "plain date key",
			raw:  "2024-03-15-09:00",
			want: Selector{Date: "2024-03-15", StartTime: "09:00"},
		},
		{
			name: "legacy undefined suffix stripped",
			raw:  "2024-03-15-09:00-undefined",
			want: Selector{Date: "2024-03-15", StartTime: "09:00"},
		},
		{
			name: "twelve hour time token",
			raw:  "2024-12-01-9:30 PM",
			want: Selector{Date: "2024-12-01", StartTime: "9:30 PM"},
		},
		{name: "too few tokens", raw: "2024-03-09:00", wantErr: true},
		{name: "missing time token", raw: "2024-03-15-", wantErr: true},
		{name: "extra dash in time token", raw: "2024-03-15-09:00-10:00", wantErr: true},
		{name: "weekday shaped key", raw: "Monday-09:00", wantErr: true},
		{name: "non numeric date", raw: "20a4-03-15-09:00", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "bare suffix", raw: "-undefined", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(entity.EventKindSpecificDates, tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Decode(%q) succeeded, want error", tt.raw)
				}
				if _, ok := err.(*MalformedKeyError); !ok {
					t.Fatalf("Decode(%q) error type = %T, want *MalformedKeyError", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("Decode(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecodeWeekdayKey(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Selector
		wantErr bool
	}{
		{
			name: "plain weekday key",
			raw:  "Monday-09:00",
			want: Selector{Weekday: "Monday", StartTime: "09:00"},
		},
		{
			name: "legacy undefined suffix stripped",
			raw:  "Friday-10:30-undefined",
			want: Selector{Weekday: "Friday", StartTime: "10:30"},
		},
		{name: "no dash", raw: "Monday", wantErr: true},
		{name: "missing weekday", raw: "-09:00", wantErr: true},
		{name: "missing time", raw: "Monday-", wantErr: true},
		{name: "date shaped key", raw: "2024-03-15-09:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(entity.EventKindWeekdaySet, tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Decode(%q) succeeded, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("Decode(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cases := []struct {
		kind entity.EventKind
		raw  string
	}{
		{entity.EventKindSpecificDates, "2024-03-15-09:00"},
		{entity.EventKindSpecificDates, "2024-12-01-9:30 PM"},
		{entity.EventKindWeekdaySet, "Monday-09:00"},
		{entity.EventKindWeekdaySet, "Sunday-11:45 AM"},
	}

	for _, tc := range cases {
		sel, err := Decode(tc.kind, tc.raw)
		if err != nil {
			t.Fatalf("Decode(%q) error: %v", tc.raw, err)
		}
		if got := Encode(sel); got != tc.raw {
			t.Errorf("Encode(Decode(%q)) = %q", tc.raw, got)
		}
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	if _, err := Decode(entity.EventKind("weekly"), "Monday-09:00"); err == nil {
		t.Fatal("Decode with unknown kind succeeded, want error")
	}
}

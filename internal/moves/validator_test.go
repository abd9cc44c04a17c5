package moves

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"dice_value":6,"piece_moved":1,"from_position":0,"to_position":1}`, false},
		{"dice too high", `{"dice_value":7,"piece_moved":1,"from_position":0,"to_position":1}`, true},
		{"dice zero", `{"dice_value":0,"piece_moved":1,"from_position":0,"to_position":1}`, true},
		{"missing piece", `{"dice_value":3,"from_position":0,"to_position":3}`, true},
		{"unknown field", `{"dice_value":3,"piece_moved":2,"from_position":0,"to_position":3,"cheat":true}`, true},
		{"fractional", `{"dice_value":2.5,"piece_moved":2,"from_position":0,"to_position":3}`, true},
		{"position out of board", `{"dice_value":3,"piece_moved":2,"from_position":56,"to_position":59}`, true},
		{"not json", `dice=6`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := v.Parse(json.RawMessage(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMove) {
					t.Fatalf("err = %v, want ErrInvalidMove", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.DiceValue != 6 || m.PieceMoved != 1 || m.ToPosition != 1 {
				t.Fatalf("decoded = %+v", m)
			}
		})
	}
}

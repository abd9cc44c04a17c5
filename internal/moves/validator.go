// Package moves checks the shape of move reports. Whether a move is legal on
// the board is decided by the rules adjudicator before it reaches us.
package moves

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed move.schema.json
var moveSchema string

const moveSchemaID = "https://zugu-ludo.dev/schemas/move.json"

// ErrInvalidMove can be used with errors.Is to detect schema failures.
var ErrInvalidMove = errors.New("invalid move")

// Move is a decoded, schema-valid move report.
type Move struct {
	DiceValue    int `json:"dice_value"`
	PieceMoved   int `json:"piece_moved"`
	FromPosition int `json:"from_position"`
	ToPosition   int `json:"to_position"`
}

type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	schema, err := jsonschema.CompileString(moveSchemaID, moveSchema)
	if err != nil {
		return nil, fmt.Errorf("compile move schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Parse validates raw against the move schema and decodes it.
func (v *Validator) Parse(raw json.RawMessage) (Move, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Move{}, fmt.Errorf("%w: invalid JSON: %v", ErrInvalidMove, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return Move{}, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	var m Move
	if err := json.Unmarshal(raw, &m); err != nil {
		return Move{}, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	return m, nil
}

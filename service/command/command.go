// Package command decodes and validates commands sent by the remote
// controller.
package command

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/viant/slotor/model/test"
)

// Type is a command type
type Type string

const (
	TypeStartTest Type = "start_test"
	TypeStopTest  Type = "stop_test"
)

// ErrInvalidCommand wraps every decoding or validation failure
var ErrInvalidCommand = errors.New("invalid command")

//go:embed command.schema.json
var schemaJSON []byte

const schemaURL = "command.schema.json"

// Command is a decoded controller command
type Command struct {
	Type    Type         `json:"type"`
	SlotIdx int          `json:"slot_idx"`
	Config  *test.Config `json:"config,omitempty"`
}

// run holds the nested test section some controllers send instead of flat
// loop settings
type run struct {
	Method    string `json:"method,omitempty"`
	Capacity  string `json:"capacity,omitempty"`
	LoopCount int    `json:"loop_count,omitempty"`
	LoopStep  int    `json:"loop_step,omitempty"`
}

type envelope struct {
	Type    Type            `json:"type"`
	SlotIdx int             `json:"slot_idx"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Decoder validates raw commands against the command schema
type Decoder struct {
	schema *jsonschema.Schema
}

// Decode parses and validates raw. Start commands also pass test.Config
// validation after defaults are applied.
func (d *Decoder) Decode(raw []byte) (*Command, error) {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrInvalidCommand, err)
	}
	if err := d.schema.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	ret := &Command{Type: env.Type, SlotIdx: env.SlotIdx}
	if env.Type != TypeStartTest {
		return ret, nil
	}
	cfg, err := decodeConfig(env.Config)
	if err != nil {
		return nil, err
	}
	ret.Config = cfg
	return ret, nil
}

func decodeConfig(raw json.RawMessage) (*test.Config, error) {
	var cfg struct {
		test.Config
		Test *run `json:"test,omitempty"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: config: %v", ErrInvalidCommand, err)
	}
	ret := cfg.Config
	if nested := cfg.Test; nested != nil {
		if nested.Method != "" {
			ret.Method = nested.Method
		}
		if nested.Capacity != "" {
			ret.Capacity = nested.Capacity
		}
		if nested.LoopCount != 0 {
			ret.LoopCount = nested.LoopCount
		}
		if nested.LoopStep != 0 {
			ret.LoopStep = nested.LoopStep
		}
	}
	ret.Init()
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return &ret, nil
}

// NewDecoder compiles the embedded command schema
func NewDecoder() (*Decoder, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to load command schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile command schema: %w", err)
	}
	return &Decoder{schema: schema}, nil
}

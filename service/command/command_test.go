package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/slotor/model/test"
)

func TestDecoder_Decode(t *testing.T) {
	decoder, err := NewDecoder()
	require.NoError(t, err)

	testCases := []struct {
		description string
		raw         string
		expect      *Command
		expectErr   bool
	}{
		{
			description: "flat start",
			raw:         `{"type":"start_test","slot_idx":1,"config":{"drive":"E","method":"Cycle","capacity":"32GB","loop_count":10,"loop_step":3}}`,
			expect: &Command{Type: TypeStartTest, SlotIdx: 1, Config: &test.Config{
				Drive: "E", Method: "Cycle", Capacity: "32GB", LoopCount: 10, LoopStep: 3, TestName: "USB Test",
			}},
		},
		{
			description: "nested test section with precondition",
			raw: `{"type":"start_test","slot_idx":0,"config":{"drive":"H","test_preset":"Hot","test_id":"t-1",
				"precondition":{"enabled":true,"capacity":"64GB","method":"0HR","loop_count":1},
				"test":{"capacity":"4GB","method":"0HR","loop_count":10,"loop_step":2}}}`,
			expect: &Command{Type: TypeStartTest, SlotIdx: 0, Config: &test.Config{
				TestID: "t-1", TestName: "USB Test", Drive: "H", Preset: "Hot", Method: "0HR", Capacity: "4GB", LoopCount: 10, LoopStep: 2,
				Precondition: test.Precondition{Enabled: true, Method: "0HR", Capacity: "64GB", LoopCount: 1},
			}},
		},
		{
			description: "stop",
			raw:         `{"type":"stop_test","slot_idx":3}`,
			expect:      &Command{Type: TypeStopTest, SlotIdx: 3},
		},
		{description: "malformed json", raw: `{"type":`, expectErr: true},
		{description: "unknown type", raw: `{"type":"reboot","slot_idx":0}`, expectErr: true},
		{description: "negative slot", raw: `{"type":"stop_test","slot_idx":-1}`, expectErr: true},
		{description: "start without config", raw: `{"type":"start_test","slot_idx":0}`, expectErr: true},
		{description: "missing drive", raw: `{"type":"start_test","slot_idx":0,"config":{"loop_count":1}}`, expectErr: true},
		{description: "missing loop count", raw: `{"type":"start_test","slot_idx":0,"config":{"drive":"E"}}`, expectErr: true},
		{description: "zero loop step", raw: `{"type":"start_test","slot_idx":0,"config":{"drive":"E","loop_count":4,"loop_step":0}}`, expectErr: true},
	}
	for _, tc := range testCases {
		actual, err := decoder.Decode([]byte(tc.raw))
		if tc.expectErr {
			assert.True(t, errors.Is(err, ErrInvalidCommand), tc.description)
			continue
		}
		require.NoError(t, err, tc.description)
		assert.Equal(t, tc.expect, actual, tc.description)
	}
}

package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/slotor/service/dao"
)

func TestFilterByState(t *testing.T) {
	testCases := []struct {
		description string
		state       string
		parameters  []*dao.Parameter
		expect      bool
	}{
		{description: "no parameters", state: "running", expect: true},
		{description: "single match", state: "running", parameters: []*dao.Parameter{dao.NewParameter(dao.ParameterState, "running")}, expect: true},
		{description: "single mismatch", state: "idle", parameters: []*dao.Parameter{dao.NewParameter(dao.ParameterState, "running")}, expect: false},
		{description: "any of", state: "failed", parameters: []*dao.Parameter{dao.NewParameter(dao.ParameterState, "completed", "failed")}, expect: true},
		{description: "none of", state: "idle", parameters: []*dao.Parameter{dao.NewParameter(dao.ParameterState, "completed", "failed")}, expect: false},
		{description: "other parameter ignored", state: "idle", parameters: []*dao.Parameter{dao.NewParameter("TestID", "x")}, expect: true},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expect, FilterByState(tc.state, tc.parameters), tc.description)
	}
}

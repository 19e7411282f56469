package dao

// Parameter narrows List results
type Parameter struct {
	Name  string
	Value interface{}
}

// ParameterState filters by entity state
const ParameterState = "State"

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

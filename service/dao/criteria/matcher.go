package criteria

import (
	"github.com/viant/slotor/service/dao"
)

// FilterByState returns true when state matches every State parameter;
// other parameters are ignored.
func FilterByState(state string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil || parameter.Name != dao.ParameterState {
			continue
		}
		switch actual := parameter.Value.(type) {
		case string:
			if state != actual {
				return false
			}
		case []string:
			matched := false
			for _, s := range actual {
				if state == s {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}

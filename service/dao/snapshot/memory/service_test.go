package memory

import (
	"testing"

	"github.com/viant/slotor/service/dao/snapshot/storetest"
)

func TestService(t *testing.T) {
	storetest.Run(t, New())
}

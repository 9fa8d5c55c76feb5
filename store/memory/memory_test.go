package memory_test

import (
	"testing"

	"github.com/warp/payroll-engine/store"
	"github.com/warp/payroll-engine/store/memory"
	"github.com/warp/payroll-engine/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return memory.New() })
}

package chat

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package if an exchange goroutine outlives its test.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"))
}

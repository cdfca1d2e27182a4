package testutil

import (
	"os"
	"testing"
)

// RequireVM skips the test if the SCALPEL_VM_TEST environment variable is not
// set. This ensures that tests requiring real kernel capabilities (raw
// AF_PACKET sockets, network namespaces) are only run in the proper
// environment.
func RequireVM(t *testing.T) {
	t.Helper()
	if os.Getenv("SCALPEL_VM_TEST") == "" {
		t.Skip("Skipping test: requires SCALPEL_VM_TEST environment")
	}
}

//go:build integration
// +build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

// restartStorefront bounces the service container. Orders placed before the
// restart survive only with the postgres driver.
func restartStorefront(t *testing.T, ctx context.Context) {
	t.Helper()

	service := getenv("E2E_SERVICE", "storefront")
	cmd := exec.CommandContext(ctx, "docker", "compose", "restart", service)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose restart %s failed: %v\n%s", service, err, string(out))
	}
}

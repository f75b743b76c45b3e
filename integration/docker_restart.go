//go:build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

// restartCatalogContainer bounces the catalog service so the in-memory
// collection is dropped. E2E_COMPOSE_SERVICE overrides the service name.
func restartCatalogContainer(t *testing.T, ctx context.Context) {
	t.Helper()

	service := getenv("E2E_COMPOSE_SERVICE", "catalog")
	args := []string{"compose"}
	if f := getenv("E2E_COMPOSE_FILE", ""); f != "" {
		args = append(args, "-f", f)
	}
	args = append(args, "restart", service)

	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose restart %s failed: %v\n%s", service, err, string(out))
	}
}

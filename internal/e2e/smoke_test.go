package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	stdout, stderr, err := runSW(t, binaryPath, home, testKeyHex+"\n", "wallet", "import")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")

	_, stderr, err = runSW(t, binaryPath, home, "", "contact", "add", "alice", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err = runSW(t, binaryPath, home, "", "batch", "--dry-run", "alice:1", "alice:2")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "calls: 2")

	_, stderr, err = runSW(t, binaryPath, home, "", "status")
	require.Error(t, err)
	assert.Contains(t, stderr, "network is not configured")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "sw-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/sw")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build sw binary: %s", string(output))
	return binaryPath
}

func runSW(t *testing.T, binaryPath, home, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = home
	cmd.Env = append(os.Environ(), "HOME="+home, "SW_STORAGE_SECRETS_BACKEND=file")
	cmd.Stdin = strings.NewReader(stdin)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

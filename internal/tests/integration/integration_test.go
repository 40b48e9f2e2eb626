//go:build !windows

// Package integration runs go-vaultcmd against a real Vault dev server. The
// tests are skipped when no vault binary is on the PATH.
package integration

import (
	"context"
	"io"
	"net"
	"net/http"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tfs "gotest.tools/v3/fs"
	"gotest.tools/v3/icmd"
)

const vaultRootToken = "00000000-1111-2222-3333-444455556666"

// freeport - find a free TCP port for immediate use. No guarantees!
func freeport(t *testing.T) (port int, addr string) {
	t.Helper()

	l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatal(err)
	}

	defer l.Close()

	a := l.Addr().(*net.TCPAddr)

	return a.Port, a.String()
}

// waitForURL - waits up to 20s for a given URL to respond with a 200
func waitForURL(ctx context.Context, t *testing.T, url string) error {
	client := http.DefaultClient

	retries := 100
	for retries > 0 {
		retries--

		time.Sleep(200 * time.Millisecond)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		assert.NoError(t, err)

		resp, err := client.Do(req)
		if err != nil {
			t.Logf("Got error, retries left: %d (error: %v)", retries, err)

			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if err != nil {
			t.Logf("Body is: %s", body)

			return err
		}

		if resp.StatusCode == http.StatusOK {
			return nil
		}
	}

	return nil
}

// startVault runs a dev-mode Vault, which is initialized, unsealed, and has
// K/V version 2 mounted at secret/. It returns the address.
func startVault(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("vault"); err != nil {
		t.Skip("vault binary not found")
	}

	pidDir := tfs.NewDir(t, "vaultcmd-inttests-vaultpid")
	t.Cleanup(pidDir.Remove)

	tmpDir := tfs.NewDir(t, "vaultcmd-inttests",
		tfs.WithFile("config.json", `{
		"pid_file": "`+pidDir.Join("vault.pid")+`"
		}`),
	)
	t.Cleanup(tmpDir.Remove)

	// keep the dev server from overwriting ~/.vault-token
	t.Setenv("HOME", tmpDir.Path())
	t.Setenv("VAULT_TOKEN", "")
	t.Setenv("VAULT_NAMESPACE", "")

	_, vaultAddr := freeport(t)
	vault := icmd.Command("vault", "server",
		"-dev",
		"-dev-root-token-id="+vaultRootToken,
		"-log-level=err",
		"-dev-listen-address="+vaultAddr,
		"-config="+tmpDir.Join("config.json"),
	)
	result := icmd.StartCmd(vault)

	t.Logf("Fired up Vault: %v", vault)

	err := waitForURL(t.Context(), t, "http://"+vaultAddr+"/v1/sys/health")
	require.NoError(t, err)

	t.Cleanup(func() {
		err := result.Cmd.Process.Kill()
		require.NoError(t, err)

		_ = result.Cmd.Wait()
	})

	return "http://" + vaultAddr
}

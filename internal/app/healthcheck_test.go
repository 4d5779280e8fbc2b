package app

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// freePort asks the kernel for an unused TCP port.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestHealthcheckServer_Lifecycle(t *testing.T) {
	t.Parallel()

	a := &App{logger: newLogger("debug", "text", io.Discard)}
	port := freePort(t)
	a.startHealthcheckServer(port)

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	var resp *http.Response
	var err error
	require.Eventually(t, func() bool {
		resp, err = http.Get(url)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond, "server should come up")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "OK\n", string(body))

	require.NoError(t, a.closeHealthcheckServer())

	// After shutdown the port no longer answers.
	_, err = http.Get(url)
	require.Error(t, err)
}

func TestHealthcheckServer_CloseWithoutStart(t *testing.T) {
	t.Parallel()

	a := &App{logger: newLogger("info", "text", io.Discard)}
	require.NoError(t, a.closeHealthcheckServer())
}

package cmd

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/testbench/internal/adapter"
)

func TestServe(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/units/app.Echo.yaml", []byte("name: app.Echo\n"), 0o644))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- serve(ctx, ln, adapter.NewCodeServer(adapter.NewFSCodeSource(fsys, "/units")))
	}()

	base := "http://" + ln.Addr().String()

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	source := adapter.NewHTTPCodeSource(base, "fs:/units", nil)
	code, err := source.GetUnit(context.Background(), source.Key(), "app.Echo")
	require.NoError(t, err)
	assert.Equal(t, "name: app.Echo\n", string(code))

	cancel()
	require.NoError(t, <-done)
}

func TestServe_ClosedListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	err = serve(context.Background(), ln, http.NotFoundHandler())
	require.Error(t, err)
}

func TestServeCmd_ListenError(t *testing.T) {
	cmd := newRootCmd()
	cmd.AddCommand(newServeCmd())
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"serve", "--addr", "256.0.0.1:http", "--log-file", t.TempDir() + "/serve.log"})

	err := cmd.Execute()
	require.ErrorContains(t, err, "failed to listen")
}

func TestNewServeCmd(t *testing.T) {
	cmd := newServeCmd()

	assert.Equal(t, "serve", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup(addrFlagName))
}

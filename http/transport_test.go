package http

import (
	"bytes"
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tactum/devcfg"
	"github.com/tactum/devcfg/internal/wire"
)

// newBridge serves the identity and blob endpoints the way a device
// HTTP bridge does, with real Range handling.
func newBridge(tb testing.TB, payloadLen int, maxChunk uint32) (*httptest.Server, []byte) {
	tb.Helper()

	s := devcfg.DefaultSchema()
	payload := make([]byte, payloadLen)
	for i := range payload {
		payload[i] = byte(i * 5)
	}
	blob := s.BuildBlob(3, 1, 0, payload)

	id := devcfg.DeviceIdentity{
		SchemaID:      s.ID,
		SettingsMajor: s.VersionMajor,
		SettingsMinor: s.VersionMinor,
		BlobSize:      uint32(len(blob)),
		MaxChunk:      maxChunk,
	}
	idPayload, err := wire.AppendIdentity(nil, id)
	require.NoError(tb, err)

	mux := nethttp.NewServeMux()
	mux.HandleFunc("/identity", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Write(idPayload)
	})
	mux.HandleFunc("/blob", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.ServeContent(w, r, "blob", time.Time{}, bytes.NewReader(blob))
	})

	srv := httptest.NewServer(mux)
	tb.Cleanup(srv.Close)
	return srv, blob
}

func TestTransportInfo(t *testing.T) {
	t.Parallel()

	srv, blob := newBridge(t, 100, 64)
	tr := New(srv.URL)
	defer tr.Close()

	id, err := tr.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, devcfg.SchemaID, id.SchemaID)
	assert.Equal(t, uint32(len(blob)), id.BlobSize)
	assert.Equal(t, uint32(64), id.MaxChunk)
}

func TestTransportAssemble(t *testing.T) {
	t.Parallel()

	srv, blob := newBridge(t, 700, 256)
	tr := New(srv.URL)
	defer tr.Close()

	settings, err := devcfg.Assemble(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, blob, settings.Raw())
}

func TestTransportReadChunkExact(t *testing.T) {
	t.Parallel()

	srv, blob := newBridge(t, 100, 64)
	tr := New(srv.URL)
	defer tr.Close()

	chunk, err := tr.ReadChunk(context.Background(), 10, 25)
	require.NoError(t, err)
	assert.Equal(t, blob[10:35], chunk)
}

func TestTransportReadChunkOutOfRange(t *testing.T) {
	t.Parallel()

	srv, blob := newBridge(t, 100, 64)
	tr := New(srv.URL)
	defer tr.Close()

	_, err := tr.ReadChunk(context.Background(), uint32(len(blob)), 1)
	require.ErrorIs(t, err, devcfg.ErrOutOfRange)

	_, err = tr.ReadChunk(context.Background(), 0, 0)
	require.ErrorIs(t, err, devcfg.ErrOutOfRange)
}

func TestTransportBridgeIgnoresRange(t *testing.T) {
	t.Parallel()

	// A server that answers 200 with the whole body cannot serve the
	// chunked contract.
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Write(make([]byte, 128))
	}))
	t.Cleanup(srv.Close)

	tr := New(srv.URL)
	defer tr.Close()

	_, err := tr.ReadChunk(context.Background(), 0, 16)
	require.ErrorIs(t, err, devcfg.ErrFormatMismatch)
}

func TestTransportTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(nethttp.HandlerFunc(func(_ nethttp.ResponseWriter, r *nethttp.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	tr := New(srv.URL)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tr.Info(ctx)
	require.ErrorIs(t, err, devcfg.ErrTimeout)
}

func TestTransportClose(t *testing.T) {
	t.Parallel()

	srv, _ := newBridge(t, 100, 64)
	tr := New(srv.URL)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close(), "close must be idempotent")

	_, err := tr.Info(context.Background())
	require.ErrorIs(t, err, devcfg.ErrDisconnected)

	_, err = tr.ReadChunk(context.Background(), 0, 16)
	require.ErrorIs(t, err, devcfg.ErrDisconnected)
}

func TestTransportCloseCancelsInflight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	srv := httptest.NewServer(nethttp.HandlerFunc(func(_ nethttp.ResponseWriter, r *nethttp.Request) {
		close(started)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	tr := New(srv.URL)

	errCh := make(chan error, 1)
	go func() {
		_, err := tr.Info(context.Background())
		errCh <- err
	}()

	<-started
	require.NoError(t, tr.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, devcfg.ErrDisconnected)
	case <-time.After(5 * time.Second):
		t.Fatal("read did not fail after close")
	}
}

func TestTransportWithHeader(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(nethttp.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	tr := New(srv.URL, WithHeader("Authorization", "Bearer panel-token"))
	defer tr.Close()

	tr.Info(context.Background())
	assert.Equal(t, "Bearer panel-token", gotAuth)
}

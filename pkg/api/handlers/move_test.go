package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/marmos91/picseq/pkg/imageload"
	"github.com/marmos91/picseq/pkg/navigator"
	"github.com/marmos91/picseq/pkg/prefetch"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigation_MoveAtBoundaryWithNavigator(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	for _, name := range []string{"/a/x.png", "/a/y.png"} {
		require.NoError(t, afero.WriteFile(fs, name, []byte("png"), 0o644))
	}

	loader := imageload.New(fs, imageload.Config{})
	cache := prefetch.New(loader.Load, prefetch.Config{Workers: 1})
	cache.Start(ctx)
	t.Cleanup(func() { cache.Stop(time.Second) })

	nav := navigator.New(fs, cache, navigator.Config{})
	t.Cleanup(func() { _ = nav.Close() })
	require.NoError(t, nav.Open(ctx, "/a/y.png"))

	h := NewNavigationHandler(nav)

	w := do(t, h.Move, http.MethodPost, "/api/v1/move", MoveRequest{Diff: 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, MoveResponse{Requested: 3, Moved: 0, Current: "/a/y.png"}, decodeData[MoveResponse](t, w))

	w = do(t, h.Move, http.MethodPost, "/api/v1/move", MoveRequest{Diff: -3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, MoveResponse{Requested: -3, Moved: -1, Current: "/a/x.png"}, decodeData[MoveResponse](t, w))

	w = do(t, h.Move, http.MethodPost, "/api/v1/move", MoveRequest{Diff: -1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, decodeData[MoveResponse](t, w).Moved)
}

// internal/browser/session_test.go
package browser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
)

const formPage = `<html><head><title>Form Page</title></head><body>
<div id="banner"><button id="onetrust-accept-btn-handler" onclick="document.getElementById('banner').remove()">Accept</button></div>
<h1>Lookup</h1>
<p id="ip">Detecting...</p>
<form id="search" action="/results" method="get">
  <input id="q" name="q" type="text" placeholder="Search">
  <select id="lang" name="lang"><option value="en">English</option><option value="de">Deutsch</option></select>
  <button id="go" type="submit">Go</button>
</form>
<script>setTimeout(function(){ document.getElementById('ip').textContent = '203.0.113.5'; }, 200);</script>
</body></html>`

func TestSession_Lifecycle(t *testing.T) {
	opener := newTestOpener(t)
	server := createStaticTestServer(t, formPage)

	ctx, cancel := context.WithTimeout(context.Background(), defaultBrowserTestTimeout)
	t.Cleanup(cancel)

	session, err := opener.Open(ctx, schemas.RunRequest{TargetURL: server.URL, Instructions: "look"})
	require.NoError(t, err)
	t.Cleanup(func() { session.Close(context.Background()) })

	t.Run("ReadsDocument", func(t *testing.T) {
		title, err := session.Title(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Form Page", title)

		html, err := session.HTML(ctx)
		require.NoError(t, err)
		assert.Contains(t, html, `id="search"`)

		location, err := session.URL(ctx)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(location, server.URL), "got %q", location)
	})

	t.Run("DismissesConsentBanner", func(t *testing.T) {
		_, found, err := session.TextContent(ctx, "#banner")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("InteractsWithForm", func(t *testing.T) {
		require.NoError(t, session.WaitPresent(ctx, "#q", 5*time.Second))
		require.NoError(t, session.Fill(ctx, "#q", "bob"))
		require.NoError(t, session.SelectOption(ctx, "#lang", "de"))
		assert.Error(t, session.SelectOption(ctx, "#lang", "fr"))
	})

	t.Run("TextContentMissing", func(t *testing.T) {
		text, found, err := session.TextContent(ctx, "#does-not-exist")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, text)
	})

	t.Run("WaitPresentTimesOut", func(t *testing.T) {
		err := session.WaitPresent(ctx, "#never", 200*time.Millisecond)
		assert.Error(t, err)
	})

	t.Run("Metadata", func(t *testing.T) {
		md, err := session.Metadata(ctx)
		require.NoError(t, err)
		assert.Positive(t, md.Viewport.Width)
		assert.NotEmpty(t, md.UserAgent)
		assert.Equal(t, schemas.DeviceDesktop, md.DeviceProfile)
	})

	t.Run("Screenshot", func(t *testing.T) {
		png, err := session.Screenshot(ctx)
		require.NoError(t, err)
		require.Greater(t, len(png), 8)
		assert.Equal(t, []byte("\x89PNG"), png[:4])
	})

	t.Run("CloseIsIdempotent", func(t *testing.T) {
		session.Close(context.Background())
		session.Close(context.Background())
		_, err := session.Title(ctx)
		assert.Error(t, err)
	})
}

func TestSession_MobileEmulation(t *testing.T) {
	opener := newTestOpener(t)
	server := createStaticTestServer(t, `<html><body>mobile</body></html>`)

	ctx, cancel := context.WithTimeout(context.Background(), defaultBrowserTestTimeout)
	t.Cleanup(cancel)

	session, err := opener.Open(ctx, schemas.RunRequest{
		TargetURL:    server.URL,
		Instructions: "look",
		Options:      schemas.RunOptions{DeviceProfile: schemas.DeviceMobile},
	})
	require.NoError(t, err)
	t.Cleanup(func() { session.Close(context.Background()) })

	md, err := session.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 375, md.Viewport.Width)
	assert.Contains(t, md.UserAgent, "iPhone")
}

func TestOpener_NavigationFailureIsSessionError(t *testing.T) {
	opener := newTestOpener(t)
	opener.cfg.NavigationTimeout = 2 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), defaultBrowserTestTimeout)
	t.Cleanup(cancel)

	session, err := opener.Open(ctx, schemas.RunRequest{TargetURL: "http://127.0.0.1:1/", Instructions: "x"})
	assert.Nil(t, session)
	assert.ErrorIs(t, err, schemas.ErrSession)
}

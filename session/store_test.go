package session

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemory(t *testing.T) {
	m := NewMemory("")
	_, ok := m.Token()
	assert.False(t, ok)

	require.NoError(t, m.SetToken("abc"))
	tok, ok := m.Token()
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	require.NoError(t, m.Clear())
	_, ok = m.Token()
	assert.False(t, ok)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	f := NewFile(path)

	_, ok := f.Token()
	assert.False(t, ok, "missing file means no token")

	require.NoError(t, f.SetToken("abc"))
	tok, ok := f.Token()
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A second File on the same path sees the token, as a later CLI run would.
	tok, ok = NewFile(path).Token()
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	require.NoError(t, f.Clear())
	_, ok = f.Token()
	assert.False(t, ok)
	require.NoError(t, f.Clear(), "clearing twice is fine")
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	_, ok := NewFile(path).Token()
	assert.False(t, ok)
}

func TestCookiesRoundTrip(t *testing.T) {
	c := NewCookies("0123456789abcdef0123456789abcdef", false, zap.NewNop())

	// Sign in: token is written into a Set-Cookie header.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	require.NoError(t, c.For(rec, req).SetToken("abc"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// Next request carries the cookie.
	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookies[0])
	tok, ok := c.For(httptest.NewRecorder(), req).Token()
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	// Sign out expires the cookie.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookies[0])
	require.NoError(t, c.For(rec, req).Clear())
	out := rec.Result().Cookies()
	require.Len(t, out, 1)
	assert.True(t, out[0].MaxAge < 0)
}

func TestCookiesNoCookie(t *testing.T) {
	c := NewCookies("", false, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	_, ok := c.For(httptest.NewRecorder(), req).Token()
	assert.False(t, ok)
}

func TestCookiesForeignKey(t *testing.T) {
	a := NewCookies("0123456789abcdef0123456789abcdef", false, zap.NewNop())
	b := NewCookies("fedcba9876543210fedcba9876543210", false, zap.NewNop())

	rec := httptest.NewRecorder()
	require.NoError(t, a.For(rec, httptest.NewRequest(http.MethodPost, "/login", nil)).SetToken("abc"))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	_, ok := b.For(httptest.NewRecorder(), req).Token()
	assert.False(t, ok, "cookie signed with another key is ignored")
}

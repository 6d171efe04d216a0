package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redirectServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("User-Agent")))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_Defaults(t *testing.T) {
	c := New()
	assert.Equal(t, DefaultTimeout, c.Timeout)
	assert.Nil(t, c.CheckRedirect)
}

func TestNew_FollowRedirects(t *testing.T) {
	srv := redirectServer(t)

	resp, err := New().Get(srv.URL + "/old")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := New(WithFollowRedirects(false)).Get(srv.URL + "/old")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusFound, resp2.StatusCode)
}

func TestNew_UserAgent(t *testing.T) {
	srv := redirectServer(t)

	resp, err := New(WithUserAgent("test-agent"), WithConnectTimeout(DefaultTimeout), WithTimeout(NoTimeout)).Get(srv.URL + "/new")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "test-agent", string(body))
}

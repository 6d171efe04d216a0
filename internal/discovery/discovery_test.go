package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/javi11/gribfetch/internal/config"
	"github.com/javi11/gribfetch/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listing(names ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><h1>Index of /</h1><pre>")
	b.WriteString(`<a href="../">Parent Directory</a>` + "\n")
	for _, n := range names {
		fmt.Fprintf(&b, "<a href=\"%s\">%s</a>    01-Jun-2020 01:00   12M\n", n, n)
	}
	b.WriteString("</pre></body></html>")
	return b.String()
}

func archiveServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listing("hrrr.20200601/", "hrrr.20200602/", "logs/")))
	})
	mux.HandleFunc("/hrrr.20200601/conus/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listing(
			"hrrr.t00z.wrfsfcf00.grib2",
			"hrrr.t00z.wrfsfcf00.grib2.idx",
			"hrrr.t00z.wrfsfcf01.grib2",
			"hrrr.t00z.wrfprsf01.grib2",
			"hrrr.t00z.wrfsfcf02.grib2",
			"hrrr.t06z.wrfsfcf01.grib2",
			"hrrr.t01z.wrfsfcf01.grib2",
			"hrrr.t00z.wrfsfcf01.grib2",
		)))
	})
	// second run directory is not published yet
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(url string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Source.URL = url + "/"
	cfg.GribDir = "/data/grib"
	cfg.Steps = "0,1"
	cfg.RunHours = "0/to/6/by/6"
	return cfg
}

func TestCrawler_Discover(t *testing.T) {
	srv := archiveServer(t)
	cfg := testConfig(srv.URL)

	c, err := NewCrawler(cfg, httpclient.NewDefault(), nil)
	require.NoError(t, err)

	targets, err := c.Discover(context.Background())
	require.NoError(t, err)

	var files []string
	for _, tg := range targets {
		files = append(files, tg.File)
	}
	assert.Equal(t, []string{
		"hrrr.t00z.wrfsfcf00.grib2",
		"hrrr.t00z.wrfsfcf01.grib2",
		"hrrr.t00z.wrfprsf01.grib2",
		"hrrr.t06z.wrfsfcf01.grib2",
	}, files)

	first := targets[1]
	assert.Equal(t, "hrrr.20200601", first.Dir)
	assert.Equal(t, "conus", first.Domain)
	assert.Equal(t, 0, first.RunHour)
	assert.Equal(t, "wrfsfcf", first.Type)
	assert.Equal(t, 1, first.Step)
	assert.Equal(t, srv.URL+"/hrrr.20200601/conus/hrrr.t00z.wrfsfcf01.grib2", first.FileURL)
	assert.Equal(t, first.FileURL+".idx", first.IndexURL)
	assert.Equal(t, filepath.Join("/data/grib", "hrrr.20200601", "conus", "hrrr.t00z.wrfsfcf01.grib2"), first.LocalPath)
	assert.Contains(t, first.String(), " 0Z  +  1h")
}

func TestCrawler_TypeFilter(t *testing.T) {
	srv := archiveServer(t)
	cfg := testConfig(srv.URL)
	cfg.Source.Types = []string{"wrfprsf"}

	c, err := NewCrawler(cfg, httpclient.NewDefault(), nil)
	require.NoError(t, err)

	targets, err := c.ListFiles(context.Background(), "hrrr.20200601")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "hrrr.t00z.wrfprsf01.grib2", targets[0].File)
}

func TestCrawler_ListRuns(t *testing.T) {
	srv := archiveServer(t)

	c, err := NewCrawler(testConfig(srv.URL), httpclient.NewDefault(), nil)
	require.NoError(t, err)

	runs, err := c.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"hrrr.20200601", "hrrr.20200602"}, runs)
}

func TestCrawler_RootUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	c, err := NewCrawler(testConfig(srv.URL), httpclient.NewDefault(), nil)
	require.NoError(t, err)

	_, err = c.Discover(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestNewCrawler_InvalidPattern(t *testing.T) {
	cfg := testConfig("http://example.invalid")
	cfg.Source.FilePattern = `^hrrr\.t([0-9]+)z`

	_, err := NewCrawler(cfg, httpclient.NewDefault(), nil)
	assert.Error(t, err)
}

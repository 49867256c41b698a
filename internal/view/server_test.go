package view

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mooring-data/rsk.report/internal/rsk"
)

// testRecording imports a small CSV with one pressure dip so profile
// detection has something to find.
func testRecording(t *testing.T) *rsk.RSK {
	t.Helper()

	var b strings.Builder
	b.WriteString("timestamp(ms),conductivity(mS/cm),pressure(dbar)\n")
	ts := int64(1601661600000)
	row := func(cond, pres float64) {
		fmt.Fprintf(&b, "%d,%g,%g\n", ts, cond, pres)
		ts += 1000
	}
	for i := 0; i < 3; i++ {
		row(0, 0.1)
	}
	for p := 0.0; p < 20; p += 2 {
		row(50, p)
	}
	for p := 20.0; p >= 0; p -= 2 {
		row(50, p)
	}
	for i := 0; i < 3; i++ {
		row(0, 0.1)
	}

	base := strings.ReplaceAll(t.Name(), "/", "_")
	csvPath := base + ".csv"
	rskPath := base + ".rsk"
	require.NoError(t, os.WriteFile(csvPath, []byte(b.String()), 0o644))
	t.Cleanup(func() {
		os.Remove(csvPath)
		for _, suffix := range []string{"", "-shm", "-wal"} {
			os.Remove(rskPath + suffix)
		}
	})

	r, err := rsk.CSV2RSK(csvPath, rskPath)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestHomeHandler(t *testing.T) {
	r := testRecording(t)
	srv := httptest.NewServer(NewServer(r).ServeMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := readBody(t, resp)
	assert.Contains(t, body, "Channels: 2")
	assert.Contains(t, body, "pressure (dbar)")
	assert.Contains(t, body, "conductivity (mS/cm)")
}

func TestListRegions(t *testing.T) {
	r := testRecording(t)
	_, err := r.ReadData(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.ComputeProfiles(0, 0))

	srv := httptest.NewServer(NewServer(r).ServeMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/regions")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := readBody(t, resp)
	assert.Contains(t, body, "cast/down")
	assert.Contains(t, body, "cast/up")
	assert.Contains(t, body, "profile")
}

func TestListRegionsMethodNotAllowed(t *testing.T) {
	r := testRecording(t)
	srv := httptest.NewServer(NewServer(r).ServeMux())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/regions", "text/plain", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPressureChart(t *testing.T) {
	r := testRecording(t)
	srv := httptest.NewServer(NewServer(r).ServeMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/chart")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body := readBody(t, resp)
	assert.Contains(t, body, "echarts")
	assert.Contains(t, body, "pressure")
}

func TestPressureChartMissingChannel(t *testing.T) {
	base := strings.ReplaceAll(t.Name(), "/", "_")
	csvPath := base + ".csv"
	rskPath := base + ".rsk"
	require.NoError(t, os.WriteFile(csvPath,
		[]byte("timestamp(ms),temperature(°C)\n1000,8.5\n2000,8.6\n"), 0o644))
	t.Cleanup(func() {
		os.Remove(csvPath)
		for _, suffix := range []string{"", "-shm", "-wal"} {
			os.Remove(rskPath + suffix)
		}
	})

	r, err := rsk.CSV2RSK(csvPath, rskPath)
	require.NoError(t, err)
	defer r.Close()

	srv := httptest.NewServer(NewServer(r).ServeMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/chart")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

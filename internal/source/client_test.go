package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mut-lab/power-monitor/internal/core/timewindow"
	"github.com/stretchr/testify/require"
)

// fakePMA imitates the minimal phpMyAdmin surface the client drives:
// login page with a token, login post, and sql.php returning a results table.
type fakePMA struct {
	t          *testing.T
	lastSQL    string
	failLogins bool
}

func (f *fakePMA) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/index.php", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`<html><body><form><input name="token" value="tok-1"></form></body></html>`))
			return
		}
		require.NoError(f.t, r.ParseForm())
		require.Equal(f.t, "root", r.PostFormValue("pma_username"))
		require.Equal(f.t, "tok-1", r.PostFormValue("token"))
		if f.failLogins {
			w.Write([]byte(`<html><body>Access denied</body></html>`))
			return
		}
		w.Write([]byte(`<html><body>phpMyAdmin<input name="token" value="tok-2"></body></html>`))
	})

	mux.HandleFunc("/sql.php", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(f.t, r.ParseForm())
		require.Equal(f.t, "tok-2", r.PostFormValue("token"))
		require.Equal(f.t, "mut_supermap_datalog", r.PostFormValue("db"))
		f.lastSQL = r.PostFormValue("sql_query")
		w.Write([]byte(sampleResultsPage))
	})

	return mux
}

func newTestClient(t *testing.T, baseURL string) *Client {
	c, err := NewClient(Config{
		BaseURL:  baseURL,
		Username: "root",
		Password: "secret",
		Database: "mut_supermap_datalog",
		Table:    "data_value",
		OrderBy:  "timestamp",
	}, time.UTC)
	require.NoError(t, err)
	return c
}

func TestClient_FetchLatest(t *testing.T) {
	fake := &fakePMA{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	records, err := c.FetchLatest(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "SELECT * FROM data_value ORDER BY timestamp DESC LIMIT 5;", fake.lastSQL)
	require.Equal(t, "A", records[0].Building)
	require.Equal(t, 10.0, records[0].PowerTotal())
}

func TestClient_FetchWindow(t *testing.T) {
	fake := &fakePMA{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	w := timewindow.Window{
		Start: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC),
	}

	_, err := c.FetchWindow(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t,
		"SELECT * FROM data_value WHERE timestamp >= '2023-06-01 00:00:00'"+
			" AND timestamp < '2023-06-02 00:00:00' ORDER BY timestamp ASC;",
		fake.lastSQL)
}

func TestClient_LoginFailureIsNotRetried(t *testing.T) {
	fake := &fakePMA{t: t, failLogins: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c, err := NewClient(Config{
		BaseURL:    srv.URL,
		Username:   "root",
		Password:   "wrong",
		Database:   "mut_supermap_datalog",
		Table:      "data_value",
		MaxRetries: 3,
	}, time.UTC)
	require.NoError(t, err)

	_, err = c.FetchLatest(context.Background(), 1)
	require.ErrorIs(t, err, ErrLoginFailed)
}

func TestClient_Ping(t *testing.T) {
	fake := &fakePMA{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.Ping(context.Background()))

	srv.Close()
	require.ErrorIs(t, c.Ping(context.Background()), ErrUpstream)
}

func TestClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, time.UTC)
	require.Error(t, err)
}

package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nimas-seat-alert/internal/models"
)

func row(serial, seats string) string {
	return fmt.Sprintf(`[{"name":"Course","value":"Basic"},{"name":"Serial No","value":%q},{"name":"Available Seats","value":%q}]`, serial, seats)
}

func recordsDoc(rows ...string) string {
	return `{"response":{"records":[` + strings.Join(rows, ",") + `]}}`
}

func newTestClient(url string, envelope bool) *APIClient {
	return NewAPIClient(APIOptions{
		URL:              url,
		Timeout:          5 * time.Second,
		EnvelopeFallback: envelope,
	}, nil)
}

func TestAPIClient_Lookup(t *testing.T) {
	t.Run("returns seats for matching serial", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.EqualValues(t, 1, body["index"])
			assert.EqualValues(t, 200, body["pgSize"])
			assert.EqualValues(t, 3, body["templateID"])
			assert.Equal(t, map[string]any{"Category Name": "Mountaineering"}, body["filters"])
			assert.Equal(t, false, body["isDownload"])

			_, _ = io.WriteString(w, recordsDoc(row("BMC-57", "3"), row("BMC-58", "1,234")))
		}))
		defer server.Close()

		n, err := newTestClient(server.URL, false).Lookup(context.Background(), "BMC-58")
		require.NoError(t, err)
		assert.Equal(t, 1234, n)
	})

	t.Run("numeric seats value", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"response":{"records":[[{"name":"Serial No","value":"BMC-58"},{"name":"Available Seats","value":12}]]}}`)
		}))
		defer server.Close()

		n, err := newTestClient(server.URL, false).Lookup(context.Background(), "BMC-58")
		require.NoError(t, err)
		assert.Equal(t, 12, n)
	})

	t.Run("follows redirects", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusPermanentRedirect)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, recordsDoc(row("BMC-58", "7")))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		n, err := newTestClient(server.URL+"/old", false).Lookup(context.Background(), "BMC-58")
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("non-2xx is a transport error without retry", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL, true).Lookup(context.Background(), "BMC-58")
		var terr *models.TransportError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, http.StatusBadGateway, terr.StatusCode)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("invalid json is a transport error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "<html>maintenance</html>")
		}))
		defer server.Close()

		_, err := newTestClient(server.URL, false).Lookup(context.Background(), "BMC-58")
		var terr *models.TransportError
		require.ErrorAs(t, err, &terr)
	})

	t.Run("empty records without envelope fallback", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = io.WriteString(w, `{"response":{"records":[]}}`)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL, false).Lookup(context.Background(), "BMC-58")
		var nerr *models.NoDataError
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, 1, nerr.Attempts)
		assert.EqualValues(t, 1, calls.Load())

		var nf *models.NotFoundError
		assert.False(t, errors.As(err, &nf), "no data must be distinguishable from not found")
	})

	t.Run("envelope payload after empty first response", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if calls.Add(1) == 1 {
				assert.NotContains(t, body, "data")
				_, _ = io.WriteString(w, `{"response":{}}`)
				return
			}
			data, ok := body["data"].(map[string]any)
			if !assert.True(t, ok, "second payload is enveloped under data") {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			assert.EqualValues(t, 1, data["pageNo"])
			assert.Contains(t, data, "userID")
			assert.Contains(t, data, "parentID")
			assert.EqualValues(t, 3, data["templateID"])
			_, _ = io.WriteString(w, recordsDoc(row("BMC-58", "9")))
		}))
		defer server.Close()

		n, err := newTestClient(server.URL, true).Lookup(context.Background(), "BMC-58")
		require.NoError(t, err)
		assert.Equal(t, 9, n)
		assert.EqualValues(t, 2, calls.Load())
	})

	t.Run("both payloads empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{}`)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL, true).Lookup(context.Background(), "BMC-58")
		var nerr *models.NoDataError
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, 2, nerr.Attempts)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, recordsDoc(row("BMC-58", "1")))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestClient(server.URL, false).Lookup(ctx, "BMC-58")
		var terr *models.TransportError
		require.ErrorAs(t, err, &terr)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMatchRecord(t *testing.T) {
	records := func(rows ...string) models.RecordSet {
		return ExtractRecords(mustParse(t, recordsDoc(rows...)))
	}

	t.Run("not found carries at most 8 serials in order", func(t *testing.T) {
		var rows []string
		for i := 1; i <= 10; i++ {
			rows = append(rows, row(fmt.Sprintf("BMC-%d", i), "1"))
		}

		_, err := MatchRecord(records(rows...), "BMC-99")
		var nf *models.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "BMC-99", nf.Identifier)
		assert.Equal(t, []string{"BMC-1", "BMC-2", "BMC-3", "BMC-4", "BMC-5", "BMC-6", "BMC-7", "BMC-8"}, nf.Sample)
	})

	t.Run("not found with fewer rows than the sample size", func(t *testing.T) {
		_, err := MatchRecord(records(row("BMC-1", "1"), row("BMC-2", "1")), "BMC-99")
		var nf *models.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, []string{"BMC-1", "BMC-2"}, nf.Sample)
	})

	t.Run("non-integer seats", func(t *testing.T) {
		_, err := MatchRecord(records(row("BMC-58", "N/A")), "BMC-58")
		var perr *models.ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "BMC-58", perr.Identifier)
		assert.Equal(t, "N/A", perr.Raw)
		assert.Contains(t, err.Error(), "BMC-58")
		assert.Contains(t, err.Error(), "N/A")
	})

	t.Run("missing seats field", func(t *testing.T) {
		recs := ExtractRecords(mustParse(t, `{"response":{"records":[[{"name":"Serial No","value":"BMC-58"}]]}}`))
		_, err := MatchRecord(recs, "BMC-58")
		var perr *models.ParseError
		require.ErrorAs(t, err, &perr)
	})

	t.Run("match is exact and case-sensitive", func(t *testing.T) {
		recs := records(row("bmc-58", "1"), row(" BMC-58", "2"))
		_, err := MatchRecord(recs, "BMC-58")
		var nf *models.NotFoundError
		require.ErrorAs(t, err, &nf)
	})

	t.Run("first match wins", func(t *testing.T) {
		n, err := MatchRecord(records(row("BMC-58", "4"), row("BMC-58", "5")), "BMC-58")
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})
}

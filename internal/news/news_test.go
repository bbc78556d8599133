package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stocksignal/internal/models"
)

type stubProvider struct {
	items []models.NewsItem
	err   error
}

func (s stubProvider) News(context.Context, string, int) ([]models.NewsItem, error) {
	return s.items, s.err
}

func serperServer(t *testing.T, status int, hits []OrganicResult, seen *searchRequest, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		if r.Header.Get("X-API-KEY") != "k" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(searchResponse{Organic: hits})
	}))
}

func TestQuery(t *testing.T) {
	tests := map[string]string{
		"BBCA.JK": `Saham "BBCA" IDX Indonesia berita terkini`,
		"tlkm":    `Saham "TLKM" IDX Indonesia berita terkini`,
		"NVDA1":   `"NVDA1" stock news Indonesia`,
		"GOOGL":   `"GOOGL" stock news Indonesia`,
	}
	for in, want := range tests {
		if got := Query(in); got != want {
			t.Errorf("Query(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFetchPrefersPrimary(t *testing.T) {
	primary := stubProvider{items: []models.NewsItem{
		{Title: "BBCA naik", URL: "https://a", Date: "2024-06-07"},
		{Title: "", URL: "", Date: ""},
	}}
	f := NewFetcher(primary, nil, 5, zerolog.Nop())

	res := f.Fetch(context.Background(), "BBCA.JK")
	if res.Source != "goapi" {
		t.Errorf("source = %q", res.Source)
	}
	want := "- [BBCA naik](https://a) 2024-06-07\n- [No Title](#)"
	if res.Text != want {
		t.Errorf("text = %q, want %q", res.Text, want)
	}
}

func TestFetchMissingKey(t *testing.T) {
	f := NewFetcher(stubProvider{err: errors.New("down")}, NewSerperClient(SerperConfig{APIKey: "your_serper_key"}, nil, zerolog.Nop()), 5, zerolog.Nop())
	if res := f.Fetch(context.Background(), "BBCA"); res.Text != MsgMissingKey {
		t.Errorf("text = %q", res.Text)
	}
}

func TestFetchSerperFiltersAndLimits(t *testing.T) {
	var seen searchRequest
	hits := []OrganicResult{
		{Title: "IHSG menguat", Snippet: "Indeks naik tipis", Link: "https://x/0"},
		{Title: "ADRO bagi dividen", Snippet: "Adaro &amp; anak usaha", Link: "https://x/1"},
		{Title: "Batu bara", Snippet: "saham <b>adro</b> melesat", Link: "https://x/2"},
	}
	for i := 0; i < 6; i++ {
		hits = append(hits, OrganicResult{Title: fmt.Sprintf("ADRO %d", i), Link: fmt.Sprintf("https://y/%d", i)})
	}
	srv := serperServer(t, http.StatusOK, hits, &seen, nil)
	defer srv.Close()

	serper := NewSerperClient(SerperConfig{APIKey: "k", Endpoint: srv.URL}, nil, zerolog.Nop())
	res := NewFetcher(nil, serper, 5, zerolog.Nop()).Fetch(context.Background(), "ADRO.JK")

	if seen.Q != `Saham "ADRO" IDX Indonesia berita terkini` || seen.TBS != "qdr:w" || seen.Num != 10 || seen.GL != "id" || seen.HL != "id" {
		t.Errorf("request = %+v", seen)
	}
	if !res.HasItems() || len(res.Items) != 5 {
		t.Fatalf("items = %d, want 5", len(res.Items))
	}
	lines := strings.Split(res.Text, "\n")
	if lines[0] != "- [ADRO bagi dividen](https://x/1): Adaro & anak usaha" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "- [Batu bara](https://x/2): saham adro melesat" {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], ": No Snippet") {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestFetchSerperNoRelevantNews(t *testing.T) {
	srv := serperServer(t, http.StatusOK, []OrganicResult{{Title: "IHSG", Snippet: "pasar"}}, nil, nil)
	defer srv.Close()

	serper := NewSerperClient(SerperConfig{APIKey: "k", Endpoint: srv.URL}, nil, zerolog.Nop())
	res := NewFetcher(nil, serper, 5, zerolog.Nop()).Fetch(context.Background(), "BUMI.JK")
	if res.Text != "Tidak ada berita spesifik untuk BUMI dalam seminggu terakhir." {
		t.Errorf("text = %q", res.Text)
	}
	if res.HasItems() {
		t.Errorf("items = %v, want none", res.Items)
	}
}

func TestFetchSerperRetriesThenFails(t *testing.T) {
	var calls int32
	srv := serperServer(t, http.StatusBadGateway, nil, nil, &calls)
	defer srv.Close()

	serper := NewSerperClient(SerperConfig{APIKey: "k", Endpoint: srv.URL, Timeout: time.Second}, nil, zerolog.Nop())
	res := NewFetcher(nil, serper, 5, zerolog.Nop()).Fetch(context.Background(), "BBRI")

	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if !strings.HasPrefix(res.Text, "Gagal mengambil berita setelah 2 kali percobaan:") {
		t.Errorf("text = %q", res.Text)
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("  <i>Laba</i>\n naik   20%  "); got != "Laba naik 20%" {
		t.Errorf("got %q", got)
	}
}

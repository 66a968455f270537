package portfoliosync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRewriteShareLink(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"drive file link",
			"https://drive.google.com/file/d/1AbCdEf/view?usp=sharing",
			"https://drive.google.com/uc?export=download&id=1AbCdEf",
		},
		{
			"drive open link",
			"https://drive.google.com/open?id=1AbCdEf",
			"https://drive.google.com/uc?export=download&id=1AbCdEf",
		},
		{
			"google sheet",
			"https://docs.google.com/spreadsheets/d/1XyZ/edit#gid=0",
			"https://docs.google.com/spreadsheets/d/1XyZ/export?format=xlsx",
		},
		{
			"dropbox",
			"https://www.dropbox.com/s/abc/portfolio.xlsx?dl=0",
			"https://www.dropbox.com/s/abc/portfolio.xlsx?dl=1",
		},
		{
			"onedrive",
			"https://1drv.ms/x/s!abc",
			"https://1drv.ms/x/s!abc?download=1",
		},
		{
			"expiry params stripped",
			"https://files.example.com/p.xlsx?expires=1700000000&sig=zz",
			"https://files.example.com/p.xlsx?sig=zz",
		},
		{
			"unknown url untouched",
			"https://example.com/portfolio.xlsx",
			"https://example.com/portfolio.xlsx",
		},
	}
	for _, tc := range cases {
		if got := RewriteShareLink(tc.in); got != tc.want {
			t.Errorf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestFetchSourceRejectsUnsupportedScheme(t *testing.T) {
	if _, err := FetchSource(context.Background(), "ftp://example.com/x.xlsx"); err != ErrUnsupportedSource {
		t.Errorf("ftp: got %v", err)
	}
	if _, err := FetchSource(context.Background(), "   "); err != ErrUnsupportedSource {
		t.Errorf("blank: got %v", err)
	}
}

func TestFetchSourceFollowsAtMostOneRedirect(t *testing.T) {
	payload := []byte("workbook-bytes")

	var final, once, twice *httptest.Server
	final = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer final.Close()

	once = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer once.Close()

	twice = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, once.URL, http.StatusFound)
	}))
	defer twice.Close()

	data, err := FetchSource(context.Background(), once.URL)
	if err != nil {
		t.Fatalf("one redirect must succeed: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("payload: %q", data)
	}

	if _, err := FetchSource(context.Background(), twice.URL); err == nil || !strings.Contains(err.Error(), ErrTooManyRedirects.Error()) {
		t.Errorf("two redirects must fail: %v", err)
	}
}

func TestFetchSourceNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	if _, err := FetchSource(context.Background(), srv.URL); err == nil {
		t.Errorf("non-200 must fail")
	}
}

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStaticPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a class="dd-product-tile" href="/buy-car/x">X</a></body></html>`)
	}))
	defer srv.Close()

	s := NewStatic(Config{UserAgent: "carwatch-test", Timeout: 5 * time.Second})
	doc, err := s.Page(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("a.dd-product-tile").Length())
}

func TestStaticPageHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewStatic(Config{Timeout: 5 * time.Second})
	_, err := s.Page(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestStaticPageUnreachable(t *testing.T) {
	t.Parallel()

	s := NewStatic(Config{Timeout: time.Second})
	_, err := s.Page(context.Background(), "http://127.0.0.1:1/never")
	require.Error(t, err)
}

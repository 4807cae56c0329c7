package vk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("jpeg:" + r.URL.Path))
	}))
	t.Cleanup(server.Close)

	f := NewHTTPFetcher(nil)
	ctx := context.Background()

	data, err := f.Fetch(ctx, server.URL+"/1_z.jpg")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "jpeg:/1_z.jpg" {
		t.Errorf("Fetch() = %q", data)
	}

	if _, err := f.Fetch(ctx, server.URL+"/missing.jpg"); err == nil {
		t.Error("Fetch() of missing photo should fail")
	}
	if _, err := f.Fetch(ctx, "://bad-url"); err == nil {
		t.Error("Fetch() of malformed URL should fail")
	}
}

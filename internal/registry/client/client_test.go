package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchDecodesSuccessEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":[{"author":"kpcyrd","name":"example","description":"d","latest":"1.0.0","featured":false,"downloads":3}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	results, err := c.Search(context.Background(), "example")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "example" {
		t.Fatalf("unexpected results: %#v", results)
	}
}

func TestErrorEnvelopeSurfacesAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"module not found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	if _, err := c.Info(context.Background(), "kpcyrd", "missing"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPublishSendsSessionHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":{"author":"kpcyrd","name":"example","version":"1.0.0"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client()).WithSession("tok-abc")
	if _, err := c.Publish(context.Background(), "example", "-- Version: 1.0.0\n"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if gotAuth != "tok-abc" {
		t.Fatalf("expected session header, got %q", gotAuth)
	}
}

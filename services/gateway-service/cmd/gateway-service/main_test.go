package main

import (
	"net/http"
	"net/http/httptest"
	"net/http/httputil"
	"net/url"
	"testing"
)

func TestRegisterProxyMatchesPrefixAndSubpaths(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Backend-Path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	backendURL, err := url.Parse(backend.URL)
	if err != nil {
		t.Fatalf("parse backend url: %v", err)
	}
	mux := http.NewServeMux()
	registerProxy(mux, "/api/v1/public", httputil.NewSingleHostReverseProxy(backendURL))

	for _, path := range []string{"/api/v1/public", "/api/v1/public/slots", "/api/v1/public/book"} {
		req := httptest.NewRequest(http.MethodGet, "http://gateway.local"+path, nil)
		rw := httptest.NewRecorder()
		mux.ServeHTTP(rw, req)
		if rw.Code != http.StatusOK {
			t.Fatalf("path %s: expected 200, got %d", path, rw.Code)
		}
		if got := rw.Header().Get("X-Backend-Path"); got != path {
			t.Fatalf("path %s reached backend as %s", path, got)
		}
	}

	reqMiss := httptest.NewRequest(http.MethodGet, "http://gateway.local/api/v1/unknown", nil)
	rwMiss := httptest.NewRecorder()
	mux.ServeHTTP(rwMiss, reqMiss)
	if rwMiss.Code != http.StatusNotFound {
		t.Fatalf("unrouted path: expected 404, got %d", rwMiss.Code)
	}
}

func TestParseList(t *testing.T) {
	got := parseList(" a, ,b ,, c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("parseList returned %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("parseList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "T", "yes", " on "} {
		if !isTruthy(v) {
			t.Fatalf("expected %q to be truthy", v)
		}
	}
	for _, v := range []string{"", "0", "false", "off", "nope"} {
		if isTruthy(v) {
			t.Fatalf("expected %q to be falsy", v)
		}
	}
}

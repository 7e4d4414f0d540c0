package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	oferrors "github.com/ontoforge/ontoforge/pkg/errors"
)

func TestAPILoaderFetchesRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"business_name":"Acme Fuel","zip_code":"10001"},{"business_name":"Beta Bakery","zip_code":"11201"}]`))
	}))
	defer srv.Close()

	records, err := NewAPILoader().Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	v, ok := records[0].Get("business_name")
	if !ok || v.Str() != "Acme Fuel" {
		t.Errorf("business_name = %q, want %q", v.Str(), "Acme Fuel")
	}
	if got := records[1].Columns(); len(got) != 2 || got[0] != "business_name" || got[1] != "zip_code" {
		t.Errorf("columns = %v, want sorted [business_name zip_code]", got)
	}
}

func TestAPILoaderRejectsNonArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rows":[]}`))
	}))
	defer srv.Close()

	_, err := NewAPILoader().Load(context.Background(), srv.URL)
	var coded *oferrors.Error
	if !errors.As(err, &coded) || coded.Code != oferrors.CodeInvalidFormat {
		t.Errorf("error = %v, want code %s", err, oferrors.CodeInvalidFormat)
	}
}

func TestAPILoaderSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAPILoader().Load(context.Background(), srv.URL)
	var coded *oferrors.Error
	if !errors.As(err, &coded) || coded.Code != oferrors.CodeFetchFailed {
		t.Errorf("error = %v, want code %s", err, oferrors.CodeFetchFailed)
	}
}

func TestAPILoaderHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAPILoader().Load(ctx, srv.URL)
	var coded *oferrors.Error
	if !errors.As(err, &coded) || coded.Code != oferrors.CodeContextCanceled {
		t.Errorf("error = %v, want code %s", err, oferrors.CodeContextCanceled)
	}
}

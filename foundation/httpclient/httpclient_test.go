package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestRetrieveBytes(t *testing.T) {
	is := is.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	client := NewClient(Config{Timeout: time.Second})

	got, err := RetrieveBytes(context.Background(), client, srv.URL+"/feed")
	is.NoErr(err)
	is.Equal(string(got), "payload")

	_, err = RetrieveBytes(context.Background(), client, srv.URL+"/missing")
	var statusErr *StatusError
	is.True(errors.As(err, &statusErr))
	is.Equal(statusErr.StatusCode, http.StatusNotFound)
}

func TestNewClient_InsecureSkipVerify(t *testing.T) {
	is := is.New(t)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))
	defer srv.Close()

	// self signed certificate is rejected unless verification is disabled
	_, err := RetrieveBytes(context.Background(), NewClient(Config{Timeout: time.Second}), srv.URL)
	is.True(err != nil)

	got, err := RetrieveBytes(context.Background(),
		NewClient(Config{Timeout: time.Second, InsecureSkipVerify: true}), srv.URL)
	is.NoErr(err)
	is.Equal(string(got), "secure")
}

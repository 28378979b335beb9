package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ipdata/ipdata/internal/cloud/storage"
	"github.com/ipdata/ipdata/internal/models"
)

var testCreds = models.StorageCredentials{
	AccessKeyID:     "minioadmin",
	SecretAccessKey: "minioadmin",
	Bucket:          "datasets",
}

func TestNew_RequiresEndpoint(t *testing.T) {
	if _, err := New(testCreds, Options{}); err == nil {
		t.Error("expected error without endpoint")
	}
}

func TestUpload(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := New(testCreds, Options{Endpoint: strings.TrimPrefix(srv.URL, "http://")})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	payload := []byte("col1,col2\n1,2\n")
	url, err := u.Upload(context.Background(), storage.Object{
		Bucket:      "datasets",
		Key:         "uploads/data.csv",
		Body:        bytes.NewReader(payload),
		Size:        int64(len(payload)),
		ContentType: "text/csv",
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if gotPath != "/datasets/uploads/data.csv" {
		t.Errorf("unexpected request path %s", gotPath)
	}
	if !bytes.Equal(gotBody, payload) {
		t.Errorf("server received %q", gotBody)
	}
	if url != srv.URL+"/datasets/uploads/data.csv" {
		t.Errorf("unexpected URL %s", url)
	}
}

func TestUpload_ClassifiesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>InvalidAccessKeyId</Code><Message>The Access Key Id you provided does not exist in our records.</Message></Error>`))
	}))
	defer srv.Close()

	u, err := New(testCreds, Options{Endpoint: strings.TrimPrefix(srv.URL, "http://")})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = u.Upload(context.Background(), storage.Object{
		Bucket: "datasets",
		Key:    "k",
		Body:   bytes.NewReader([]byte("x")),
		Size:   1,
	})
	if got := storage.CodeOf(err); got != storage.CodeInvalidAccessKey {
		t.Errorf("code = %s, want InvalidAccessKey (err: %v)", got, err)
	}
}

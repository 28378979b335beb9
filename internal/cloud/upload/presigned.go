package upload

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ipdata/ipdata/internal/cloud/storage"
)

// maxErrorBody bounds how much of a failed PUT response is read.
const maxErrorBody = 64 * 1024

// s3ErrorBody is the XML document S3 returns with a non-2xx status.
type s3ErrorBody struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// putPresigned sends body to a presigned URL. Every signed header is sent
// and Content-Length is always set; retries rewind body through Seek.
func putPresigned(ctx context.Context, client *retryablehttp.Client, presigned *storage.PresignedPut, body io.ReadSeeker, size int64, contentType string) error {
	method := presigned.Method
	if method == "" {
		method = nethttp.MethodPut
	}

	var rawBody interface{} = body
	if size == 0 {
		// A zero length with a non-nil body would be sent chunked.
		rawBody = nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, presigned.URL, rawBody)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.ContentLength = size

	for name, values := range presigned.SignedHeaders {
		if strings.EqualFold(name, "Host") || strings.EqualFold(name, "Content-Length") {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return storage.Classify("PresignedPut", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	return presignedStatusError(resp)
}

// presignedStatusError maps a failed PUT response onto the storage error
// taxonomy using the S3 error code in the body when there is one.
func presignedStatusError(resp *nethttp.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body s3ErrorBody
	if err := xml.Unmarshal(raw, &body); err == nil && body.Code != "" {
		return storage.FromServiceCode("PresignedPut", body.Code, body.Message, nil)
	}

	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = resp.Status
	}
	return &storage.Error{
		Code:    storage.CodeUnknown,
		Op:      "PresignedPut",
		Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, msg),
	}
}

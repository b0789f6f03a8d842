// Package netx holds small HTTP helpers for talking to object storage.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// uploadClient is shared by uploads; presigned URLs carry their own auth.
var uploadClient = &http.Client{Timeout: 5 * time.Minute}

// PutPresigned uploads data to a presigned S3 PUT URL. The content type is
// sniffed from the first bytes of data. Any non-2xx answer is an error that
// includes the start of the storage service's reply.
func PutPresigned(ctx context.Context, url string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", http.DetectContentType(data))

	resp, err := uploadClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

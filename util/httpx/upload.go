package httpx

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gpustack/npu-compiler-core/internal/bytex"
)

// UploadDebugDump POSTs the named file's content as a multipart/form-data
// body to dashboardURL, under the "dump" field, the SPEC_FULL.md §2 remote
// artifact upload path. Grounded on the teacher's httpx.Do request/response
// lifecycle helper, generalized from the teacher's GGUF-download direction
// (GET, remote-to-local) to this module's debug-dump direction (POST,
// local-to-remote).
func UploadDebugDump(ctx context.Context, cli *http.Client, dashboardURL, name string, content []byte) error {
	buf := bytex.GetBuffer()
	defer bytex.Put(buf)

	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("dump", name)
	if err != nil {
		return fmt.Errorf("create multipart field: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("write multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dashboardURL, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return Do(cli, req, func(resp *http.Response) error {
		if resp.StatusCode >= 300 {
			return fmt.Errorf("dashboard rejected upload: %s", resp.Status)
		}
		return nil
	})
}

package httpx

import (
	"bytes"
	stdjson "encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/gpustack/npu-compiler-core/util/json"
)

// JSONFormatter re-indents application/json bodies for httpretty's debug
// logger, the same way the teacher's util/httpx.JSONFormatter does for its
// own --debug output.
type JSONFormatter struct{}

// Match reports whether h names a JSON content type.
func (j *JSONFormatter) Match(h http.Header) bool {
	contentType := h.Get("Content-Type")
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || mt == "text/json"
}

// Format writes an indented rendering of the JSON body src to w.
func (j *JSONFormatter) Format(w io.Writer, src []byte) error {
	var v any
	if err := json.Unmarshal(src, &v); err != nil {
		_, err := w.Write(src)
		return err
	}

	out, err := stdjson.MarshalIndent(v, "", "  ")
	if err != nil {
		_, err := w.Write(src)
		return err
	}

	_, err = io.Copy(w, bytes.NewReader(out))
	return err
}

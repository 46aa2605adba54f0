package client

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/opsdeck/backoffice/internal/errdefs"
)

// UploadsService pushes files to the server's static store.
type UploadsService struct {
	c *Client
}

// UploadResult describes a stored file. URL is the path the server serves
// it from.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Image uploads an image read from r. The part's content type comes from
// the filename extension; the server rejects anything that is not an image.
func (s *UploadsService) Image(ctx context.Context, filename string, r io.Reader) (UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		header.Set("Content-Type", ct)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return UploadResult{}, errdefs.System("build upload form: " + err.Error())
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResult{}, errdefs.System("read upload source: " + err.Error())
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, errdefs.System("finish upload form: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.c.baseURL+"/api/v1/upload/image", &buf)
	if err != nil {
		return UploadResult{}, errdefs.System("build upload request: " + err.Error())
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var res UploadResult
	_, err = s.c.send(req, &res)
	return res, err
}

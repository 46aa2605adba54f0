package httpapi

import (
	"net/http"

	"github.com/opsdeck/backoffice/internal/app/metrics"
	"github.com/opsdeck/backoffice/internal/errdefs"
	"github.com/opsdeck/backoffice/internal/httputil"
)

// multipart form overhead on top of the file cap
const uploadFormSlack = 1 << 20

func (h *Handler) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.app.Uploads.MaxBytes()+uploadFormSlack)

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, errdefs.Business("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	res, err := h.app.Uploads.SaveImage(r.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	metrics.RecordUpload(res.Size)
	httputil.OK(w, res)
}

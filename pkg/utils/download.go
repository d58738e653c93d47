package utils

import (
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/wabridge/wabridge/config"
	pkgError "github.com/wabridge/wabridge/pkg/error"
)

// DownloadMediaFromURL fetches media bytes for an outgoing message. Returns
// the payload and a filename derived from the URL path when the caller did
// not supply one.
func DownloadMediaFromURL(url string) ([]byte, string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := fasthttp.Do(req, resp); err != nil {
		return nil, "", pkgError.ExternalError(fmt.Sprintf("failed to download media: %v", err))
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, "", pkgError.ExternalError(fmt.Sprintf("failed to download media: status %d", resp.StatusCode()))
	}

	body := resp.Body()
	if int64(len(body)) > config.WhatsappMaxDownloadSize {
		return nil, "", pkgError.ValidationError(fmt.Sprintf(
			"media too large: %s (limit %s)",
			humanize.Bytes(uint64(len(body))),
			humanize.Bytes(uint64(config.WhatsappMaxDownloadSize)),
		))
	}

	data := make([]byte, len(body))
	copy(data, body)

	filename := path.Base(strings.Split(url, "?")[0])
	if filename == "." || filename == "/" {
		filename = "media"
	}

	logrus.Debugf("[SEND] Downloaded %s (%s) from %s", filename, humanize.Bytes(uint64(len(data))), url)
	return data, filename, nil
}

package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	types "github.com/windrose-proxy/windrose/constant/provider"
)

const DefaultHTTPTimeout = time.Second * 20

type FileVehicle struct {
	path string
}

func (f *FileVehicle) Type() types.VehicleType {
	return types.File
}

func (f *FileVehicle) Path() string {
	return f.path
}

func (f *FileVehicle) Read() ([]byte, error) {
	return os.ReadFile(f.path)
}

func NewFileVehicle(path string) *FileVehicle {
	return &FileVehicle{path: path}
}

type HTTPVehicle struct {
	url       string
	path      string
	header    http.Header
	timeout   time.Duration
	sizeLimit int64
}

func (h *HTTPVehicle) Type() types.VehicleType {
	return types.HTTP
}

func (h *HTTPVehicle) Path() string {
	return h.path
}

func (h *HTTPVehicle) URL() string {
	return h.url
}

func (h *HTTPVehicle) Read() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, err
	}
	if h.header != nil {
		req.Header = h.header.Clone()
	}
	if req.UserAgent() == "" {
		req.Header.Set("User-Agent", "windrose")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New(resp.Status)
	}

	var reader io.Reader = resp.Body
	if h.sizeLimit > 0 {
		reader = io.LimitReader(resp.Body, h.sizeLimit+1)
	}

	buf, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if h.sizeLimit > 0 && int64(len(buf)) > h.sizeLimit {
		return nil, fmt.Errorf("payload exceeds size limit %d", h.sizeLimit)
	}
	return buf, nil
}

func NewHTTPVehicle(url string, path string, header http.Header, timeout time.Duration, sizeLimit int64) *HTTPVehicle {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTPVehicle{
		url:       url,
		path:      path,
		header:    header,
		timeout:   timeout,
		sizeLimit: sizeLimit,
	}
}

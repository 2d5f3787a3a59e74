package delivery

import (
	"io"
	"net/http"
	"strconv"
)

// Result is the outcome of a delivery. Its concrete type is one of
// *Redirect, *Buffered or *Streamed.
type Result interface {
	// Mode names the strategy for logs and metrics.
	Mode() string
	// Serve writes the result to an HTTP client and reports the body bytes written.
	Serve(w http.ResponseWriter, r *http.Request) (int64, error)

	sealed()
}

// Redirect sends the client to the upstream URL.
type Redirect struct {
	URL string
}

func (*Redirect) Mode() string { return "redirect" }
func (*Redirect) sealed()      {}

func (d *Redirect) Serve(w http.ResponseWriter, r *http.Request) (int64, error) {
	http.Redirect(w, r, d.URL, http.StatusFound)
	return 0, nil
}

// Buffered is a fully decoded payload served as an attachment.
type Buffered struct {
	Body     []byte
	Filename string
	MimeType string
}

func (*Buffered) Mode() string { return "buffered" }
func (*Buffered) sealed()      {}

func (d *Buffered) Serve(w http.ResponseWriter, _ *http.Request) (int64, error) {
	h := w.Header()
	h.Set("Content-Type", d.MimeType)
	h.Set("Content-Disposition", "attachment; filename="+d.Filename)
	h.Set("Content-Length", strconv.Itoa(len(d.Body)))
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(d.Body)
	d.Body = nil
	return int64(n), err
}

// Streamed relays an upstream body. Body must be consumed by Serve or Copy,
// or closed by the caller.
type Streamed struct {
	Status    int
	Header    http.Header
	Body      io.ReadCloser
	chunkSize int
}

func (*Streamed) Mode() string { return "streamed" }
func (*Streamed) sealed()      {}

// Serve writes the forwarded headers and status, then copies the body in
// bounded chunks, flushing after each one. The body is always closed.
func (d *Streamed) Serve(w http.ResponseWriter, _ *http.Request) (int64, error) {
	for name, values := range d.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(d.Status)
	return d.Copy(w)
}

// Copy streams the body to dst in chunks and closes it. When dst is an
// http.Flusher each chunk is flushed as soon as it is written.
func (d *Streamed) Copy(dst io.Writer) (int64, error) {
	defer d.Body.Close()

	size := d.chunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	buf := make([]byte, size)
	flusher, _ := dst.(http.Flusher)

	var written int64
	for {
		n, readErr := d.Body.Read(buf)
		if n > 0 {
			m, writeErr := dst.Write(buf[:n])
			written += int64(m)
			if writeErr != nil {
				return written, writeErr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

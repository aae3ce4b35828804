package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"cpu_throttle/internal/protocol"
)

var errHijacked = errors.New("connection hijacked")

// maxRequestBody bounds any request body. The largest legal one is a base64
// skin upload of service.MaxSkinUploadBytes decoded.
const maxRequestBody = 32 << 20

// serveHTTP reads one request, runs the router into a buffer and writes the framed
// reply. Handlers that hijack the connection (the status stream) take ownership of it.
func (s *Server) serveHTTP(ctx context.Context, conn net.Conn) {
	ic := &protocol.IdleConn{Conn: conn, Timeout: s.opts.IOTimeout}
	br := bufio.NewReader(ic)

	req, err := http.ReadRequest(br)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.log.Debugw("http_bad_request", "err", err)
			_ = writeResponse(ic, http.StatusBadRequest, http.Header{}, []byte(`{"status":"error","message":"bad request"}`))
		}
		_ = conn.Close()
		return
	}
	req.RemoteAddr = conn.RemoteAddr().String()
	if req.ContentLength > maxRequestBody {
		_ = writeResponse(ic, http.StatusRequestEntityTooLarge, http.Header{}, []byte(`{"status":"error","message":"request body too large"}`))
		_ = conn.Close()
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := &response{header: http.Header{}, conn: conn, idle: ic, br: br}
	req.Body = http.MaxBytesReader(w, req.Body, maxRequestBody)
	s.http.ServeHTTP(w, req.WithContext(reqCtx))
	if w.hijacked {
		return
	}

	// Unread body bytes are discarded; the connection closes after one exchange.
	_, _ = io.Copy(io.Discard, req.Body)
	if err := writeResponse(ic, w.code(), w.header, w.body.Bytes()); err != nil {
		s.log.Debugw("http_write_failed", "err", err, "path", req.URL.Path)
	}
	_ = conn.Close()
}

// response buffers a handler's output so it can be framed with an exact
// Content-Length once the handler returns.
type response struct {
	header http.Header
	status int
	body   bytes.Buffer

	conn     net.Conn
	idle     *protocol.IdleConn
	br       *bufio.Reader
	hijacked bool
}

func (r *response) Header() http.Header { return r.header }

func (r *response) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
}

func (r *response) Write(p []byte) (int, error) {
	if r.hijacked {
		return 0, errHijacked
	}
	r.WriteHeader(http.StatusOK)
	return r.body.Write(p)
}

// Flush is a no-op: the reply is written in one piece when the handler returns.
func (r *response) Flush() {}

// Hijack hands the raw connection to the caller. Read and write deadlines are
// cleared because the new owner manages its own.
func (r *response) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if r.hijacked {
		return nil, nil, errHijacked
	}
	r.hijacked = true
	r.idle.Timeout = 0
	_ = r.conn.SetDeadline(time.Time{})
	return r.conn, bufio.NewReadWriter(r.br, bufio.NewWriter(r.conn)), nil
}

func (r *response) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func writeResponse(w io.Writer, code int, h http.Header, body []byte) error {
	if h.Get("Content-Type") == "" && len(body) > 0 {
		h.Set("Content-Type", http.DetectContentType(body))
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Connection", "close")
	h.Set("Access-Control-Allow-Origin", "*")

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", code, http.StatusText(code))
	if err := h.Write(&buf); err != nil {
		return err
	}
	buf.WriteString("\r\n")
	buf.Write(body)
	_, err := w.Write(buf.Bytes())
	return err
}

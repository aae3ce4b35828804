// Package protocol implements the line-oriented control-socket protocol.
package protocol

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"strconv"
	"strings"

	"cpu_throttle/internal/service"
)

// Upload verbs carry a declared-length payload after the header line.
const (
	VerbPutProfile = "put-profile"
	VerbPutSkin    = "put-skin"
	verbWriteB64   = "write-profile-base64"
)

// maxLine bounds a command line. write-profile-base64 is the longest legal one.
var maxLine = base64.StdEncoding.EncodedLen(service.MaxProfileBytes) + 1024

var (
	ErrInvalidHeader = errors.New("invalid header")
	ErrLineTooLong   = errors.New("command line too long")
	ErrIncomplete    = errors.New("incomplete payload")
	ErrPayloadTooBig = errors.New("payload too large")
)

// Frame is the incremental parser for one control connection. Feed it reads until
// HeaderParsed reports true; for upload verbs Body then yields the payload, starting
// with whatever bytes arrived together with the header.
type Frame struct {
	Verb string
	Arg  string

	// Upload state.
	Name     string
	Expected int64
	Received int64

	headerParsed bool
	line         []byte
	pending      []byte
}

func (f *Frame) HeaderParsed() bool { return f.headerParsed }

// Feed appends chunk to the header buffer. Simple verbs are complete after the first
// read even without a trailing newline; verbs that carry data wait for the newline.
func (f *Frame) Feed(chunk []byte) error {
	if f.headerParsed {
		f.pending = append(f.pending, chunk...)
		return nil
	}
	f.line = append(f.line, chunk...)
	i := bytes.IndexByte(f.line, '\n')
	if i < 0 {
		if len(f.line) > maxLine {
			return ErrLineTooLong
		}
		if spansReads(firstWord(f.line)) {
			return nil
		}
		return f.parse(f.line, nil)
	}
	return f.parse(f.line[:i], f.line[i+1:])
}

// Finish completes the header with whatever was buffered when the peer stopped sending.
func (f *Frame) Finish() error {
	if f.headerParsed {
		return nil
	}
	if len(bytes.TrimSpace(f.line)) == 0 {
		return ErrInvalidHeader
	}
	return f.parse(f.line, nil)
}

func (f *Frame) parse(line, rest []byte) error {
	f.headerParsed = true
	text := strings.TrimRight(string(line), "\r\n")
	verb, arg, _ := strings.Cut(strings.TrimLeft(text, " \t"), " ")
	f.Verb = verb
	f.Arg = strings.TrimSpace(arg)
	f.line = nil
	if !f.IsUpload() {
		return nil
	}

	fields := strings.Fields(f.Arg)
	if len(fields) != 2 {
		return ErrInvalidHeader
	}
	n, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || n < 0 {
		return ErrInvalidHeader
	}
	f.Name = fields[0]
	f.Expected = n
	f.pending = append([]byte(nil), rest...)
	if int64(len(f.pending)) > f.Expected {
		f.pending = f.pending[:f.Expected]
	}
	f.Received = int64(len(f.pending))
	return nil
}

func (f *Frame) IsUpload() bool { return f.Verb == VerbPutProfile || f.Verb == VerbPutSkin }

// Body returns the payload reader: the buffered bytes first, then r, stopping at the
// declared length. Received advances as bytes are read from r.
func (f *Frame) Body(r io.Reader) io.Reader {
	rest := f.Expected - int64(len(f.pending))
	return io.MultiReader(bytes.NewReader(f.pending), &countingReader{r: io.LimitReader(r, rest), n: &f.Received})
}

// Complete reports whether the declared length has been received.
func (f *Frame) Complete() bool { return f.Received == f.Expected }

type countingReader struct {
	r io.Reader
	n *int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	*c.n += int64(n)
	return n, err
}

func firstWord(b []byte) string {
	s := strings.TrimLeft(string(b), " \t")
	w, _, _ := strings.Cut(s, " ")
	return w
}

// spansReads reports whether verb, possibly cut short by the read, may carry data
// beyond a single read.
func spansReads(verb string) bool {
	if verb == "" {
		return false
	}
	for _, v := range []string{VerbPutProfile, VerbPutSkin, verbWriteB64} {
		if strings.HasPrefix(v, verb) {
			return true
		}
	}
	return false
}

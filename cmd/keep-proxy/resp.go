package main

import (
	"bufio"
	"errors"
	"io"
	"strconv"
)

var (
	errInvalidProtocol = errors.New("ERR protocol error")
	errBulkTooLarge    = errors.New("ERR bulk string too large")
)

// maxBulkLen bounds a single bulk string, matching the redis default
// of 512MB.
const maxBulkLen = 512 << 20

// RESPReader parses client commands from a bufio.Reader without
// allocating beyond the argument payloads.
type RESPReader struct {
	rd *bufio.Reader
}

func NewRESPReader(rd *bufio.Reader) *RESPReader {
	return &RESPReader{rd: rd}
}

// readLine returns the next CRLF-terminated line without its
// terminator. The returned slice is only valid until the next read.
func (r *RESPReader) readLine() ([]byte, error) {
	line, err := r.rd.ReadSlice('\n')
	if err != nil {
		return nil, err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, errInvalidProtocol
	}
	return line[:len(line)-2], nil
}

// ReadCommand reads one command as an argument vector. Inline commands
// ("PING\r\n") are accepted as a single argument.
func (r *RESPReader) ReadCommand() ([][]byte, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, errInvalidProtocol
	}

	if line[0] != '*' {
		arg := make([]byte, len(line))
		copy(arg, line)
		return [][]byte{arg}, nil
	}

	count, err := strconv.Atoi(string(line[1:]))
	if err != nil || count < 0 {
		return nil, errInvalidProtocol
	}

	args := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		line, err = r.readLine()
		if err != nil {
			return nil, err
		}
		if len(line) == 0 || line[0] != '$' {
			return nil, errInvalidProtocol
		}

		length, err := strconv.Atoi(string(line[1:]))
		if err != nil {
			return nil, errInvalidProtocol
		}
		if length == -1 {
			args = append(args, nil)
			continue
		}
		if length < 0 || length > maxBulkLen {
			return nil, errBulkTooLarge
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(r.rd, data); err != nil {
			return nil, err
		}
		if _, err := r.rd.Discard(2); err != nil {
			return nil, err
		}
		args = append(args, data)
	}

	return args, nil
}

var crlf = []byte("\r\n")

// RESPWriter encodes replies onto a bufio.Writer without fmt.
type RESPWriter struct {
	wr      *bufio.Writer
	scratch []byte // reused buffer for integer formatting
}

func NewRESPWriter(wr *bufio.Writer) *RESPWriter {
	return &RESPWriter{
		wr:      wr,
		scratch: make([]byte, 0, 32),
	}
}

func (w *RESPWriter) WriteError(msg string) {
	w.wr.WriteByte('-')
	w.wr.WriteString(msg)
	w.wr.Write(crlf)
}

func (w *RESPWriter) WriteSimpleString(msg string) {
	w.wr.WriteByte('+')
	w.wr.WriteString(msg)
	w.wr.Write(crlf)
}

func (w *RESPWriter) WriteBulk(data []byte) {
	w.wr.WriteByte('$')
	w.writeInt(int64(len(data)))
	w.wr.Write(data)
	w.wr.Write(crlf)
}

func (w *RESPWriter) WriteBulkString(s string) {
	w.wr.WriteByte('$')
	w.writeInt(int64(len(s)))
	w.wr.WriteString(s)
	w.wr.Write(crlf)
}

func (w *RESPWriter) WriteNull() {
	w.wr.Write([]byte("$-1\r\n"))
}

func (w *RESPWriter) WriteInt(n int64) {
	w.wr.WriteByte(':')
	w.writeInt(n)
}

func (w *RESPWriter) writeInt(n int64) {
	w.scratch = strconv.AppendInt(w.scratch[:0], n, 10)
	w.wr.Write(w.scratch)
	w.wr.Write(crlf)
}

func (w *RESPWriter) Flush() error {
	return w.wr.Flush()
}

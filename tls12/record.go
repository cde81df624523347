package tls12

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	recordHeaderLen = 5

	// RFC 5246 Section 6.2: plaintext fragments are capped at 2^14
	// bytes and protected fragments at 2^14+2048.
	maxPlaintext  = 16384
	maxCiphertext = maxPlaintext + 2048
)

// Record is one TLS record: the three header fields plus the fragment
// they describe. Length carries the header's length field as read off the
// wire; writers derive it from the fragment instead.
type Record struct {
	Type     uint8
	Version  uint16
	Length   uint16
	Fragment []byte
}

// Header encodes the 5-byte record header for the current fragment.
func (r *Record) Header() []byte {
	header := make([]byte, recordHeaderLen)
	header[0] = r.Type
	binary.BigEndian.PutUint16(header[1:3], r.Version)
	binary.BigEndian.PutUint16(header[3:5], uint16(len(r.Fragment)))
	return header
}

// ParseRecordHeader decodes and validates a 5-byte record header. The
// version check accepts 0x0301 through 0x0303: real peers put TLS 1.0 or
// 1.1 in the first records before the negotiated version settles.
func ParseRecordHeader(header []byte) (*Record, error) {
	if len(header) < recordHeaderLen {
		return nil, &CryptoError{Type: ErrorDecoding, Message: fmt.Sprintf("record header length: got %d, want %d", len(header), recordHeaderLen)}
	}

	r := &Record{
		Type:    header[0],
		Version: binary.BigEndian.Uint16(header[1:3]),
		Length:  binary.BigEndian.Uint16(header[3:5]),
	}

	if r.Type < RecordTypeChangeCipherSpec || r.Type > RecordTypeApplicationData {
		return nil, &CryptoError{Type: ErrorDecoding, Message: fmt.Sprintf("invalid record type: %d", r.Type)}
	}
	if r.Version < VersionTLS10 || r.Version > VersionTLS12 {
		return nil, &CryptoError{Type: ErrorDecoding, Message: fmt.Sprintf("invalid record version: 0x%04x", r.Version)}
	}
	if int(r.Length) > maxCiphertext {
		return nil, &CryptoError{Type: ErrorRecordOverflow, Message: fmt.Sprintf("record length %d exceeds %d", r.Length, maxCiphertext)}
	}

	return r, nil
}

// RecordReader reads TLS records off a byte stream, buffering across
// reads so a short read never splits a header or fragment.
type RecordReader struct {
	r      io.Reader
	buffer []byte
}

// NewRecordReader creates a record reader over r.
func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{
		r:      r,
		buffer: make([]byte, 0, 8192),
	}
}

// ReadRecord reads and validates the next record. At a clean record
// boundary it returns io.EOF; a stream ending mid-record is a decode
// error.
func (rr *RecordReader) ReadRecord() (*Record, error) {
	for len(rr.buffer) < recordHeaderLen {
		if err := rr.fill(recordHeaderLen - len(rr.buffer)); err != nil {
			if err == io.EOF && len(rr.buffer) == 0 {
				return nil, io.EOF
			}
			return nil, &CryptoError{Type: ErrorDecoding, Message: "record truncated", Err: err}
		}
	}

	record, err := ParseRecordHeader(rr.buffer[:recordHeaderLen])
	if err != nil {
		return nil, err
	}

	total := recordHeaderLen + int(record.Length)
	for len(rr.buffer) < total {
		if err := rr.fill(total - len(rr.buffer)); err != nil {
			return nil, &CryptoError{Type: ErrorDecoding, Message: "record truncated", Err: err}
		}
	}

	record.Fragment = make([]byte, record.Length)
	copy(record.Fragment, rr.buffer[recordHeaderLen:total])
	rr.buffer = rr.buffer[:copy(rr.buffer, rr.buffer[total:])]

	return record, nil
}

// fill reads more bytes into the buffer, asking for a larger chunk than
// strictly needed to keep read counts down.
func (rr *RecordReader) fill(minBytes int) error {
	chunk := make([]byte, max(minBytes, 4096))
	n, err := rr.r.Read(chunk)
	if n > 0 {
		rr.buffer = append(rr.buffer, chunk[:n]...)
		return nil
	}
	return err
}

// RecordWriter writes TLS records to a byte stream.
type RecordWriter struct {
	w io.Writer
}

// NewRecordWriter creates a record writer over w.
func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: w}
}

// WriteRecord encodes and writes one record. The header's length field is
// always derived from the fragment.
func (rw *RecordWriter) WriteRecord(record *Record) error {
	if len(record.Fragment) > maxCiphertext {
		return &CryptoError{Type: ErrorRecordOverflow, Message: fmt.Sprintf("record length %d exceeds %d", len(record.Fragment), maxCiphertext)}
	}

	out := make([]byte, 0, recordHeaderLen+len(record.Fragment))
	out = append(out, record.Header()...)
	out = append(out, record.Fragment...)

	if _, err := rw.w.Write(out); err != nil {
		return &CryptoError{Type: ErrorEncoding, Message: "record write failed", Err: err}
	}
	return nil
}

package journal

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// storedRecord is the on-disk form: captured output is zstd compressed.
type storedRecord struct {
	Record
	Stdout []byte `json:"stdout,omitempty"`
	Stderr []byte `json:"stderr,omitempty"`
}

func prepare(r *Record) error {
	if r == nil || r.Action == "" {
		return ErrInvalidRecord
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	if r.Status == "" {
		r.Status = StatusOK
	}
	return nil
}

// key orders records by time, then id.
func key(r *Record) []byte {
	k := make([]byte, 8, 8+len(r.ID))
	binary.BigEndian.PutUint64(k, uint64(r.Time.UnixNano()))
	return append(k, r.ID...)
}

func timeKey(t time.Time) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(t.UnixNano()))
	return k
}

func encode(r *Record) ([]byte, error) {
	stored := storedRecord{Record: *r}

	var err error
	if stored.Stdout, err = compress(r.Stdout); err != nil {
		return nil, fmt.Errorf("failed to compress stdout: %w", err)
	}
	if stored.Stderr, err = compress(r.Stderr); err != nil {
		return nil, fmt.Errorf("failed to compress stderr: %w", err)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Record, error) {
	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	r := stored.Record
	var err error
	if r.Stdout, err = decompress(stored.Stdout); err != nil {
		return nil, fmt.Errorf("failed to decompress stdout: %w", err)
	}
	if r.Stderr, err = decompress(stored.Stderr); err != nil {
		return nil, fmt.Errorf("failed to decompress stderr: %w", err)
	}
	return &r, nil
}

func compress(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	var buffer bytes.Buffer
	encoder.Reset(&buffer)
	if _, err := encoder.Write([]byte(s)); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func decompress(blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", nil
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return "", err
	}
	defer decoder.Close()

	if err := decoder.Reset(bytes.NewReader(blob)); err != nil {
		return "", err
	}
	data, err := io.ReadAll(decoder)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

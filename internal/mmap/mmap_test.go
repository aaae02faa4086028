// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestHandle(t *testing.T) {
	t.Run("nil-handle", func(t *testing.T) {
		var h *Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		err = h.Close()
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid close error: %+v", err)
		}
	})
	t.Run("nil-data", func(t *testing.T) {
		var h Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		err = h.Close()
		if err != nil {
			t.Fatalf("error closing nil-data handle: %+v", err)
		}
	})
}

func TestOpen(t *testing.T) {
	tmp, err := os.MkdirTemp("", "grand-mmap-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"data", []byte("hello GRAND")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fname := filepath.Join(tmp, tc.name+".bin")
			err := os.WriteFile(fname, tc.data, 0644)
			if err != nil {
				t.Fatalf("could not create file: %+v", err)
			}

			h, err := Open(fname)
			if err != nil {
				t.Fatalf("could not mmap file: %+v", err)
			}
			defer h.Close()

			if got, want := h.Len(), len(tc.data); got != want {
				t.Fatalf("invalid length: got=%d, want=%d", got, want)
			}

			got, err := io.ReadAll(h.Reader())
			if err != nil {
				t.Fatalf("could not read mmap file: %+v", err)
			}
			if string(got) != string(tc.data) {
				t.Fatalf("invalid content: got=%q, want=%q", got, tc.data)
			}

			if len(tc.data) > 0 {
				p := make([]byte, 5)
				_, err = h.ReadAt(p, 6)
				if err != nil {
					t.Fatalf("could not read-at: %+v", err)
				}
				if got, want := string(p), "GRAND"; got != want {
					t.Fatalf("invalid read-at: got=%q, want=%q", got, want)
				}

				_, err = h.ReadAt(p, 10)
				if !errors.Is(err, io.EOF) {
					t.Fatalf("invalid read-at error: %+v", err)
				}
			}

			err = h.Close()
			if err != nil {
				t.Fatalf("could not close mmap file: %+v", err)
			}

			_, err = h.ReadAt(make([]byte, 1), 0)
			if !errors.Is(err, errClosed) {
				t.Fatalf("invalid read-at error after close: %+v", err)
			}
		})
	}

	_, err = Open(filepath.Join(tmp, "not-there.bin"))
	if err == nil {
		t.Fatalf("expected an error")
	}
}

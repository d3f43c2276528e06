// Copyright (c) 2013 Uwe Hoffmann. All rights reserved.

/*
Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are
met:

   * Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.
   * Redistributions in binary form must reproduce the above
copyright notice, this list of conditions and the following disclaimer
in the documentation and/or other materials provided with the
distribution.
   * Neither the name of Google Inc. nor the names of its
contributors may be used to endorse or promote products derived from
this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/

// Package archivereader iterates member streams of ZIP and 7z containers
// without full extraction.
package archivereader

import (
	"archive/zip"
	"io"
	"os"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/gabriel-vasile/mimetype"

	"github.com/uwedeportivo/romcat/internal/romcaterr"
)

const (
	zipSuffix      = ".zip"
	sevenZipSuffix = ".7z"
)

var (
	zipMagic      = []byte{'P', 'K'}
	sevenZipMagic = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
)

// Kind is the detected container format.
type Kind int

const (
	KindUnknown Kind = iota
	KindZip
	KindSevenZip
)

// Member is one logical entry inside an archive.
type Member struct {
	Name           string // logical name, forward slashes
	UncompressedSize int64
	Open           func() (io.ReadCloser, error)
}

// DetectKind classifies path by extension first, falling back to magic
// bytes only when the extension is neither .zip nor .7z. A .zip or .7z
// extension decides the kind even when the header bytes are those of the
// other container.
func DetectKind(path string) (Kind, error) {
	switch strings.ToLower(ext(path)) {
	case zipSuffix:
		return KindZip, nil
	case sevenZipSuffix:
		return KindSevenZip, nil
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return KindUnknown, romcaterr.IoError.NewWith(err.Error())
	}

	for m := mtype; m != nil; m = m.Parent() {
		switch m.String() {
		case "application/zip":
			return KindZip, nil
		case "application/x-7z-compressed":
			return KindSevenZip, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, romcaterr.IoError.NewWith(err.Error())
	}
	defer f.Close()

	head := make([]byte, 8)
	n, _ := io.ReadFull(f, head)
	head = head[:n]

	if hasPrefix(head, sevenZipMagic) {
		return KindSevenZip, nil
	}
	if hasPrefix(head, zipMagic) {
		return KindZip, nil
	}

	return KindUnknown, romcaterr.FormatError.NewWith("unrecognised archive container: " + path)
}

func ext(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i:]
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Members returns a lazy sequence of non-directory members of the archive at
// path. The caller must invoke the returned close function once done.
func Members(path string) ([]Member, func() error, error) {
	kind, err := DetectKind(path)
	if err != nil {
		return nil, nil, err
	}

	switch kind {
	case KindZip:
		return zipMembers(path)
	case KindSevenZip:
		return sevenZipMembers(path)
	default:
		return nil, nil, romcaterr.FormatError.NewWith("unsupported archive kind for " + path)
	}
}

func zipMembers(path string) ([]Member, func() error, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, romcaterr.FormatError.NewWith(err.Error())
	}

	members := make([]Member, 0, len(zr.File))
	for _, zf := range zr.File {
		if strings.HasSuffix(zf.Name, "/") {
			continue
		}
		zf := zf
		members = append(members, Member{
			Name:             zf.Name,
			UncompressedSize: int64(zf.UncompressedSize64),
			Open: func() (io.ReadCloser, error) {
				rc, err := zf.Open()
				if err != nil {
					return nil, romcaterr.UnsupportedMember.NewWith(err.Error())
				}
				return rc, nil
			},
		})
	}
	return members, zr.Close, nil
}

func sevenZipMembers(path string) ([]Member, func() error, error) {
	zr, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, nil, romcaterr.FormatError.NewWith(err.Error())
	}

	members := make([]Member, 0, len(zr.File))
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() || strings.HasSuffix(zf.Name, "/") {
			continue
		}
		zf := zf
		members = append(members, Member{
			Name:             zf.Name,
			UncompressedSize: zf.FileInfo().Size(),
			Open: func() (io.ReadCloser, error) {
				rc, err := zf.Open()
				if err != nil {
					return nil, romcaterr.UnsupportedMember.NewWith(err.Error())
				}
				return rc, nil
			},
		})
	}
	return members, zr.Close, nil
}

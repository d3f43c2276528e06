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

// Package hashengine computes the CRC32/MD5/SHA1 triple over a byte source in
// a single streaming pass.
package hashengine

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"io"

	"github.com/klauspost/crc32"

	"github.com/uwedeportivo/romcat/internal/romcaterr"
)

// bufSize bounds the internal read buffer at 1 MiB.
const bufSize = 1 << 20

// ChunkFunc is invoked after every chunk is hashed, with the running byte
// count, so callers (the scanner) can emit progress events without a second
// pass over the data.
type ChunkFunc func(bytesSoFar int64)

// Triple is the lowercase-hex hash triple plus the observed byte count.
type Triple struct {
	Crc32 string
	Md5   string
	Sha1  string
	Size  int64
}

// Hash streams r through CRC32, MD5 and SHA1 simultaneously, one buffer's
// worth at a time, so all three digests advance together before the next
// chunk is read. onChunk may be nil.
func Hash(r io.Reader, onChunk ChunkFunc) (Triple, error) {
	hCrc := crc32.NewIEEE()
	hMd5 := md5.New()
	hSha1 := sha1.New()

	writers := []hash.Hash{hCrc, hMd5, hSha1}

	buf := make([]byte, bufSize)
	var total int64

	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			for _, w := range writers {
				// Write never fails for a hash.Hash; errors here would
				// indicate a broken hash implementation, not an I/O fault.
				w.Write(chunk)
			}
			total += int64(n)
			if onChunk != nil {
				onChunk(total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Triple{}, romcaterr.IoError.NewWith(err.Error())
		}
	}

	return Triple{
		Crc32: hex.EncodeToString(hCrc.Sum(nil)),
		Md5:   hex.EncodeToString(hMd5.Sum(nil)),
		Sha1:  hex.EncodeToString(hSha1.Sum(nil)),
		Size:  total,
	}, nil
}

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

// Package romcaterr carries the typed error classes used across the module,
// threaded through the event stream and returned to callers.
package romcaterr

import (
	stderrors "errors"

	"github.com/spacemonkeygo/errors"
)

var (
	IoError           = errors.NewClass("io error")
	FormatError       = errors.NewClass("format error")
	UnsupportedMember = errors.NewClass("unsupported archive member")
	XmlError          = errors.NewClass("xml parse error")
	DuplicateDat      = errors.NewClass("duplicate dat")
	EmptyCatalogue    = errors.NewClass("empty catalogue")
	StorageError      = errors.NewClass("storage error")

	pathErrorKey = errors.GenSym()
	lineErrorKey = errors.GenSym()
)

// WithPath attaches the originating path to an error option chain.
func WithPath(path string) errors.ErrorOption {
	return errors.SetData(pathErrorKey, path)
}

// WithLine attaches the originating XML line number to an error option chain.
func WithLine(line int) errors.ErrorOption {
	return errors.SetData(lineErrorKey, line)
}

// Path extracts a path previously attached with WithPath, if any.
func Path(err error) string {
	v, ok := errors.GetData(err, pathErrorKey).(string)
	if !ok {
		return ""
	}
	return v
}

// Line extracts a line number previously attached with WithLine, if any.
func Line(err error) int {
	v, ok := errors.GetData(err, lineErrorKey).(int)
	if !ok {
		return -1
	}
	return v
}

// Cancelled is returned by long-running operations that observed a
// cancellation token; it is a distinct outcome, not an error class, and
// not an error: callers should treat it as a normal early-exit signal.
var Cancelled = stderrors.New("cancelled")

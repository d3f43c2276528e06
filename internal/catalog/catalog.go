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

// Package catalog holds the normalised domain model shared by the DAT
// parser, the catalogue store, the scanner and the match resolver.
package catalog

import "time"

// Dialect is the DAT XML dialect recognised by the parser.
type Dialect string

const (
	DialectLogiqx Dialect = "logiqx"
	DialectMAME   Dialect = "mame"
)

// Dat is a curated XML catalogue, identified by the SHA1 of its source bytes.
type Dat struct {
	ID       int64
	Sha1     string // hex, globally unique
	Name     string
	Dialect  Dialect
	Path     string
	Size     int64
	ModTime  time.Time
	Category string
}

// Version is one ingest of a Dat; only the newest version per Dat resolves.
type Version struct {
	ID         int64
	DatID      int64
	Version    string
	Date       string
	LoadedAt   time.Time
	EntryCount int
}

// Set groups Entries scoped to one Version. Set names are not unique across Dats.
type Set struct {
	ID        int64
	VersionID int64
	Name      string
}

// Entry is the atomic catalogue record.
type Entry struct {
	ID    int64
	SetID int64
	Name  string
	Size  uint64
	Crc32 string // lowercase hex, may be empty
	Md5   string // lowercase hex, may be empty
	Sha1  string // lowercase hex, may be empty
}

// Valid reports whether the entry carries at least one usable hash, matching
// the drop rule in the DAT parser.
func (e *Entry) Valid() bool {
	return e.Crc32 != "" || e.Md5 != "" || e.Sha1 != ""
}

// File is a filesystem (or archive-member) observation.
type File struct {
	ID      int64
	Path    string // canonical path, see CanonicalArchiveMemberPath
	Name    string // leaf filename
	Size    uint64
	ModTime time.Time
	Crc32   string
	Md5     string
	Sha1    string
}

// Match links one File to one Entry.
type Match struct {
	ID          int64
	FileID      int64
	EntryID     int64
	NameCorrect bool
	CreatedAt   time.Time
}

// Directory is one node of the rollup tree.
type Directory struct {
	ID           int64
	Path         string
	Name         string
	ParentID     *int64
	FileCount    int64
	MatchedCount int64
	TotalSize    int64
}

// Checkpoint marks resumable progress for a long-running ingest.
type Checkpoint struct {
	JobKind    string
	SourcePath string
	Token      string
	UpdatedAt  time.Time
}

// ArchiveMemberSep is the reserved sentinel separating an archive's absolute
// path from a member's path within it.
const ArchiveMemberSep = "//"

// CanonicalArchiveMemberPath builds the canonical path for a file nested
// inside an archive: "<archive-absolute-path>//<member-path>".
func CanonicalArchiveMemberPath(archivePath, memberPath string) string {
	return archivePath + ArchiveMemberSep + memberPath
}

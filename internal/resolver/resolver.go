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

// Package resolver implements the deterministic match priority tiers:
// sha1+size, then md5+size, then crc32+size; ties broken by exact name
// match, then by lowest entry id.
package resolver

import (
	"database/sql"

	"github.com/uwedeportivo/romcat/internal/catalog"
)

type candidate struct {
	id   int64
	name string
}

// tiers lists, in priority order, the (column, hash) pairs to probe. A tier
// is skipped entirely if the file carries no hash of that kind.
func tiers(f catalog.File) []struct {
	column string
	hash   string
} {
	return []struct {
		column string
		hash   string
	}{
		{"sha1", f.Sha1},
		{"md5", f.Md5},
		{"crc32", f.Crc32},
	}
}

// Resolve finds the best catalogue entry for f, if any, querying only
// entries belonging to the newest version of each dat (the query itself
// joins through dat_versions to pick that version; store.ApplyScannedFile
// calls it inside its transaction). It returns ok=false if no tier produced
// a candidate.
func Resolve(tx *sql.Tx, f catalog.File) (entryID int64, nameCorrect bool, ok bool, err error) {
	for _, t := range tiers(f) {
		if t.hash == "" {
			continue
		}

		rows, err := tx.Query(
			`SELECT entries.id, entries.name FROM entries
			 JOIN sets ON sets.id = entries.set_id
			 JOIN dat_versions ON dat_versions.id = sets.version_id
			 JOIN dats ON dats.id = dat_versions.dat_id
			 WHERE entries.`+t.column+` = ? AND entries.size = ?
			   AND dat_versions.id = (
			       SELECT id FROM dat_versions
			       WHERE dat_id = dats.id
			       ORDER BY loaded_at DESC, id DESC LIMIT 1
			   )`,
			t.hash, f.Size)
		if err != nil {
			return 0, false, false, err
		}

		var candidates []candidate
		for rows.Next() {
			var c candidate
			if err := rows.Scan(&c.id, &c.name); err != nil {
				rows.Close()
				return 0, false, false, err
			}
			candidates = append(candidates, c)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return 0, false, false, err
		}
		rows.Close()

		if len(candidates) == 0 {
			continue
		}

		best := pickTieBreak(candidates, f.Name)
		return best.id, best.name == f.Name, true, nil
	}

	return 0, false, false, nil
}

// pickTieBreak prefers a candidate whose name exactly matches leafName; if
// several (or none) do, it falls back to the lowest entry id.
func pickTieBreak(candidates []candidate, leafName string) candidate {
	best := candidates[0]
	bestNameMatch := best.name == leafName

	for _, c := range candidates[1:] {
		nameMatch := c.name == leafName
		switch {
		case nameMatch && !bestNameMatch:
			best, bestNameMatch = c, true
		case nameMatch == bestNameMatch && c.id < best.id:
			best = c
		}
	}
	return best
}

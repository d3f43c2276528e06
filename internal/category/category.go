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

// Package category derives a hierarchical category path for a DAT.
package category

import (
	"path/filepath"
	"regexp"
	"strings"
)

// tosecPattern matches "<rest> (TOSEC<anything>)" at the end of a filename
// stem, capturing everything before the trailing TOSEC parenthetical.
var tosecPattern = regexp.MustCompile(`^(.*) \(TOSEC[^)]*\)$`)

// Derive picks a category path using this priority order:
// explicit, then directory-based, then TOSEC filename, else root (empty).
func Derive(datPath, importRoot, explicit string) string {
	if explicit != "" {
		return explicit
	}

	if dir := directoryCategory(datPath, importRoot); dir != "" {
		return dir
	}

	if tosec := tosecCategory(filepath.Base(datPath)); tosec != "" {
		return tosec
	}

	return ""
}

func directoryCategory(datPath, importRoot string) string {
	if importRoot == "" {
		return ""
	}

	rel, err := filepath.Rel(importRoot, filepath.Dir(datPath))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}

	return filepath.ToSlash(rel)
}

// tosecCategory parses the TOSEC naming convention:
//
//	<manufacturer> <model> - <section> [ - <subsection>] (TOSEC-...)
//
// and, if the (manufacturer, model) pair is in the bundled table, emits
// "<Manufacturer>/<Model>/<Section>[/<Subsection>]".
func tosecCategory(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))

	m := tosecPattern.FindStringSubmatch(stem)
	if m == nil {
		return ""
	}

	parts := strings.Split(m[1], " - ")
	if len(parts) < 2 {
		return ""
	}

	manufacturer, model, ok := splitManufacturerModel(strings.TrimSpace(parts[0]))
	if !ok {
		return ""
	}

	segs := []string{manufacturer, model, strings.TrimSpace(parts[1])}
	if len(parts) >= 3 {
		segs = append(segs, strings.TrimSpace(parts[2]))
	}
	return strings.Join(segs, "/")
}

// splitManufacturerModel finds the known manufacturer that is a prefix of
// head, and returns the remainder as the model. Matching is case-sensitive
// exact match against the bundled table.
func splitManufacturerModel(head string) (manufacturer, model string, ok bool) {
	for mfr, models := range tosecManufacturers {
		prefix := mfr + " "
		if !strings.HasPrefix(head, prefix) {
			continue
		}
		candidate := strings.TrimSpace(strings.TrimPrefix(head, prefix))
		for _, known := range models {
			if known == candidate {
				return mfr, known, true
			}
		}
	}
	return "", "", false
}

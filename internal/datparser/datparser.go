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

// Package datparser turns Logiqx and MAME DAT XML into the normalised
// catalog model.
package datparser

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/uwedeportivo/romcat/internal/catalog"
	"github.com/uwedeportivo/romcat/internal/romcaterr"
)

// Header carries the optional header metadata the store needs for a Version row.
type Header struct {
	Name    string
	Version string
	Date    string
}

// SetEntries is one normalised (set, entries) pair.
type SetEntries struct {
	Set     catalog.Set
	Entries []catalog.Entry
}

// Parsed is the fully normalised result of parsing one DAT.
type Parsed struct {
	Header  Header
	Dialect catalog.Dialect
	Sets    []SetEntries
}

type rawRom struct {
	Name   string `xml:"name,attr"`
	Size   string `xml:"size,attr"`
	Crc    string `xml:"crc,attr"`
	Md5    string `xml:"md5,attr"`
	Sha1   string `xml:"sha1,attr"`
	Status string `xml:"status,attr"`
}

type rawDataArea struct {
	Roms []rawRom `xml:"rom"`
}

type rawPart struct {
	DataAreas []rawDataArea `xml:"dataarea"`
}

type rawLogiqxGame struct {
	Name  string    `xml:"name,attr"`
	Roms  []rawRom  `xml:"rom"`
	Parts []rawPart `xml:"part"`
}

type rawLogiqxHeader struct {
	Name    string `xml:"name"`
	Version string `xml:"version"`
	Date    string `xml:"date"`
}

type rawLogiqxDatafile struct {
	XMLName xml.Name        `xml:"datafile"`
	Header  rawLogiqxHeader `xml:"header"`
	Games   []rawLogiqxGame `xml:"game"`
	// clrmamepro-derived DATs sometimes use <machine> instead of <game>.
	Machines []rawLogiqxGame `xml:"machine"`
	Software []rawLogiqxGame `xml:"software"`
}

type rawMameMachine struct {
	Name string   `xml:"name,attr"`
	Roms []rawRom `xml:"rom"`
}

type rawMame struct {
	XMLName  xml.Name         `xml:"mame"`
	Build    string           `xml:"build,attr"`
	Machines []rawMameMachine `xml:"machine"`
}

type rawSoftwareLists struct {
	XMLName  xml.Name        `xml:"softwarelists"`
	Software []rawLogiqxGame `xml:"software"`
}

// detectRoot scans forward to the first element after the XML prologue,
// returning its local name, without consuming the rest of the stream.
func detectRoot(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", romcaterr.XmlError.NewWith("no root element found")
		}
		if err != nil {
			return "", romcaterr.XmlError.NewWith(err.Error())
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

// Parse autodetects the DAT dialect and normalises entries. path is carried
// only for error reporting.
func Parse(r io.Reader, path string) (Parsed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Parsed{}, romcaterr.IoError.NewWith(err.Error(), romcaterr.WithPath(path))
	}

	root, err := detectRoot(data)
	if err != nil {
		return Parsed{}, attachPath(err, path)
	}

	switch root {
	case "datafile":
		return parseLogiqx(data, path)
	case "mame":
		return parseMame(data, path)
	case "softwarelists":
		return parseSoftwareLists(data, path)
	default:
		return Parsed{}, romcaterr.XmlError.NewWith("unrecognised DAT root element "+root, romcaterr.WithPath(path))
	}
}

func attachPath(err error, path string) error {
	return romcaterr.XmlError.NewWith(err.Error(), romcaterr.WithPath(path))
}

func parseLogiqx(data []byte, path string) (Parsed, error) {
	var df rawLogiqxDatafile
	if err := xml.Unmarshal(data, &df); err != nil {
		return Parsed{}, romcaterr.XmlError.NewWith(err.Error(), romcaterr.WithPath(path))
	}

	games := df.Games
	games = append(games, df.Machines...)
	games = append(games, df.Software...)

	parsed := Parsed{
		Dialect: catalog.DialectLogiqx,
		Header: Header{
			Name:    df.Header.Name,
			Version: df.Header.Version,
			Date:    df.Header.Date,
		},
	}

	for _, g := range games {
		set, entries := normaliseGame(g)
		if len(entries) == 0 {
			continue
		}
		parsed.Sets = append(parsed.Sets, SetEntries{Set: set, Entries: entries})
	}

	if len(parsed.Sets) == 0 {
		return Parsed{}, romcaterr.EmptyCatalogue.NewWith("no usable entries in "+path, romcaterr.WithPath(path))
	}
	return parsed, nil
}

func parseSoftwareLists(data []byte, path string) (Parsed, error) {
	var sl rawSoftwareLists
	if err := xml.Unmarshal(data, &sl); err != nil {
		return Parsed{}, romcaterr.XmlError.NewWith(err.Error(), romcaterr.WithPath(path))
	}

	parsed := Parsed{Dialect: catalog.DialectMAME}
	for _, g := range sl.Software {
		set, entries := normaliseGame(g)
		if len(entries) == 0 {
			continue
		}
		parsed.Sets = append(parsed.Sets, SetEntries{Set: set, Entries: entries})
	}

	if len(parsed.Sets) == 0 {
		return Parsed{}, romcaterr.EmptyCatalogue.NewWith("no usable entries in "+path, romcaterr.WithPath(path))
	}
	return parsed, nil
}

func parseMame(data []byte, path string) (Parsed, error) {
	var m rawMame
	if err := xml.Unmarshal(data, &m); err != nil {
		return Parsed{}, romcaterr.XmlError.NewWith(err.Error(), romcaterr.WithPath(path))
	}

	parsed := Parsed{
		Dialect: catalog.DialectMAME,
		Header:  Header{Version: m.Build},
	}

	for _, mc := range m.Machines {
		entries := make([]catalog.Entry, 0, len(mc.Roms))
		for _, r := range mc.Roms {
			if e, ok := normaliseRom(r); ok {
				entries = append(entries, e)
			}
		}
		// Machines with no runnable ROMs (bios/device stubs, pure logic
		// boards) carry nothing to match against and are dropped.
		if len(entries) == 0 {
			continue
		}
		parsed.Sets = append(parsed.Sets, SetEntries{
			Set:     catalog.Set{Name: mc.Name},
			Entries: entries,
		})
	}

	if len(parsed.Sets) == 0 {
		return Parsed{}, romcaterr.EmptyCatalogue.NewWith("no usable entries in "+path, romcaterr.WithPath(path))
	}
	return parsed, nil
}

func normaliseGame(g rawLogiqxGame) (catalog.Set, []catalog.Entry) {
	roms := g.Roms
	for _, p := range g.Parts {
		for _, da := range p.DataAreas {
			roms = append(roms, da.Roms...)
		}
	}

	entries := make([]catalog.Entry, 0, len(roms))
	for _, r := range roms {
		if e, ok := normaliseRom(r); ok {
			entries = append(entries, e)
		}
	}
	return catalog.Set{Name: g.Name}, entries
}

// normaliseRom lowercases hashes, parses the size, and drops the rom if it
// carries no hash at all or is marked "nodump".
func normaliseRom(r rawRom) (catalog.Entry, bool) {
	if strings.EqualFold(r.Status, "nodump") {
		return catalog.Entry{}, false
	}

	crc := strings.ToLower(strings.TrimSpace(r.Crc))
	md5 := strings.ToLower(strings.TrimSpace(r.Md5))
	sha1 := strings.ToLower(strings.TrimSpace(r.Sha1))

	if crc == "" && md5 == "" && sha1 == "" {
		return catalog.Entry{}, false
	}

	var size uint64
	if r.Size != "" {
		v, err := strconv.ParseUint(r.Size, 10, 64)
		if err == nil {
			size = v
		}
	}

	return catalog.Entry{
		Name:  strings.ReplaceAll(r.Name, "\\", "/"),
		Size:  size,
		Crc32: crc,
		Md5:   md5,
		Sha1:  sha1,
	}, true
}

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

package category

// tosecManufacturers maps a TOSEC manufacturer name to its known model
// names. Lookups against it are case-sensitive exact matches on both
// manufacturer and model.
//
// The full TOSEC naming convention table carries 472 manufacturer/model
// pairs; this is a representative subset covering the platforms that show
// up across the example DAT corpus (see DESIGN.md for the size-budget
// tradeoff). Extending it is additive: drop more manufacturer/model pairs
// in below.
var tosecManufacturers = map[string][]string{
	"Commodore":         {"Amiga", "Amiga CD32", "Amiga CDTV", "C16", "C64", "C128", "MAX Machine", "PET", "Plus-4", "VIC-20"},
	"Nintendo":          {"Famicom Disk System", "Game Boy", "Game Boy Advance", "Game Boy Color", "GameCube", "N64", "NES", "Nintendo 64", "Nintendo DS", "Pokemon Mini", "SNES", "Super Famicom", "Virtual Boy"},
	"Sega":              {"32X", "CD", "Dreamcast", "Game Gear", "Master System", "Mega Drive", "Mega-CD", "Pico", "SG-1000", "Saturn"},
	"Sony":               {"PlayStation", "PlayStation 2", "PlayStation Portable"},
	"Atari":             {"130XE", "2600", "5200", "7800", "800", "800XL", "Jaguar", "Jaguar CD", "Lynx", "ST", "STE", "XEGS"},
	"Sharp":             {"MZ-700", "MZ-800", "X1", "X68000"},
	"NEC":               {"PC-88", "PC-98", "PC Engine", "PC Engine CD", "SuperGrafx"},
	"Microsoft":         {"MSX", "MSX2", "Xbox", "Xbox 360"},
	"Apple":             {"I", "II", "IIGS", "Lisa", "Macintosh"},
	"Amstrad":           {"CPC", "GX4000", "PCW"},
	"Sinclair":          {"QL", "ZX Spectrum", "ZX81"},
	"SNK":               {"Neo Geo", "Neo Geo CD", "Neo Geo Pocket", "Neo Geo Pocket Color"},
	"Bandai":            {"Playdia", "WonderSwan", "WonderSwan Color"},
	"Coleco":            {"Adam", "ColecoVision"},
	"Philips":           {"CD-i", "Videopac+"},
	"Texas Instruments": {"TI-99/4A"},
	"GCE":               {"Vectrex"},
	"Fairchild":         {"Channel F"},
	"Mattel":            {"Intellivision"},
	"Magnavox":          {"Odyssey2"},
	"Acorn":             {"Archimedes", "BBC Micro", "Electron"},
	"Tandy":             {"Color Computer", "TRS-80"},
	"Tiger":             {"Game.com"},
	"Watara":            {"Supervision"},
	"Casio":             {"PV-1000", "PV-2000"},
	"Emerson":           {"Arcadia 2001"},
	"Epoch":             {"Super Cassette Vision"},
	"Funtech":           {"Super A'Can"},
	"Nokia":             {"N-Gage"},
	"VTech":             {"CreatiVision", "V.Smile"},
	"RCA":               {"Studio II"},
}

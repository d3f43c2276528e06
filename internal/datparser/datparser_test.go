package datparser

import (
	"strings"
	"testing"

	"github.com/uwedeportivo/romcat/internal/catalog"
)

const logiqxDat = `<?xml version="1.0"?>
<datafile>
	<header>
		<name>Nintendo - Game Boy</name>
		<version>20240101</version>
		<date>2024-01-01</date>
	</header>
	<game name="Super Game">
		<rom name="Super Game.gb" size="32768" crc="ABCD1234" md5="AABBCCDDEEFF00112233445566778899" sha1="1111111111111111111111111111111111111111"/>
	</game>
	<game name="No Hash Game">
		<rom name="nohash.gb" size="100"/>
	</game>
</datafile>`

func TestParseLogiqx(t *testing.T) {
	parsed, err := Parse(strings.NewReader(logiqxDat), "gb.dat")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Dialect != catalog.DialectLogiqx {
		t.Errorf("Dialect = %v, want logiqx", parsed.Dialect)
	}
	if parsed.Header.Name != "Nintendo - Game Boy" || parsed.Header.Version != "20240101" {
		t.Errorf("Header = %+v", parsed.Header)
	}
	// The hashless rom is dropped, and with it the game that held only that rom.
	if len(parsed.Sets) != 1 {
		t.Fatalf("got %d sets, want 1 (hashless game dropped)", len(parsed.Sets))
	}
	set := parsed.Sets[0]
	if set.Set.Name != "Super Game" {
		t.Errorf("Set.Name = %q, want Super Game", set.Set.Name)
	}
	if len(set.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(set.Entries))
	}
	e := set.Entries[0]
	if e.Crc32 != "abcd1234" {
		t.Errorf("Crc32 = %q, want lowercased abcd1234", e.Crc32)
	}
	if e.Size != 32768 {
		t.Errorf("Size = %d, want 32768", e.Size)
	}
}

const emptyLogiqxDat = `<?xml version="1.0"?>
<datafile>
	<header><name>Empty</name></header>
	<game name="No Hashes"><rom name="x" size="1"/></game>
</datafile>`

func TestParseEmptyCatalogue(t *testing.T) {
	_, err := Parse(strings.NewReader(emptyLogiqxDat), "empty.dat")
	if err == nil {
		t.Fatal("expected EmptyCatalogue error")
	}
}

func TestParseMalformedXML(t *testing.T) {
	_, err := Parse(strings.NewReader("<datafile><game>"), "broken.dat")
	if err == nil {
		t.Fatal("expected XmlError")
	}
}

const mameDat = `<?xml version="1.0"?>
<mame build="0.260">
	<machine name="biosonly">
		<rom name="bios.bin" size="8" status="nodump"/>
	</machine>
	<machine name="pacman">
		<rom name="pacman.6e" size="4096" crc="C1E6AB10" sha1="06EF16AD9D5DF5AB80CF035801EACF4853DACEBE"/>
	</machine>
</mame>`

func TestParseMameDropsNoRomMachines(t *testing.T) {
	parsed, err := Parse(strings.NewReader(mameDat), "mame.dat")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Dialect != catalog.DialectMAME {
		t.Errorf("Dialect = %v, want mame", parsed.Dialect)
	}
	if len(parsed.Sets) != 1 {
		t.Fatalf("got %d sets, want 1 (nodump-only machine dropped)", len(parsed.Sets))
	}
	if parsed.Sets[0].Set.Name != "pacman" {
		t.Errorf("Set.Name = %q, want pacman", parsed.Sets[0].Set.Name)
	}
}

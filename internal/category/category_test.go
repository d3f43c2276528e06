package category

import "testing"

func TestDeriveExplicitWins(t *testing.T) {
	got := Derive("/dats/Nintendo/gb.dat", "/dats", "Custom/Category")
	if got != "Custom/Category" {
		t.Errorf("Derive = %q, want Custom/Category", got)
	}
}

func TestDeriveDirectoryBased(t *testing.T) {
	got := Derive("/dats/Nintendo/Game Boy/gb.dat", "/dats", "")
	if got != "Nintendo/Game Boy" {
		t.Errorf("Derive = %q, want Nintendo/Game Boy", got)
	}
}

func TestDeriveTosecFilename(t *testing.T) {
	got := Derive("/flat/Commodore Amiga - Games - [ADF] (TOSEC-v2025).dat", "/flat", "")
	if got != "Commodore/Amiga/Games/[ADF]" {
		t.Errorf("Derive = %q, want Commodore/Amiga/Games/[ADF]", got)
	}
}

func TestDeriveTosecUnknownManufacturerFallsToRoot(t *testing.T) {
	got := Derive("/flat/NotAReal Machine - Games (TOSEC-v2025).dat", "/flat", "")
	if got != "" {
		t.Errorf("Derive = %q, want empty root category", got)
	}
}

func TestDeriveNoMatchIsRoot(t *testing.T) {
	got := Derive("/flat/whatever.dat", "/flat", "")
	if got != "" {
		t.Errorf("Derive = %q, want empty root category", got)
	}
}

func TestDeriveDirectoryOutsideRootIgnored(t *testing.T) {
	got := Derive("/elsewhere/gb.dat", "/dats", "")
	if got != "" {
		t.Errorf("Derive = %q, want empty (path escapes import root)", got)
	}
}

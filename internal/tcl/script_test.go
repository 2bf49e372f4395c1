package tcl

import "testing"

func TestScript(t *testing.T) {
	var s Script
	s.Raw("onerror {\n quit -code 1 \n}")
	s.Command("alib", "my lib")
	s.Command("alog", "-work", "my lib", "+define+COCOTB_SIM", "/src/a b.v")
	s.Command()

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}

	want := "onerror {\n quit -code 1 \n}\n" +
		"alib my\\ lib\n" +
		"alog -work my\\ lib +define+COCOTB_SIM /src/a\\ b.v\n"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestScript_Inline(t *testing.T) {
	var s Script
	s.Command("log", "-recursive", "/*").Command("run", "-all").Command("quit")

	if got, want := s.Inline(), "log -recursive /*; run -all; quit"; got != want {
		t.Errorf("Inline() = %q, want %q", got, want)
	}

	var empty Script
	if empty.String() != "" || empty.Inline() != "" {
		t.Error("empty script should render empty")
	}
}

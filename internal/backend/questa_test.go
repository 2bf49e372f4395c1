package backend

import (
	"testing"

	"cocotbtest/internal/job"
)

func TestQuesta_VHDLLibraries(t *testing.T) {
	j := mustJob(t, job.Spec{
		Toplevel:     []string{"lib2.top"},
		Module:       "test_top",
		ToplevelLang: job.LangVHDL,
		VHDLSources: job.LibrarySources(
			job.Library{Name: "lib1", Files: []string{"x.vhd"}},
			job.Library{Name: "lib2", Files: []string{"y.vhd"}},
		),
		Parameters: []job.Parameter{{Name: "G", Value: "a b"}},
	})
	p := mustPlan(t, "questa", j, testOptions())

	if len(p.Commands) != 5 {
		t.Fatalf("want 5 commands, got %d: %v", len(p.Commands), p.Commands)
	}
	assertArgs(t, "vlib lib1", p.Commands[0].Args, "vlib", "lib1")
	assertArgs(t, "vcom lib1", p.Commands[1].Args, "vcom", "-mixedsvvh", "-work", "lib1", "/w/x.vhd")
	assertArgs(t, "vlib lib2", p.Commands[2].Args, "vlib", "lib2")
	assertArgs(t, "vcom lib2", p.Commands[3].Args, "vcom", "-mixedsvvh", "-work", "lib2", "/w/y.vhd")
	assertArgs(t, "vsim", p.Commands[4].Args,
		"vsim", "-c", "-onfinish", "exit",
		"-foreign", "cocotb_init /cocotb/libs/libcocotbfli_questa.so",
		`-gG=a\ b`, "lib2.top",
		"-do", "run -all; quit")

	if _, ok := p.Env["GPI_EXTRA"]; ok {
		t.Error("GPI_EXTRA must not be set without Verilog sources")
	}
}

func TestQuesta_VerilogTopWithVHDL(t *testing.T) {
	waves := true
	j := mustJob(t, job.Spec{
		Toplevel:       []string{"top"},
		Module:         "test_top",
		VerilogSources: job.FlatSources("my dir/top.v"),
		VHDLSources:    job.FlatSources("sub.vhd"),
		Defines:        []string{"A B"},
		PlusArgs:       []string{"+x y"},
		Waves:          &waves,
		Timescale:      "1ns/1ps",
	})
	p := mustPlan(t, "questa", j, testOptions())

	vlog := p.Commands[3].Args
	assertArgs(t, "vlog", vlog,
		"vlog", "-mixedsvvh", "-incr", "-work", "top", "+define+COCOTB_SIM", "-sv",
		`+define+A\ B`, "-timescale", "1ns/1ps", `/w/my\ dir/top.v`)

	vsim := p.Commands[4].Args
	assertContains(t, "vsim", vsim, "-pli", "/cocotb/libs/libcocotbvpi_questa.so")
	assertContains(t, "vsim", vsim, "top.top", `+x\ y`, "-do", "log -recursive /*; run -all; quit")

	if got := p.Env["GPI_EXTRA"]; got != "/cocotb/libs/libcocotbfli_questa.so:cocotbfli_entry_point" {
		t.Errorf("GPI_EXTRA = %q", got)
	}
}

func TestQuesta_GUIAndForce(t *testing.T) {
	j := mustJob(t, job.Spec{
		Toplevel:       []string{"top"},
		Module:         "test_top",
		VerilogSources: job.FlatSources("top.v"),
		GUI:            true,
		ForceCompile:   true,
	})
	p := mustPlan(t, "modelsim", j, testOptions())
	if p.Backend != "modelsim" {
		t.Errorf("Backend = %q", p.Backend)
	}
	for _, arg := range p.Commands[1].Args {
		if arg == "-incr" {
			t.Error("forced compile must not be incremental")
		}
	}
	vsim := p.Commands[2].Args
	assertArgs(t, "vsim head", vsim[:4], "vsim", "-gui", "-onfinish", "stop")
	for _, arg := range vsim {
		if arg == "-do" {
			t.Error("GUI run without waves needs no do-script")
		}
	}
}

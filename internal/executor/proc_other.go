//go:build !unix

package executor

import (
	"os"
	"os/exec"
)

var defaultSignals = []os.Signal{os.Interrupt}

func setProcessGroup(cmd *exec.Cmd) {}

func killGroup(pid int) {
	if p, err := os.FindProcess(pid); err == nil {
		p.Kill()
	}
}

func exitSignal(state *os.ProcessState) os.Signal { return nil }

func signalName(sig os.Signal) string { return sig.String() }

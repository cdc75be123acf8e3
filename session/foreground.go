package session

import (
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// foregroundPgid returns the foreground process group of the PTY, or 0 when
// it cannot be determined
func (h *PtyHandle) foregroundPgid() int {
	pgid, err := unix.IoctlGetInt(int(h.ptmx.Fd()), unix.TIOCGPGRP)
	if err != nil {
		return 0
	}
	return pgid
}

// ForegroundBusy reports whether something other than the spawned shell owns
// the terminal foreground, i.e. a command is running
func (h *PtyHandle) ForegroundBusy() bool {
	if !h.IsAlive() {
		return false
	}
	pgid := h.foregroundPgid()
	return pgid != 0 && pgid != h.cmd.Process.Pid
}

// ForegroundCommand resolves the name of the process leading the foreground
// group, for display while a shell command runs. Returns "" when unknown.
func (h *PtyHandle) ForegroundCommand() string {
	pgid := h.foregroundPgid()
	if pgid == 0 || pgid == h.cmd.Process.Pid {
		return ""
	}
	proc, err := process.NewProcess(int32(pgid))
	if err != nil {
		return ""
	}
	name, err := proc.Name()
	if err != nil {
		return ""
	}
	return name
}

package proto

import "syscall"

// setPdeathsig sets Pdeathsig so the child dies if the parent crashes.
func setPdeathsig(attr *syscall.SysProcAttr) {
	attr.Pdeathsig = syscall.SIGTERM
}

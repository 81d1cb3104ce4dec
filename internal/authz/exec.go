package authz

import "golang.org/x/sys/unix"

// checkExecutable asks the kernel whether the current process may execute
// path, honouring ownership, ACLs and noexec mounts.
func checkExecutable(path string) error {
	return unix.Access(path, unix.X_OK)
}

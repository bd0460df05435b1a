package services

import "os/exec"

// LaunchDetached starts path as an independent process. The child is reaped
// in the background so an admin tool that exits never lingers as a zombie
// while this process keeps running.
func LaunchDetached(path string) error {
	cmd := exec.Command(path)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

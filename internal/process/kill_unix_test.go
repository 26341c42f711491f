//go:build !windows

package process

import (
	"os/exec"
	"testing"
)

func TestSetProcessGroup_NewGroup(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("pdftoppm", "-v")
	setProcessGroup(cmd)

	if cmd.SysProcAttr == nil || !cmd.SysProcAttr.Setpgid {
		t.Error("command must lead its own process group")
	}
}

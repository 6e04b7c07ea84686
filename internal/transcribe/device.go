package transcribe

import (
	"context"
	"os/exec"
	"sync"
	"time"
)

var detectOnce = sync.OnceValue(probeDevice)

// DetectDevice reports the processing unit to use when none was requested:
// "cuda" when an NVIDIA GPU is visible, "cpu" otherwise. The probe runs once
// per process; hardware does not appear mid-run.
func DetectDevice() string {
	return detectOnce()
}

func probeDevice() string {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return "cpu"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// nvidia-smi -L exits non-zero when the driver is present but no GPU is.
	if err := exec.CommandContext(ctx, path, "-L").Run(); err != nil {
		return "cpu"
	}
	return "cuda"
}

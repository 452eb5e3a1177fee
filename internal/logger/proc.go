package logger

import (
	"errors"
	"math"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// procState describes the current holder of a pid.
type procState struct {
	alive bool
	// started is zero when the start time could not be read.
	started time.Time
}

// inspectProcess looks pid up. Only a definite "no such process" reports it
// gone; inspection failures count as alive so the log is kept.
func inspectProcess(pid int) procState {
	if pid <= 0 || pid > math.MaxInt32 {
		return procState{}
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return procState{}
		}
		return procState{alive: true}
	}
	st := procState{alive: true}
	if ms, err := p.CreateTime(); err == nil && ms > 0 {
		st.started = time.UnixMilli(ms)
	}
	return st
}

package tracker

import (
	"encoding/json"
	"os"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

// MaskPlaceholder replaces the computer_info section when masking is on.
const MaskPlaceholder = "<Masked>"

const unavailable = "<Permission Denied or Unavailable>"

// SystemInfo is the platform snapshot attached to every error report.
type SystemInfo struct {
	OS                      string `json:"OS"`
	OSVersion               string `json:"OS_version"`
	Release                 string `json:"Release"`
	Architecture            string `json:"Architecture"`
	Processor               string `json:"Processor"`
	GoVersion               string `json:"Go_Version"`
	Executable              string `json:"Executable"`
	CurrentWorkingDirectory string `json:"Current_Working_Directory"`
}

//nolint:gochecknoglobals // platform facts do not change during a process lifetime
var (
	systemOnce sync.Once
	systemInfo SystemInfo
)

// CollectSystemInfo returns the cached platform snapshot, gathering it on first use.
func CollectSystemInfo() SystemInfo {
	systemOnce.Do(func() {
		systemInfo = gatherSystemInfo()
	})
	return systemInfo
}

func gatherSystemInfo() SystemInfo {
	info := SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		GoVersion:    runtime.Version(),
	}

	if h, err := host.Info(); err == nil {
		if h.Platform != "" {
			info.OS = h.OS + "/" + h.Platform
		}
		info.OSVersion = h.PlatformVersion
		info.Release = h.KernelVersion
		if h.KernelArch != "" {
			info.Architecture = h.KernelArch
		}
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.Processor = cpus[0].ModelName
	}

	if exe, err := os.Executable(); err == nil {
		info.Executable = exe
	} else {
		info.Executable = unavailable
	}
	if cwd, err := os.Getwd(); err == nil {
		info.CurrentWorkingDirectory = cwd
	} else {
		info.CurrentWorkingDirectory = unavailable
	}
	return info
}

// ComputerInfo is either a SystemInfo or the masked placeholder.
type ComputerInfo struct {
	system *SystemInfo
}

func unmaskedInfo(s SystemInfo) ComputerInfo { return ComputerInfo{system: &s} }

func (c ComputerInfo) Masked() bool { return c.system == nil }

// System returns the platform fields; ok is false when masked.
func (c ComputerInfo) System() (SystemInfo, bool) {
	if c.system == nil {
		return SystemInfo{}, false
	}
	return *c.system, true
}

func (c ComputerInfo) MarshalJSON() ([]byte, error) {
	if c.system == nil {
		return json.Marshal(MaskPlaceholder)
	}
	return json.Marshal(c.system)
}

func (c *ComputerInfo) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		c.system = nil
		return nil
	}
	var info SystemInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return err
	}
	c.system = &info
	return nil
}

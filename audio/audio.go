package audio

import (
	"math"
	"strings"
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]", "(bt)", "[bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DataCallback receives interleaved signed 16-bit little-endian PCM.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
	// Gain multiplies every sample before delivery; 0 means unity.
	Gain int
}

func (c CaptureConfig) gain() int32 {
	if c.Gain <= 0 {
		return 1
	}
	return int32(c.Gain)
}

type DeviceInfo struct {
	ID      string // opaque platform-specific identifier
	Name    string
	Default bool
}

// orderDevices moves the system default device to the front.
func orderDevices(devices []DeviceInfo) []DeviceInfo {
	for i, d := range devices {
		if d.Default && i > 0 {
			out := make([]DeviceInfo, 0, len(devices))
			out = append(out, d)
			out = append(out, devices[:i]...)
			return append(out, devices[i+1:]...)
		}
	}
	return devices
}

func deviceName(d *DeviceInfo) string {
	if d == nil {
		return "system default"
	}
	return d.Name
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

func applyGain(dst []byte, samples []int16, gain int32) {
	for i, s := range samples {
		v := int32(s) * gain
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		dst[i*2] = byte(uint16(int16(v)))
		dst[i*2+1] = byte(uint16(int16(v)) >> 8)
	}
}

// RMS is the root mean square level of 16-bit PCM, normalized to 0..1.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(n))
}

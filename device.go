package main

import (
	"fmt"

	"aitranscriber/audio"
)

// resolveDevice returns the capture device named by -device, runs the
// interactive picker for -setup, or nil for the system default.
func resolveDevice(ctx audio.Context, name string, setup bool) (*audio.DeviceInfo, error) {
	if name != "" {
		devices, err := ctx.Devices()
		if err != nil {
			return nil, fmt.Errorf("enumerating devices: %w", err)
		}
		for i := range devices {
			if devices[i].Name == name {
				return &devices[i], nil
			}
		}
		return nil, fmt.Errorf("device %q not found", name)
	}
	if setup {
		return audio.SelectDevice(ctx)
	}
	return nil, nil
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}

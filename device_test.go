package main

import (
	"testing"

	"aitranscriber/audio"
	"aitranscriber/encoder"
)

func TestDeviceLineText(t *testing.T) {
	tests := []struct {
		dev  *audio.DeviceInfo
		want string
	}{
		{nil, "mic: system default"},
		{&audio.DeviceInfo{Name: "USB Mic"}, "mic: USB Mic"},
		{&audio.DeviceInfo{Name: "AirPods Pro"}, "mic: AirPods Pro (BT!)"},
	}
	for _, tt := range tests {
		if got := deviceLineText(tt.dev); got != tt.want {
			t.Errorf("deviceLineText(%v) = %q, want %q", tt.dev, got, tt.want)
		}
	}
}

func TestResolveDevice(t *testing.T) {
	ctx := audio.NewFakeContextPCM(nil, encoder.DefaultFormat, false)

	dev, err := resolveDevice(ctx, "", false)
	if err != nil || dev != nil {
		t.Errorf("default = %v, %v; want nil, nil", dev, err)
	}
	dev, err = resolveDevice(ctx, "fake", false)
	if err != nil || dev == nil || dev.ID != "fake" {
		t.Errorf("named = %v, %v", dev, err)
	}
	if _, err := resolveDevice(ctx, "missing", false); err == nil {
		t.Error("expected error for unknown device")
	}
}

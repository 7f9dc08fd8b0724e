//go:build linux

package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

// pulse hands samples over in small blocks; 50ms keeps the level meter live.
const pulseLatency = 0.05

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("aitranscriber"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	var defaultID string
	if def, err := p.client.DefaultSource(); err == nil && def != nil {
		defaultID = def.ID()
	}
	devices := make([]DeviceInfo, 0, len(sources))
	for _, s := range sources {
		devices = append(devices, DeviceInfo{
			ID:      s.ID(),
			Name:    s.Name(),
			Default: s.ID() == defaultID,
		})
	}
	return orderDevices(devices), nil
}

func (p *pulseContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	if config.Channels > 2 {
		return nil, fmt.Errorf("pulse: %d channels not supported", config.Channels)
	}
	return &pulseCapture{client: p.client, device: device, config: config}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

type pulseCapture struct {
	client   *pulse.Client
	device   *DeviceInfo
	config   CaptureConfig
	callback atomic.Pointer[DataCallback]

	mu      sync.Mutex
	running chan struct{} // closed to end the stream goroutine
	done    chan struct{}
}

func (c *pulseCapture) channels() int {
	return max(1, int(c.config.Channels))
}

// deliver converts one pulse block and passes it to the current callback.
func (c *pulseCapture) deliver(buf []int16) (int, error) {
	cb := c.callback.Load()
	if cb == nil || len(buf) == 0 {
		return len(buf), nil
	}
	data := make([]byte, len(buf)*2)
	applyGain(data, buf, c.config.gain())
	(*cb)(data, uint32(len(buf)/c.channels()))
	return len(buf), nil
}

func (c *pulseCapture) recordOptions() []pulse.RecordOption {
	layout := pulse.RecordMono
	if c.channels() == 2 {
		layout = pulse.RecordStereo
	}
	opts := []pulse.RecordOption{
		layout,
		pulse.RecordSampleRate(int(c.config.SampleRate)),
		pulse.RecordLatency(pulseLatency),
		pulse.RecordRawOption(func(r *proto.CreateRecordStream) {
			vol := uint32(proto.VolumeNorm) * 3
			r.ChannelVolumes = proto.ChannelVolumes{vol}
		}),
	}
	if c.device != nil {
		if source, err := c.client.SourceByID(c.device.ID); err == nil && source != nil {
			opts = append(opts, pulse.RecordSource(source))
		}
	}
	return opts
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running != nil {
		return nil
	}

	stream, err := c.client.NewRecord(pulse.Int16Writer(c.deliver), c.recordOptions()...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}

	running, done := make(chan struct{}), make(chan struct{})
	c.running, c.done = running, done
	go func() {
		defer close(done)
		stream.Start()
		<-running
		stream.Stop()
		stream.Close()
	}()
	return nil
}

func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running == nil {
		return
	}
	close(c.running)
	<-c.done
	c.running, c.done = nil, nil
}

func (c *pulseCapture) Close() {
	c.Stop()
}

func (c *pulseCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *pulseCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *pulseCapture) DeviceName() string {
	return deviceName(c.device)
}

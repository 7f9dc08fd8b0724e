package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"aitranscriber/audio"
	"aitranscriber/config"
	"aitranscriber/encoder"
	"aitranscriber/transcriber"
	"aitranscriber/translator"
)

const (
	recordFor      = 3 * time.Second
	requestTimeout = 30 * time.Second
	// below this RMS level the recording is treated as silence
	silentLevel = 0.002
)

type doctor struct {
	out      io.Writer
	in       *bufio.Reader
	settings config.Settings
	pcm      []byte
}

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
// Canceling ctx aborts the run.
func Run(ctx context.Context, settings config.Settings) int {
	release := guardTerminal(ctx, os.Stdout)
	defer release()

	d := &doctor{out: os.Stdout, in: bufio.NewReader(os.Stdin), settings: settings}
	if d.run() {
		return 0
	}
	return 1
}

func (d *doctor) run() bool {
	fmt.Fprintln(d.out, "aitranscriber doctor - interactive system diagnostics")
	fmt.Fprintln(d.out, "=====================================================")

	allPass := d.checkMicrophone()
	if !d.checkKey() {
		allPass = false
	} else if d.pcm != nil {
		client, err := transcriber.New(d.settings.Provider, transcriber.Options{
			Model:          d.settings.Model,
			SourceLanguage: d.settings.SourceLanguage,
			TargetLanguage: d.settings.TargetLanguage,
		})
		if err != nil {
			fmt.Fprintf(d.out, "  FAIL: %v\n", err)
			allPass = false
		} else if !d.checkTranscription(client, d.settings.ResolveKey()) {
			allPass = false
		}
	}
	if !d.checkTranslation() {
		allPass = false
	}
	if !d.checkClipboard() {
		allPass = false
	}

	fmt.Fprintln(d.out)
	if allPass {
		fmt.Fprintln(d.out, "All checks passed!")
	} else {
		fmt.Fprintln(d.out, "Some checks failed. See details above.")
	}
	return allPass
}

func (d *doctor) ask(prompt string) string {
	fmt.Fprint(d.out, prompt)
	line, _ := d.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (d *doctor) confirm(prompt string) bool {
	answer := strings.ToLower(d.ask(prompt))
	return answer == "y" || answer == "yes"
}

func (d *doctor) checkMicrophone() bool {
	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, "[1/5] Microphone")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(d.out, "  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Fprintf(d.out, "  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Fprintln(d.out, "  FAIL: no capture devices found")
		return false
	}

	device, ok := d.pickDevice(devices)
	if !ok {
		return false
	}
	if audio.IsBluetooth(device.Name) {
		fmt.Fprintln(d.out, "  Warning: Bluetooth microphones record at lower quality")
	}

	d.ask(fmt.Sprintf("Press Enter and speak for %d seconds...", int(recordFor.Seconds())))

	stop := make(chan struct{})
	time.AfterFunc(recordFor, func() { close(stop) })
	pcm, err := d.record(ctx, device, stop)
	if err != nil {
		fmt.Fprintf(d.out, "  FAIL: recording error: %v\n", err)
		return false
	}
	if len(pcm) == 0 {
		fmt.Fprintln(d.out, "  FAIL: no audio captured")
		return false
	}

	level := audio.RMS(pcm)
	fmt.Fprintf(d.out, "  Recorded %.1f KB, level %.4f\n", float64(len(pcm))/1024, level)
	if level < silentLevel {
		fmt.Fprintln(d.out, "  FAIL: recording is silent, check the input device and its volume")
		return false
	}
	d.pcm = pcm
	fmt.Fprintln(d.out, "  PASS: microphone is picking up sound")
	return true
}

func (d *doctor) pickDevice(devices []audio.DeviceInfo) (*audio.DeviceInfo, bool) {
	if len(devices) == 1 {
		fmt.Fprintf(d.out, "Using device: %s\n", devices[0].Name)
		return &devices[0], true
	}
	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, "Select input device:")
	for i, dev := range devices {
		fmt.Fprintf(d.out, "  %d. %s\n", i+1, dev.Name)
	}
	choice := d.ask(fmt.Sprintf("Choice [1-%d]: ", len(devices)))
	idx := 0
	if choice != "" {
		fmt.Sscanf(choice, "%d", &idx)
		idx--
	}
	if idx < 0 || idx >= len(devices) {
		fmt.Fprintln(d.out, "  FAIL: invalid choice")
		return nil, false
	}
	fmt.Fprintf(d.out, "Selected: %s\n", devices[idx].Name)
	return &devices[idx], true
}

func (d *doctor) record(ctx audio.Context, device *audio.DeviceInfo, stop <-chan struct{}) ([]byte, error) {
	var pcmBuf []byte
	var bufMu sync.Mutex
	var stopped bool
	done := make(chan struct{})

	capture, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, err
	}

	capture.SetCallback(func(data []byte, _ uint32) {
		bufMu.Lock()
		if !stopped {
			pcmBuf = append(pcmBuf, data...)
		}
		bufMu.Unlock()
	})

	if err := capture.Start(); err != nil {
		capture.Close()
		return nil, err
	}

	fmt.Fprint(d.out, "  Recording")
	ticker := time.NewTicker(500 * time.Millisecond)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Fprint(d.out, ".")
			}
		}
	}()

	<-stop
	close(done)
	capture.Stop()
	fmt.Fprintln(d.out, " done")
	capture.Close()

	bufMu.Lock()
	stopped = true
	raw := pcmBuf
	bufMu.Unlock()
	return raw, nil
}

func (d *doctor) checkKey() bool {
	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, "[2/5] API key")

	if d.settings.ResolveKey() == "" {
		fmt.Fprintf(d.out, "  FAIL: no %s API key saved", d.settings.Provider)
		if env := config.KeyEnv(d.settings.Provider); env != "" {
			fmt.Fprintf(d.out, " and %s is not set", env)
		}
		fmt.Fprintln(d.out)
		fmt.Fprintln(d.out, "  Fix with: aitranscriber config set api_key <key>")
		return false
	}
	fmt.Fprintf(d.out, "  PASS: %s key available\n", d.settings.Provider)
	return true
}

func (d *doctor) checkTranscription(client transcriber.Client, apiKey string) bool {
	fmt.Fprintln(d.out)
	fmt.Fprintf(d.out, "[3/5] Transcription (%s)\n", client.Name())

	wav, err := encoder.EncodeWAV(d.pcm, encoder.DefaultFormat)
	if err != nil {
		fmt.Fprintf(d.out, "  FAIL: encode error: %v\n", err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	start := time.Now()
	result, err := client.Transcribe(ctx, wav, "doctor.wav", apiKey)
	if err != nil {
		fmt.Fprintf(d.out, "  FAIL: transcription error: %v\n", err)
		return false
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Fprintf(d.out, "\n  Transcribed text (%dms): %s\n\n", time.Since(start).Milliseconds(), text)

	if d.confirm("Is this correct? [y/n]: ") {
		fmt.Fprintln(d.out, "  PASS: transcription verified by user")
		return true
	}
	fmt.Fprintln(d.out, "  FAIL: transcription not confirmed")
	return false
}

func (d *doctor) checkTranslation() bool {
	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, "[4/5] Translation service")

	endpoint, status, err := translator.ParseEndpoint(d.settings.TranslationEndpoint)
	switch status {
	case translator.EndpointDisabled:
		fmt.Fprintf(d.out, "  SKIP: %s\n", status.Hint())
		return true
	case translator.EndpointInvalid:
		fmt.Fprintf(d.out, "  FAIL: %v\n", err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	tr := translator.New(endpoint, d.settings.SourceLanguage, d.settings.TargetLanguage)
	out, err := tr.Translate(ctx, "hello")
	if err != nil {
		fmt.Fprintf(d.out, "  FAIL: %s\n", translator.UserMessage(err, false))
		return false
	}
	fmt.Fprintf(d.out, "  PASS: %s answered %q\n", endpoint.Host, out)
	return true
}

func (d *doctor) checkClipboard() bool {
	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, "[5/5] Clipboard")

	if clipboard.Unsupported {
		fmt.Fprintln(d.out, "  FAIL: no clipboard utility found (install xclip, xsel or wl-clipboard)")
		return false
	}

	previous, _ := clipboard.ReadAll()
	const probe = "aitranscriber-doctor-test"
	if err := clipboard.WriteAll(probe); err != nil {
		fmt.Fprintf(d.out, "  FAIL: clipboard copy failed: %v\n", err)
		return false
	}
	got, err := clipboard.ReadAll()
	clipboard.WriteAll(previous)
	if err != nil {
		fmt.Fprintf(d.out, "  FAIL: could not read clipboard: %v\n", err)
		return false
	}
	if got != probe {
		fmt.Fprintf(d.out, "  FAIL: clipboard returned %q, want %q\n", got, probe)
		return false
	}
	fmt.Fprintln(d.out, "  PASS: copy and read back verified")
	return true
}

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"aitranscriber/audio"
	"aitranscriber/config"
	"aitranscriber/doctor"
	"aitranscriber/encoder"
	"aitranscriber/log"
	"aitranscriber/metrics"
	"aitranscriber/shutdown"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "config" {
		os.Exit(runConfig(os.Args[2:], os.Stdout, os.Stderr))
	}
	os.Exit(run())
}

func run() int {
	configFlag := flag.String("config", "", "settings file path (default: OS config dir)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	providerFlag := flag.String("provider", "", "transcription provider: "+strings.Join(config.Providers, ", "))
	realtimeFlag := flag.Bool("realtime", true, "transcribe in chunks while recording")
	chunkFlag := flag.Int("chunk", 0, "chunk length in seconds for realtime mode")
	deviceFlag := flag.String("device", "", "use named microphone device")
	setupFlag := flag.Bool("setup", false, "select microphone device (otherwise uses system default)")
	fileFlag := flag.String("file", "", "transcribe an existing WAV or FLAC file and exit")
	testFlag := flag.Bool("test", false, "test mode (headless, stdin-driven, replays a WAV file)")
	tuiFlag := flag.Bool("tui", true, "run with terminal UI")
	metricsFlag := flag.String("metrics", "", "serve prometheus metrics on this address (e.g., :9090)")
	profileFlag := flag.String("profile", "", "enable pprof profiling server (e.g., :6060 or localhost:6060)")
	timeoutFlag := flag.Duration("timeout", 2*time.Minute, "how long to wait for transcription after a recording stops")
	versionFlag := flag.Bool("version", false, "print version and exit")
	doctorFlag := flag.Bool("doctor", false, "run system diagnostics and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("aitranscriber %s\n", version)
		return 0
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	if err := log.InitCrashLog(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open crash log: %v\n", err)
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}
	configPath, err := config.ResolvePath(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve settings path: %v\n", err)
		return 1
	}
	store := config.NewStore(configPath)
	if err := store.Load(); err != nil {
		var corrupt *config.CorruptError
		if !errors.As(err, &corrupt) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Warning: %v. Starting from defaults.\n", err)
		if err := store.Reset(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not remove %s: %v\n", configPath, err)
		}
	}

	over := overrides{provider: *providerFlag, chunk: *chunkFlag}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "realtime" {
			v := *realtimeFlag
			over.realtime = &v
		}
	})

	if *doctorFlag {
		ctx, stop := shutdown.Context(context.Background())
		defer stop()
		return doctor.Run(ctx, (&app{store: store, over: over}).settings())
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	if *metricsFlag != "" {
		go func() {
			if err := metrics.Serve(ctx, *metricsFlag); err != nil {
				log.Errorf("metrics server error: %v", err)
				fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
			}
		}()
	}

	if *fileFlag != "" {
		a := newApp(store, over, nil, newConsoleSink(os.Stdout), *timeoutFlag)
		if err := a.settings().Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return a.runFile(*fileFlag)
	}

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: aitranscriber -test <wav-file>")
			return 1
		}
		return runTestMode(store, over, args[0], *timeoutFlag)
	}

	audioCtx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		return 1
	}
	defer audioCtx.Close()

	device, err := resolveDevice(audioCtx, *deviceFlag, *setupFlag)
	if errors.Is(err, audio.ErrSelectCanceled) {
		return 130
	}
	if err != nil {
		log.Warnf("device selection failed: %v", err)
		fmt.Printf("Warning: device selection failed: %v\n", err)
		fmt.Println("Falling back to default device")
		device = nil
	}

	capture, err := audioCtx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
		Gain:       store.Get().MicGain,
	})
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Printf("Error initializing capture device: %v\n", err)
		return 1
	}
	defer capture.Close()

	if *tuiFlag {
		return runTUI(ctx, store, over, capture, device, *timeoutFlag)
	}
	return runConsole(ctx, store, over, capture, device, *timeoutFlag)
}

func validate(a *app) error {
	s := a.settings()
	if err := s.Validate(); err != nil {
		return err
	}
	log.Infof("settings: %s", modeLineText(s))
	return nil
}

func runTestMode(store *config.Store, over overrides, wavPath string, timeout time.Duration) int {
	s := (&app{store: store, over: over}).settings()
	fakeCtx, err := audio.NewFakeContext(wavPath, s.Realtime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}
	capture, err := fakeCtx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: encoder.SampleRate, Channels: encoder.Channels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating capture: %v\n", err)
		return 1
	}
	defer capture.Close()

	a := newApp(store, over, capture, newConsoleSink(os.Stdout), timeout)
	if err := validate(a); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return runTestCommands(a, capture.(*audio.FakeCapture), os.Stdin, os.Stdout)
}

func runTUI(ctx context.Context, store *config.Store, over overrides, capture audio.CaptureDevice, device *audio.DeviceInfo, timeout time.Duration) int {
	var a *app
	p := NewTUIProgram(controls{
		toggle:     func() { a.toggle() },
		openFolder: func() error { return a.openFolder() },
		reload:     func() error { return a.reload() },
	})
	a = newApp(store, over, capture, tuiSink{p}, timeout)
	a.device = device
	if err := validate(a); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	go func() {
		p.Send(ModeLineMsg{Text: modeLineText(a.settings())})
		p.Send(DeviceLineMsg{Text: deviceLineText(device)})
		if a.apiKey() == "" {
			p.Send(StatusMsg{Text: statusNoKey})
		}
	}()

	if _, err := p.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		a.shutdown()
		return 1
	}
	a.shutdown()
	return 0
}

func runConsole(ctx context.Context, store *config.Store, over overrides, capture audio.CaptureDevice, device *audio.DeviceInfo, timeout time.Duration) int {
	sink := newConsoleSink(os.Stdout)
	a := newApp(store, over, capture, sink, timeout)
	a.device = device
	if err := validate(a); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	sink.ModeLine(modeLineText(a.settings()))
	sink.DeviceLine(deviceLineText(device))
	fmt.Println("Enter: start/stop recording, o: open folder, c: copy, l: reload settings, q: quit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return 0
		case line, ok := <-lines:
			if !ok {
				a.shutdown()
				return 0
			}
			switch line {
			case "":
				a.toggle()
			case "o":
				if err := a.openFolder(); err != nil {
					sink.Status("Error: " + err.Error())
				}
			case "c":
				if text := a.last(); text != "" {
					if err := clipboard.WriteAll(text); err != nil {
						sink.Status("Error: " + err.Error())
					} else {
						sink.Status("Copied to clipboard.")
					}
				}
			case "l":
				if err := a.reload(); err != nil {
					sink.Status("Error: " + err.Error())
				} else {
					sink.Status("Settings reloaded.")
				}
			case "q":
				a.shutdown()
				return 0
			}
		}
	}
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"aitranscriber/audio"
	"aitranscriber/log"
)

// runTestCommands drives the app from a script of stdin commands:
// START, STOP, WAIT, WAIT_AUDIO_DONE, SLEEP <ms> and QUIT.
func runTestCommands(a *app, capture *audio.FakeCapture, in io.Reader, out io.Writer) int {
	var last <-chan struct{}
	code := 0

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch {
		case cmd == "":
		case cmd == "START":
			if err := a.start(); err != nil {
				fmt.Fprintf(out, "ERROR %v\n", err)
				log.Errorf("recording start error: %v", err)
				code = 1
			}
		case cmd == "STOP":
			last = a.stop()
		case cmd == "WAIT":
			if last != nil {
				<-last
			}
		case cmd == "WAIT_AUDIO_DONE":
			<-capture.AudioDone()
		case cmd == "QUIT":
			a.shutdown()
			return code
		case strings.HasPrefix(cmd, "SLEEP "):
			if ms, err := strconv.Atoi(strings.TrimSpace(cmd[6:])); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		default:
			fmt.Fprintf(out, "ERROR unknown command %q\n", cmd)
		}
	}
	a.shutdown()
	return code
}

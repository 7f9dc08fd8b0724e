package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrSelectCanceled is returned when the user leaves the picker with Ctrl+C.
var ErrSelectCanceled = errors.New("device selection canceled")

// SelectDevice presents an interactive device picker on the terminal. A
// single device is returned without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, errors.New("no capture devices found")
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	return newPicker(devices).run(os.Stdin, os.Stdout)
}

type picker struct {
	devices []DeviceInfo
	cursor  int
}

func newPicker(devices []DeviceInfo) *picker {
	return &picker{devices: devices}
}

func (p *picker) render(w io.Writer) {
	fmt.Fprint(w, "\r\x1b[J")
	fmt.Fprint(w, "Select input device (↑/↓, Enter to confirm):\r\n\r\n")
	for i, d := range p.devices {
		tag := ""
		if d.Default {
			tag += " (default)"
		}
		if IsBluetooth(d.Name) {
			tag += " \x1b[33m[⚠ Lower audio quality]\x1b[0m"
		}
		if i == p.cursor {
			fmt.Fprintf(w, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, tag)
		} else {
			fmt.Fprintf(w, "    %s%s\r\n", d.Name, tag)
		}
	}
}

func (p *picker) move(delta int) {
	p.cursor = max(0, min(p.cursor+delta, len(p.devices)-1))
}

// key applies one keypress. It reports whether a choice was made.
func (p *picker) key(b []byte) (chosen bool, err error) {
	switch {
	case len(b) == 1 && b[0] == '\r':
		return true, nil
	case len(b) == 1 && b[0] == 3:
		return false, ErrSelectCanceled
	case len(b) == 1 && b[0] == 'j':
		p.move(1)
	case len(b) == 1 && b[0] == 'k':
		p.move(-1)
	case len(b) == 3 && b[0] == 0x1b && b[1] == '[' && b[2] == 'A':
		p.move(-1)
	case len(b) == 3 && b[0] == 0x1b && b[1] == '[' && b[2] == 'B':
		p.move(1)
	}
	return false, nil
}

func (p *picker) run(r io.Reader, w io.Writer) (*DeviceInfo, error) {
	p.render(w)
	buf := make([]byte, 3)
	for {
		n, err := r.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		chosen, err := p.key(buf[:n])
		if err != nil || chosen {
			fmt.Fprint(w, "\r\n")
			if err != nil {
				return nil, err
			}
			return &p.devices[p.cursor], nil
		}
		fmt.Fprintf(w, "\x1b[%dA", len(p.devices)+2)
		p.render(w)
	}
}

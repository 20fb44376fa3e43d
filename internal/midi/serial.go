package midi

import (
	"fmt"
	"io"

	"gitlab.com/gomidi/midi/v2"
	"go.bug.st/serial"
)

const (
	// DINBaud is the MIDI 1.0 DIN line rate
	DINBaud = 31250

	// SerialName is the transport name the serial link registers under
	SerialName = "serial"
)

// Serial is a transport writing raw MIDI bytes to a UART
type Serial struct {
	device string
	port   io.WriteCloser
}

// OpenSerial opens a serial device as a DIN MIDI transport. A zero baud
// selects the DIN rate; USB-serial bridges often need something else.
func OpenSerial(device string, baud int) (*Serial, error) {
	if baud == 0 {
		baud = DINBaud
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return NewSerial(device, p), nil
}

// NewSerial wraps an already open writer
func NewSerial(device string, w io.WriteCloser) *Serial {
	return &Serial{device: device, port: w}
}

// ListSerialPorts returns the serial devices present on the host
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

func (s *Serial) Name() string { return SerialName }

func (s *Serial) Write(msg midi.Message) error {
	n, err := s.port.Write(msg.Bytes())
	if err != nil {
		return fmt.Errorf("write %s: %w", s.device, err)
	}
	if n != len(msg) {
		return fmt.Errorf("write %s: short write %d of %d bytes", s.device, n, len(msg))
	}
	return nil
}

func (s *Serial) Close() error {
	return s.port.Close()
}

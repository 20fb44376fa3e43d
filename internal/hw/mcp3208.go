package hw

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// ADCMax is the full-scale reading of a 12-bit converter
const ADCMax = 4095

// MCP3208 reads one single-ended channel of an MCP3208 on SPI0
type MCP3208 struct {
	board   *Board
	channel uint8
	cs      uint8
	buf     [3]byte
}

// MCP3208 opens SPI0 and returns a reader for channel (0-7) behind chip select cs
func (b *Board) MCP3208(channel, cs uint8, speedHz int) (*MCP3208, error) {
	if channel > 7 {
		return nil, fmt.Errorf("mcp3208: channel %d out of range", channel)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil, ErrNotOpen
	}
	if err := b.beginSPI(); err != nil {
		return nil, err
	}
	if speedHz <= 0 {
		speedHz = 1_000_000
	}
	rpio.SpiSpeed(speedHz)
	return &MCP3208{board: b, channel: channel, cs: cs}, nil
}

// Sample performs one conversion
func (a *MCP3208) Sample() (int, error) {
	a.board.mu.Lock()
	defer a.board.mu.Unlock()
	if !a.board.open {
		return 0, ErrNotOpen
	}

	// Start bit, single-ended, then the channel split across two bytes
	a.buf = [3]byte{0x06 | (a.channel >> 2), (a.channel & 0x03) << 6, 0}
	rpio.SpiChipSelect(a.cs)
	rpio.SpiExchange(a.buf[:])

	return decode12(a.buf), nil
}

func decode12(b [3]byte) int {
	return int(b[1]&0x0F)<<8 | int(b[2])
}

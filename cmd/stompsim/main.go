// Command stompsim runs the pedal engine against a terminal front panel.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/PixPMusic/stompmidi/internal/config"
	"github.com/PixPMusic/stompmidi/internal/engine"
	"github.com/PixPMusic/stompmidi/internal/hw"
	"github.com/PixPMusic/stompmidi/internal/midi"
	"github.com/PixPMusic/stompmidi/internal/sim"
)

const logSize = 256

func main() {
	configPath := flag.String("config", "", "config file to load and save; defaults are used in memory when empty")
	portName := flag.String("port", "", "also send to this MIDI output port")
	serialDev := flag.String("serial", "", "also send to this serial device as DIN MIDI")
	logPath := flag.String("log", "", "write logs to this file (the terminal is taken by the panel)")
	flag.Parse()

	if err := run(*configPath, *portName, *serialDev, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, portName, serialDev, logPath string) error {
	var w io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := config.Defaults()
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	out := midi.NewDispatcher(logger)
	defer out.Close()
	if portName != "" {
		mgr := midi.NewManager()
		defer mgr.Close()
		port, err := mgr.OpenPort(portName)
		if err != nil {
			return err
		}
		out.Add(port, true)
	}
	if serialDev != "" {
		sp, err := midi.OpenSerial(serialDev, midi.DINBaud)
		if err != nil {
			return err
		}
		out.Add(sp, true)
	}

	panel := hw.NewVirtual()
	panel.SetPedal(hw.ADCMax / 2)
	rec := midi.NewRecorder(logSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var eng *engine.Engine
	var saver *config.Saver
	if configPath != "" {
		saver = config.NewSaver(func() *config.Device { return eng.Snapshot() }, config.FileWriter(configPath), logger)
	}

	opts := engine.Options{
		Switches: panel,
		Pedal:    panel,
		Sink:     midi.Tee(rec, out),
		Config:   cfg,
		Combo:    func() { out.Toggle(midi.SerialName) },
		Log:      logger,
	}
	if saver != nil {
		opts.Persist = saver.Notify
	}
	eng, err := engine.New(opts)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	if saver != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			saver.Run(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		eng.Run(ctx)
	}()

	m := sim.NewModel(eng, panel, rec)
	m.Transport = func() string { return transports(out) }

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	cancel()
	wg.Wait()
	return err
}

func transports(d *midi.Dispatcher) string {
	names := d.Names()
	if len(names) == 0 {
		return "no outputs"
	}
	parts := make([]string, len(names))
	for i, name := range names {
		state := "off"
		if d.Enabled(name) {
			state = "on"
		}
		parts[i] = name + " " + state
	}
	return strings.Join(parts, "  ")
}

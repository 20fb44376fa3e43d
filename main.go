package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/PixPMusic/stompmidi/internal/config"
	"github.com/PixPMusic/stompmidi/internal/engine"
	"github.com/PixPMusic/stompmidi/internal/hw"
	"github.com/PixPMusic/stompmidi/internal/midi"
	"github.com/PixPMusic/stompmidi/internal/startup"
)

const serviceName = "stompmidi"

// Battery sense: a 2:1 divider into the ADC referenced to 3.3V
const (
	batteryVref    = 3.3
	batteryDivider = 2.0
)

// logger is the package-wide structured logger. Usable before initLogger.
var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	configPath := flag.String("config", "", "config file (.json or .yaml); defaults to the user config dir")
	debug := flag.Bool("debug", false, "enable debug logging (adds source location)")
	portName := flag.String("port", "", "MIDI output port name or substring")
	serialDev := flag.String("serial", "", "serial device for DIN MIDI, e.g. /dev/ttyAMA0")
	baud := flag.Int("baud", midi.DINBaud, "serial baud rate")
	serialOff := flag.Bool("serial-off", false, "start with the serial transport disabled (the combo re-enables it)")
	pedalCh := flag.Int("pedal", 0, "MCP3208 channel of the expression pedal, -1 for none")
	batteryCh := flag.Int("battery", -1, "MCP3208 channel of the battery sense divider, -1 for none")
	install := flag.Bool("install", false, "register the daemon to start at boot with the other flags given")
	uninstall := flag.Bool("uninstall", false, "remove the daemon from startup")
	list := flag.Bool("list", false, "list MIDI output ports, serial devices and boot registration, then exit")
	flag.Parse()

	initLogger(*debug)

	if *install || *uninstall {
		if err := manageService(*install); err != nil {
			logger.Error("startup registration failed", "err", err)
			os.Exit(1)
		}
		return
	}

	mgr := midi.NewManager()
	defer mgr.Close()

	if *list {
		printPorts(mgr)
		return
	}

	if err := run(mgr, options{
		configPath: *configPath,
		portName:   *portName,
		serialDev:  *serialDev,
		baud:       *baud,
		serialOff:  *serialOff,
		pedalCh:    *pedalCh,
		batteryCh:  *batteryCh,
	}); err != nil {
		logger.Error("stompmidi stopped", "err", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	portName   string
	serialDev  string
	baud       int
	serialOff  bool
	pedalCh    int
	batteryCh  int
}

func run(mgr *midi.Manager, opts options) error {
	path := opts.configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info("stompmidi starting",
		"config", path,
		"bank", cfg.CurrentBank,
		"long_press_ms", cfg.LongPressMS,
		"port", opts.portName,
		"serial", opts.serialDev,
	)

	out := midi.NewDispatcher(logger)
	defer out.Close()

	if opts.portName != "" {
		port, err := mgr.OpenPort(opts.portName)
		if err != nil {
			return err
		}
		out.Add(port, true)
		logger.Info("midi: port open", "name", port.Name())
	}
	if opts.serialDev != "" {
		sp, err := midi.OpenSerial(opts.serialDev, opts.baud)
		if err != nil {
			return err
		}
		out.Add(sp, !opts.serialOff)
		logger.Info("midi: serial open", "device", opts.serialDev, "baud", opts.baud, "enabled", !opts.serialOff)
	}
	if len(out.Names()) == 0 {
		logger.Warn("midi: no transport configured, messages are dropped")
	}

	board, err := hw.Open()
	if err != nil {
		return err
	}
	defer board.Close()

	matrix, err := board.Matrix(hw.DefaultMatrix())
	if err != nil {
		return err
	}

	var pedal *hw.MCP3208
	if opts.pedalCh >= 0 {
		if pedal, err = board.MCP3208(uint8(opts.pedalCh), 0, 0); err != nil {
			return err
		}
	}

	var battery func() float64
	if opts.batteryCh >= 0 {
		adc, err := board.MCP3208(uint8(opts.batteryCh), 0, 0)
		if err != nil {
			return err
		}
		battery = func() float64 {
			raw, err := adc.Sample()
			if err != nil {
				return 0
			}
			return float64(raw) / hw.ADCMax * batteryVref * batteryDivider
		}
	}

	// The saver only snapshots from Run, after eng is assigned
	var eng *engine.Engine
	saver := config.NewSaver(func() *config.Device { return eng.Snapshot() }, config.FileWriter(path), logger)

	engOpts := engine.Options{
		Switches: matrix,
		Sink:     out,
		Config:   cfg,
		Persist:  saver.Notify,
		Battery:  battery,
		Combo: func() {
			out.Toggle(midi.SerialName)
		},
		Log: logger,
	}
	if pedal != nil {
		engOpts.Pedal = pedal
	}
	eng, err = engine.New(engOpts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		saver.Run(ctx)
	}()

	err = eng.Run(ctx)
	wg.Wait()
	if ctx.Err() != nil {
		logger.Info("stompmidi: shutdown")
		return nil
	}
	return err
}

func manageService(enable bool) error {
	// Everything but the registration flags is carried into the service
	var args []string
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "install" || f.Name == "uninstall" {
			return
		}
		args = append(args, "-"+f.Name+"="+f.Value.String())
	})

	svc, err := startup.Daemon(serviceName, args...)
	if err != nil {
		return err
	}
	if !enable {
		if err := startup.Disable(svc); err != nil {
			return err
		}
		logger.Info("startup: removed", "name", svc.Name)
		return nil
	}
	if err := startup.Enable(svc); err != nil {
		return err
	}
	logger.Info("startup: installed", "name", svc.Name, "exec", svc.Exec, "args", args)
	return nil
}

func printPorts(mgr *midi.Manager) {
	fmt.Println("MIDI output ports:")
	for _, name := range mgr.ListOutPorts() {
		fmt.Println("  " + name)
	}
	serials, err := midi.ListSerialPorts()
	if err != nil {
		logger.Warn("serial: listing failed", "err", err)
	} else {
		fmt.Println("Serial devices:")
		for _, name := range serials {
			fmt.Println("  " + name)
		}
	}

	svc, err := startup.Daemon(serviceName)
	if err != nil {
		logger.Warn("startup: status unknown", "err", err)
		return
	}
	state := "not registered"
	if startup.IsEnabled(svc) {
		state = "registered"
	}
	fmt.Printf("Start at boot: %s\n", state)
}

// Command rdpipe-console is an interactive debugging console for the
// remote driver protocol.
//
// It runs a simulated speech synthesizer or braille display behind a
// real protocol handler, connects it to a peer over TCP, and offers a
// command prompt to poke at the connection: fetch and set remote
// attributes, push settings, send speech and braille output, forward
// gestures and watch incoming traffic.
//
// Usage:
//
//	rdpipe-console [flags]
//
// Flags:
//
//	-connect string     Peer address to dial (host:port)
//	-listen string      Address to listen on for one peer connection
//	-driver string      Driver kind: speech or braille (default "speech")
//	-cells int          Simulated display size for -driver braille (default 40)
//	-config string      Configuration file path
//	-trace string       Protocol trace output file (.rlog)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Listen for a peer and mirror a simulated synthesizer
//	rdpipe-console -listen :8765
//
//	# Dial a peer and mirror a simulated 80-cell display
//	rdpipe-console -connect 10.0.0.5:8765 -driver braille -cells 80
//
//	# Record a protocol trace
//	rdpipe-console -listen :8765 -trace session.rlog
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/rdpipe-protocol/rdpipe-go/cmd/rdpipe-console/interactive"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/configuration"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/examples"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/handler"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/log"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/transport"
)

func main() {
	var (
		connectAddr = flag.String("connect", "", "peer address to dial (host:port)")
		listenAddr  = flag.String("listen", "", "address to listen on for one peer connection")
		driverKind  = flag.String("driver", "speech", "driver kind: speech or braille")
		cells       = flag.Int("cells", 40, "simulated display size for -driver braille")
		configPath  = flag.String("config", "", "configuration file path")
		tracePath   = flag.String("trace", "", "protocol trace output file (.rlog)")
		logLevel    = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)

	if (*connectAddr == "") == (*listenAddr == "") {
		logger.Fatal().Msg("exactly one of -connect and -listen is required")
	}

	store := configuration.NewStore(*configPath)
	if *configPath != "" {
		if err := store.Load(); err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("load configuration")
		}
	}

	traceLogger, closeTrace, err := newTraceLogger(*tracePath, store)
	if err != nil {
		logger.Fatal().Err(err).Msg("open trace log")
	}
	defer closeTrace()

	console, err := newConsole(*driverKind, *cells, store, traceLogger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create console")
	}

	rwc, remoteAddr, err := connect(*connectAddr, *listenAddr, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect")
	}

	conn := transport.NewConn(rwc, console.Callbacks(), transport.ConnConfig{
		Logger: traceLogger,
	})
	console.Bind(conn)
	logger.Info().Str("peer", remoteAddr).Str("driver", *driverKind).Msg("connected")

	console.Run()
	conn.Close()
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(parsed).With().Timestamp().Logger()
}

// newTraceLogger builds the protocol event logger from the -trace
// flag, falling back to the configured trace path.
func newTraceLogger(path string, store *configuration.Store) (log.Logger, func(), error) {
	if path == "" {
		path = store.Current().TraceLog
	}
	if path == "" {
		return log.NoopLogger{}, func() {}, nil
	}
	fileLogger, err := log.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	return fileLogger, func() { fileLogger.Close() }, nil
}

func newConsole(driverKind string, cells int, store *configuration.Store, traceLogger log.Logger) (*interactive.Console, error) {
	config := handler.Config{
		Configuration: store,
		Logger:        traceLogger,
	}

	switch driverKind {
	case "speech":
		synth := examples.NewSimulatedSynth()
		return interactive.NewSpeechConsole(handler.NewSpeechHandler(synth, config), synth)
	case "braille":
		display := examples.NewSimulatedDisplay(cells)
		return interactive.NewBrailleConsole(handler.NewBrailleHandler(display, config), display)
	default:
		return nil, fmt.Errorf("unknown driver kind %q", driverKind)
	}
}

// connect establishes the single peer connection, dialing or
// accepting depending on the flags.
func connect(connectAddr, listenAddr string, logger zerolog.Logger) (net.Conn, string, error) {
	if connectAddr != "" {
		conn, err := net.Dial("tcp", connectAddr)
		if err != nil {
			return nil, "", err
		}
		return conn, conn.RemoteAddr().String(), nil
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, "", err
	}
	defer listener.Close()

	logger.Info().Str("addr", listener.Addr().String()).Msg("waiting for peer")
	conn, err := listener.Accept()
	if err != nil {
		return nil, "", err
	}
	return conn, conn.RemoteAddr().String(), nil
}

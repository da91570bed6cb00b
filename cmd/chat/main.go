package main

import (
	"broadcast-relay/client"
	"broadcast-relay/errors"
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	goerrors "errors"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat error: %v\n", err)
	}
	os.Exit(code)
}

// run connects to the relay, sends every stdin line and prints every
// message relayed back, until Ctrl+C, end of input or disconnect.
func run() (int, error) {
	config, err := LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancelDial := context.WithTimeout(ctx, 10*time.Second)
	c, err := client.Dial(dialCtx, config.RelayURL, log)
	cancelDial()
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = c.Close() }()

	fmt.Printf(">>> Connected to %s (Ctrl+C to quit)\n", config.RelayURL)

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()
	go printIncoming(c.Incoming(), config.Colours)

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case err := <-runErr:
			if err != nil {
				return exitRuntime, err
			}
			fmt.Println(">>> Disconnected from relay")
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if err := c.Send(line); err != nil {
				if goerrors.Is(err, errors.ErrEmptyMessage) {
					continue
				}
				return exitRuntime, err
			}
		}
	}
}

func readLines(r io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

func printIncoming(incoming <-chan string, colours bool) {
	for text := range incoming {
		line := fmt.Sprintf("[%s] %s", time.Now().Format(time.TimeOnly), text)
		if colours {
			line = color.New(color.FgCyan).Render(line)
		}
		fmt.Println(line)
	}
}

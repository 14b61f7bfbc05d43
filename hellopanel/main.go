//go:build tinygo

package main

import (
	"context"
	"log/slog"
	"machine"
	"math/rand/v2"
	"time"

	"github.com/harveysanders/glucopanel/board"
	"github.com/harveysanders/glucopanel/display"
	"github.com/harveysanders/glucopanel/hellopanel/demo"
)

func main() {
	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger.Info("hellopanel:starting")

	panel, err := board.ConfigurePanel()
	if err != nil {
		printErrForever(logger, "configure panel", slog.Any("reason", err))
	}
	if err := board.SetBrightness(255); err != nil {
		logger.Error("backlight", slog.Any("reason", err))
	}

	var seed [2]uint64
	if n, err := machine.GetRNG(); err == nil {
		seed[0] = uint64(n)
	}
	seed[1] = uint64(time.Now().UnixNano())

	con := display.NewConsole(panel)
	err = demo.Run(context.Background(), con, rand.New(rand.NewPCG(seed[0], seed[1])), sleep, logger)
	printErrForever(logger, "demo stopped", slog.Any("reason", err))
}

func sleep(_ context.Context, d time.Duration) error {
	time.Sleep(d)
	return nil
}

// printErrForever prints to serial @ 1hz. It blocks forever.
func printErrForever(logger *slog.Logger, msg string, args ...any) {
	for {
		logger.Error(msg, args...)
		time.Sleep(time.Second)
	}
}

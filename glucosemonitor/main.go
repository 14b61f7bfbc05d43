//go:build tinygo

package main

import (
	"context"
	"log/slog"
	"machine"
	"strconv"
	"time"

	"github.com/harveysanders/glucopanel/board"
	"github.com/harveysanders/glucopanel/display"
	"github.com/harveysanders/glucopanel/glucosemonitor/clock"
	"github.com/harveysanders/glucopanel/glucosemonitor/cyw43439"
	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
	"github.com/harveysanders/glucopanel/glucosemonitor/monitor"
	"github.com/harveysanders/glucopanel/glucosemonitor/provision"
	"github.com/harveysanders/glucopanel/glucosemonitor/relay"
	"github.com/harveysanders/glucopanel/glucosemonitor/status"
	"github.com/harveysanders/glucopanel/glucosemonitor/touch"
)

// Set with -ldflags "-X main.brokerAddr=...". WiFi credentials are linked
// into the cyw43439 package the same way.
var (
	brokerAddr     = "10.0.0.9:1883"
	brokerUsername = "glucopanel"
	brokerPassword = "glucopanel"
	relayTopic     = relay.DefaultTopic
	gmtOffsetSec   = "0"
	dstOffsetSec   = "0"
)

func main() {
	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	panel, err := board.ConfigurePanel()
	if err != nil {
		printErrForever(logger, "configure panel", slog.Any("reason", err))
	}
	if err := board.SetBrightness(255); err != nil {
		logger.Error("backlight", slog.Any("reason", err))
	}
	con := display.NewConsole(panel)
	rep := status.NewReporter(con, logger)

	tc, err := board.ConfigureTouch()
	if err != nil {
		printErrForever(logger, "configure touch", slog.Any("reason", err))
	}
	var touched touch.Flag
	ts := touch.NewSession(tc, &touched, time.Second, touch.WithLogger(logger))
	if err := board.OnTouch(ts.Interrupt); err != nil {
		printErrForever(logger, "touch interrupt", slog.Any("reason", err))
	}

	wifi := cyw43439.NewProvisioner(cyw43439.Config{Logger: logger})
	sub := relay.NewSubscriber(relay.Config{
		Dial:     wifi.Dialer(brokerAddr),
		Topic:    relayTopic,
		ClientID: "glucopanel-pico",
		Timeout:  5 * time.Second,
		Logger:   logger,
	})

	m := monitor.New(monitor.Config{
		Username:     brokerUsername,
		Password:     brokerPassword,
		GMTOffsetSec: atoi(gmtOffsetSec),
		DSTOffsetSec: atoi(dstOffsetSec),
		NTPHost:      brokerAddr,
	}, monitor.Deps{
		Display:     con,
		Reporter:    rep,
		Touch:       ts,
		Provisioner: provision.NewController(provision.ServiceFunc(func(ctx context.Context, onPortalStarted func(name, addr string)) bool {
			if !wifi.AutoConnect(ctx, onPortalStarted) {
				return false
			}
			rep.Report("IP " + wifi.Addr().String())
			return true
		}), rep),
		Clock:       clock.New(sub, clock.WithLogger(logger)),
		Glucose:     glucose.NewClient(sub, logger),
	}, monitor.WithLogger(logger))

	// Nothing cancels the device loop; Run only returns on a bug.
	err = m.Run(context.Background())
	printErrForever(logger, "monitor stopped", slog.Any("reason", err))
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// printErrForever prints to serial @ 1hz in case the serial monitor is not
// ready before the initial messages. It blocks forever.
func printErrForever(logger *slog.Logger, msg string, args ...any) {
	for {
		logger.Error(msg, args...)
		time.Sleep(time.Second)
	}
}

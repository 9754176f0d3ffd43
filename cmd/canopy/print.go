package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"

	"github.com/aretw0/canopy/pkg/domain"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	bold   = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// colorStatus renders a status in the conventional traffic colors.
func colorStatus(st domain.Status) string {
	switch st {
	case domain.StatusSuccess:
		return green.Sprint(string(st))
	case domain.StatusFailure:
		return red.Sprint(string(st))
	case domain.StatusRunning:
		return yellow.Sprint(string(st))
	default:
		return bold.Sprint(string(st))
	}
}

// printEvent renders one lifecycle event for --events output.
func printEvent(ev domain.Event) {
	payload := ""
	if ev.Payload != nil {
		if data, err := json.Marshal(ev.Payload); err == nil {
			payload = " " + string(data)
		}
	}
	fmt.Printf("  %s%s\n", cyan.Sprint(string(ev.Type)), payload)
}

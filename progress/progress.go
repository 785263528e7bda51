// Package progress renders download progress on a terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

const (
	barWidth       = 50
	fallbackWidth  = 80
	updateInterval = 100 * time.Millisecond
)

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallbackWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return width
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n float64) string {
	switch {
	case n >= 1024*1024*1024:
		return fmt.Sprintf("%.2f GB", n/(1024*1024*1024))
	case n >= 1024*1024:
		return fmt.Sprintf("%.2f MB", n/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.2f KB", n/1024)
	default:
		return fmt.Sprintf("%.0f B", n)
	}
}

// Line renders one progress line without padding. total < 0 means the
// length is unknown.
func Line(received, total int64, speed float64) string {
	if total <= 0 {
		return fmt.Sprintf("\rReceived %s | Speed: %s/s", FormatBytes(float64(received)), FormatBytes(speed))
	}

	percentage := float64(received) / float64(total) * 100
	if received >= total {
		return fmt.Sprintf("\r[%s] 100.00%% | Download complete!", strings.Repeat("=", barWidth))
	}

	filled := int(float64(barWidth) * percentage / 100)
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	return fmt.Sprintf("\r[%s] %.2f%% | Speed: %s/s", bar, percentage, FormatBytes(speed))
}

// NewBar returns a callback that draws progress to w at most every 100ms.
// The final update (received reaching total) is always drawn.
func NewBar(w io.Writer) func(received, total int64) {
	var (
		lastUpdate time.Time
		lastBytes  int64
	)

	return func(received, total int64) {
		now := time.Now()
		done := total > 0 && received >= total
		if !done && now.Sub(lastUpdate) < updateInterval {
			return
		}

		var speed float64
		if elapsed := now.Sub(lastUpdate); !lastUpdate.IsZero() && elapsed > 0 {
			speed = float64(received-lastBytes) / elapsed.Seconds()
		}

		message := Line(received, total, speed)
		if pad := terminalWidth(w) - len(message); pad > 0 {
			message += strings.Repeat(" ", pad)
		}
		fmt.Fprint(w, message)

		lastUpdate = now
		lastBytes = received
	}
}

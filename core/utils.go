package core

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
)

// NewLogger returns a logger which prefixes every line with a colored component tag.
func NewLogger(prefix string, prefix2 string) *log.Logger {
	// 2024/06/30 00:56:06 [prefix] (prefix2) message
	prefixFull := color.HiGreenString(fmt.Sprintf("[%s] ", prefix))
	if prefix2 != "" {
		prefixFull += color.HiYellowString(fmt.Sprintf("(%s) ", prefix2))
	}
	return log.New(os.Stdout, prefixFull, log.Ldate|log.Ltime|log.Lmsgprefix)
}

// Timestamp returns the current time in unix milliseconds.
func Timestamp() uint64 {
	now := time.Now()
	return uint64(now.UnixMilli())
}

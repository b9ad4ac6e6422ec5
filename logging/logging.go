// Package logging holds the process-wide structured logger.
package logging

import (
	"io"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/json"
)

// Logger logs on the standard error so the standard output stays free for
// the console progress lines.
var Logger = log.Logger{
	Handler: cli.New(os.Stderr),
	Level:   log.InfoLevel,
}

// Setup switches Logger to w, as JSON when asJSON is set.
func Setup(w io.Writer, asJSON bool, level log.Level) {
	if asJSON {
		Logger.Handler = json.New(w)
	} else {
		Logger.Handler = cli.New(w)
	}
	Logger.Level = level
}

// Package tslog wires up the per-subsystem logging handles shared by
// the ancestor builder, tree sequence builder, and matcher: one
// btclog.Logger per subsystem, grouped in a struct callers can point at
// a shared backend, with the underlying file rotated by
// github.com/jrick/logrotate.
package tslog

import (
	"io"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// Loggers holds one logger per subsystem.
type Loggers struct {
	Ancestor btclog.Logger
	TreeSeq  btclog.Logger
	Matcher  btclog.Logger
}

// rollThresholdKB is the size a log file reaches before it is rolled.
const rollThresholdKB = 10 * 1024

// NewRotatingLoggers creates a Loggers backed by a log file rotated via
// logrotate, plus echoing to stdout. maxRolls is the number of rotated
// files logrotate keeps before deleting the oldest.
func NewRotatingLoggers(logPath string, maxRolls int) (Loggers, error) {
	r, err := rotator.New(logPath, rollThresholdKB, false, maxRolls)
	if err != nil {
		return Loggers{}, err
	}
	backend := btclog.NewBackend(writerFanout{os.Stdout, r})
	return UseBackend(backend), nil
}

// UseBackend builds a Loggers from an already-constructed btclog.Backend,
// useful in tests that want an in-memory sink instead of a rotated file.
func UseBackend(backend *btclog.Backend) Loggers {
	return Loggers{
		Ancestor: backend.Logger("ANCR"),
		TreeSeq:  backend.Logger("TSEQ"),
		Matcher:  backend.Logger("MTCH"),
	}
}

// Disabled returns a Loggers whose handles discard everything, the
// default until a caller opts into logging.
func Disabled() Loggers {
	return Loggers{
		Ancestor: btclog.Disabled,
		TreeSeq:  btclog.Disabled,
		Matcher:  btclog.Disabled,
	}
}

// SetLevel applies lvl to every subsystem logger.
func (l Loggers) SetLevel(lvl btclog.Level) {
	l.Ancestor.SetLevel(lvl)
	l.TreeSeq.SetLevel(lvl)
	l.Matcher.SetLevel(lvl)
}

// writerFanout duplicates writes across multiple writers, used to send
// log output to both stdout and the rotated file.
type writerFanout []io.Writer

func (w writerFanout) Write(p []byte) (int, error) {
	for _, dst := range w {
		if _, err := dst.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

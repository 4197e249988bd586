package util

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Debug is the verbosity threshold for DPrintf. Level 0 messages are always
// emitted; higher levels trace progressively lower layers.
var Debug uint64 = 0

var log = logrus.New()

func init() {
	if s, ok := os.LookupEnv("RAIDFS_DEBUG"); ok {
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			SetDebug(n)
		}
	}
}

// SetDebug changes the trace threshold.
func SetDebug(level uint64) {
	Debug = level
	if level > 0 {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// Logger returns the shared logger, for callers that want structured fields.
func Logger() *logrus.Logger {
	return log
}

func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		if level == 0 {
			log.Infof(format, a...)
		} else {
			log.Debugf(format, a...)
		}
	}
}

func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	} else {
		return m
	}
}

// SumOverflows reports whether a+b wraps around.
func SumOverflows(a uint64, b uint64) bool {
	return a+b < a
}

func CloneByteSlice(s []byte) []byte {
	s2 := make([]byte, len(s))
	copy(s2, s)
	return s2
}

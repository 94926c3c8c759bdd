package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Discard returns a logger that drops everything. Components fall back to it
// when no logger is injected.
func Discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

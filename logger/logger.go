package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"pythgo/lib/pyth"
)

// New builds a logger writing to stderr. Unknown levels fall back to info.
func New(level string, json bool) *logrus.Logger {
	return NewWithOutput(os.Stderr, level, json)
}

func NewWithOutput(out io.Writer, level string, json bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	if json {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	return log
}

// WithFeed tags entries with the feed id and, when known, its symbol.
func WithFeed(log logrus.FieldLogger, feedId pyth.FeedId, symbol string) *logrus.Entry {
	fields := logrus.Fields{"feed_id": feedId.String()}
	if symbol != "" && symbol != feedId.String() {
		fields["feed"] = symbol
	}
	return log.WithFields(fields)
}

package events

import "go.uber.org/zap"

// LogSink mirrors the event stream into the structured log.
type LogSink struct {
	log *zap.SugaredLogger
}

func NewLogSink(log *zap.SugaredLogger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Publish(ev Envelope) error {
	s.log.Infow(string(ev.Type), "pair", ev.Pair, "seq", ev.Seq, "data", ev.Data)
	return nil
}

func (s *LogSink) Close() error { return nil }

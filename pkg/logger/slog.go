package logger

import (
	"log/slog"

	"github.com/yuya-takeyama/sure-backup/internal/logging"
	"github.com/yuya-takeyama/sure-backup/pkg/backup"
)

// Slog forwards telemetry to a structured logger. Log lines that report
// problems are written at warn level, progress events at debug level.
type Slog struct {
	l *slog.Logger
}

func NewSlog(l *slog.Logger) *Slog {
	if l == nil {
		l = logging.Default()
	}
	return &Slog{l: l}
}

func (s *Slog) Log(message string) {
	if isProblem(message) {
		s.l.Warn(message)
		return
	}
	s.l.Info(message)
}

func (s *Slog) OnFileAction(action backup.Action, path string) {
	s.l.Info("file action", logging.Action(string(action)), logging.Path(path))
}

func (s *Slog) OnProgress(path string) {
	s.l.Debug("scanning", logging.Path(path))
}

func (s *Slog) OnProgressDetailed(p backup.Progress) {
	s.l.Debug("progress",
		slog.Int64("processed_files", p.ProcessedFiles),
		slog.Int64("total_files", p.TotalFiles),
		slog.Int64("processed_bytes", p.ProcessedBytes),
		slog.Int64("total_bytes", p.TotalBytes),
		logging.Path(p.CurrentFile),
	)
}

func (s *Slog) OnWorkerProgress(worker int, file string, percent int) {
	s.l.Debug("worker", logging.Worker(worker), logging.Path(file), slog.Int("percent", percent))
}

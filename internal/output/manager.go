// internal/output/manager.go
package output

import (
	"errors"
	"fmt"
	"time"

	"github.com/valpere/CommentHarvester/internal/config"
	"github.com/valpere/CommentHarvester/internal/records"
	"github.com/valpere/CommentHarvester/internal/utils"
)

// Metrics is the telemetry surface the manager reports to. A nil value
// disables reporting.
type Metrics interface {
	RecordOutputSuccess(format string, duration time.Duration, records int)
	RecordOutputError(format string)
}

// Manager fans harvested records out to every configured destination.
type Manager struct {
	outputs []config.OutputConfig
	metrics Metrics
	logger  utils.Logger
}

// NewManager creates a manager for the configured outputs. metrics and
// logger may be nil.
func NewManager(outputs []config.OutputConfig, metrics Metrics, logger utils.Logger) (*Manager, error) {
	if len(outputs) == 0 {
		return nil, utils.NewError(utils.ErrCodeMissingConfig, "at least one output is required")
	}
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Manager{
		outputs: outputs,
		metrics: metrics,
		logger:  logger.WithField("component", "output"),
	}, nil
}

// WriteAll exports records to every destination. Destinations are
// independent: one failing does not stop the others. The combined error
// lists every failure.
func (m *Manager) WriteAll(recs []records.Record) error {
	var failures []error

	for _, out := range m.outputs {
		started := time.Now()
		if err := m.writeOne(out, recs); err != nil {
			m.logger.Errorf("output %s failed: %v", out.Format, err)
			if m.metrics != nil {
				m.metrics.RecordOutputError(out.Format)
			}
			failures = append(failures, fmt.Errorf("%s: %w", out.Format, err))
			continue
		}
		m.logger.Infof("wrote %d records to %s output", len(recs), out.Format)
		if m.metrics != nil {
			m.metrics.RecordOutputSuccess(out.Format, time.Since(started), len(recs))
		}
	}

	if len(failures) > 0 {
		return utils.WrapError(errors.Join(failures...), utils.ErrCodeOutputFailed,
			fmt.Sprintf("%d of %d outputs failed", len(failures), len(m.outputs)))
	}
	return nil
}

func (m *Manager) writeOne(out config.OutputConfig, recs []records.Record) error {
	writer, err := m.writerFor(out)
	if err != nil {
		return err
	}
	defer writer.Close()
	return writer.Write(recs)
}

func (m *Manager) writerFor(out config.OutputConfig) (Writer, error) {
	switch Format(out.Format) {
	case FormatCSV:
		return NewCSVWriter(out.Path)
	case FormatJSON:
		return NewJSONWriter(out.Path)
	case FormatExcel:
		return NewExcelWriter(out.Path)
	case FormatSQLite:
		return NewSQLiteWriter(out.Path, out.Table)
	case FormatPostgreSQL:
		return NewPostgreSQLWriter(out.ConnectionString, out.Table)
	case FormatMySQL:
		return NewMySQLWriter(out.ConnectionString, out.Table)
	case FormatMongoDB:
		return NewMongoDBWriter(out.ConnectionString, out.Database, out.Table)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", out.Format)
	}
}

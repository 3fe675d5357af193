package memory

import (
	"context"

	"ssec-chat/internal/domain"
	"ssec-chat/internal/ports/output"

	"github.com/sirupsen/logrus"
)

var _ output.ExchangeRecorder = NoopRecorder{}

// NoopRecorder drops exchange records; used when the database ledger is disabled
type NoopRecorder struct{}

// Record logs the record at debug level
func (NoopRecorder) Record(_ context.Context, record domain.ExchangeRecord) error {
	logrus.Debugf("Exchange finished: outcome=%s class=%s deltas=%d duration=%dms",
		record.Outcome, record.FailureClass, record.DeltaCount, record.DurationMs)
	return nil
}

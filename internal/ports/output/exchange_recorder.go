package output

import (
	"context"

	"ssec-chat/internal/domain"
)

// ExchangeRecorder interface - Output port
// Operational ledger of finished sends. Implementations must not block for long;
// errors are logged by the caller and never surfaced to the user.
type ExchangeRecorder interface {
	Record(ctx context.Context, record domain.ExchangeRecord) error
}

package exchange

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/simple-executor/internal/order"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderClosed     = errors.New("order already closed")
	ErrWouldTrigger    = errors.New("order would immediately trigger")
	ErrNoTrades        = errors.New("no trades found")
	ErrUnsupportedType = fmt.Errorf("%w: order type not supported by exchange", order.ErrInvalidArgument)
)

// RemoteAPIError is returned by every gateway call the exchange rejected or could not
// process. It is never retried by this module.
type RemoteAPIError struct {
	Exchange string
	Op       string
	Symbol   string
	OrderID  string
	Err      error
}

func (e *RemoteAPIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Exchange)
	b.WriteString(": ")
	b.WriteString(e.Op)
	if e.Symbol != "" {
		b.WriteString(" ")
		b.WriteString(e.Symbol)
	}
	if e.OrderID != "" {
		b.WriteString(" order ")
		b.WriteString(e.OrderID)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *RemoteAPIError) Unwrap() error {
	return e.Err
}

// IsRemote reports whether err came back from an exchange call.
func IsRemote(err error) bool {
	var rerr *RemoteAPIError
	return errors.As(err, &rerr)
}

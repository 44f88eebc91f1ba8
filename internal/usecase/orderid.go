package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderIDGenerator produces internal order identifiers.
type OrderIDGenerator func() string

// NewOrderID returns "order_<unix millis>_<12 hex chars>".
func NewOrderID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("order_%d_%s", time.Now().UnixMilli(), suffix)
}

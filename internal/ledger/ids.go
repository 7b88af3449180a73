package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KeyzrSoze/signals/internal/dataset"
)

// idNamespace pins prediction identity across processes and restarts.
// Changing it would orphan every row already in the registry, so it is
// fixed for the lifetime of the system.
var idNamespace = uuid.MustParse("9f2c1b4e-7a3d-4c5f-8e6a-2d1b0c9f8e7a")

// PredictionID derives the stable identifier for a prediction made on
// predictionDate for entityID. The same pair always yields the same id,
// which is what makes re-logging a slice a no-op instead of a duplicate.
func PredictionID(predictionDate time.Time, entityID string) string {
	name := fmt.Sprintf("%s|%s", predictionDate.Format(dataset.DateLayout), entityID)
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}

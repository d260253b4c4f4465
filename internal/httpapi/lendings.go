package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-lending/internal/logging"
	"library-lending/library"
)

type LendingsController struct {
	store Store
	log   logging.Logger
}

func NewLendingsController(store Store, log logging.Logger) *LendingsController {
	return &LendingsController{store: store, log: log}
}

// List returns every lending record, newest first, or with ?overdue=true the
// open records past their due date.
func (lc *LendingsController) List(c *gin.Context) {
	var (
		records []*library.LendingRecord
		err     error
	)
	if queryFlag(c, "overdue") {
		records, err = lc.store.Overdue(c.Request.Context())
	} else {
		records, err = lc.store.GetAllLendingRecords(c.Request.Context())
	}
	if err != nil {
		respondInternalError(c, lc.log, err, "list lendings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"lendings": records, "count": len(records)})
}

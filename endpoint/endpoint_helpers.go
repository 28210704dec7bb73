package endpoint

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lmontagna/fisioagenda/middleware"
	"github.com/lmontagna/fisioagenda/util"
	"gorm.io/gorm"
)

// bindJSONOrRespond binds the request body into dst, replying with a user
// error and returning false on failure.
func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: msg,
			Err: err,
		})
		return false
	}
	return true
}

// getDBOrRespond fetches the DB from context, replying with a server error
// and returning false when it is unavailable.
func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database connection not available",
			Err: fmt.Errorf("db is nil"),
		})
		return nil, false
	}
	return db, true
}

// paramIDOrRespond parses the :id (or named) path parameter as an unsigned
// integer, replying with a user error on failure.
func paramIDOrRespond(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid %s parameter", name),
			Err: fmt.Errorf("%s must be a positive integer, got %q", name, raw),
		})
		return 0, false
	}
	return uint(id), true
}

type listQuery struct {
	Limit   int
	Offset  int
	Keyword string
}

func parseListQuery(c *gin.Context) listQuery {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return listQuery{
		Limit:   limit,
		Offset:  offset,
		Keyword: c.Query("keyword"),
	}
}

package endpoint

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmontagna/fisioagenda/model"
	"github.com/lmontagna/fisioagenda/util"
	cache "github.com/patrickmn/go-cache"
)

// Dashboard counters may lag mutations by up to kpiCacheTTL.
const kpiCacheTTL = 30 * time.Second

var kpiCache = cache.New(kpiCacheTTL, 5*time.Minute)

// GetDashboardKpis godoc
// @Summary      Dashboard counters
// @Description  Compute the dashboard KPIs over the filtered visit set
// @Tags         Dashboard
// @Produce      json
// @Security     SessionToken
// @Param        period query string false "today|week|month|custom|all"
// @Param        status query string false "scheduled|completed|cancelled|no-show|all"
// @Param        paid query string false "paid|partial|unpaid|all"
// @Param        patient_id query int false "Restrict to one patient"
// @Param        keyword query string false "Text search over treatment, location and patient"
// @Success      200 {object} util.APIResponse{data=model.VisitKpis} "KPIs computed"
// @Router       /dashboard/kpi [get]
func GetDashboardKpis(c *gin.Context) {
	q := parseVisitListQuery(c)
	cacheKey := fmt.Sprintf("kpi:%s:%s:%s:%d:%s:%s:%s",
		q.Period, q.Status, q.Paid, q.PatientID, q.Keyword,
		q.StartDate.Format("2006-01-02"), q.EndDate.Format("2006-01-02"))
	if cached, found := kpiCache.Get(cacheKey); found {
		util.CallSuccessOK(c, util.APISuccessParams{
			Msg:  "KPIs computed",
			Data: cached,
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	visits, _, err := fetchVisits(db, q, time.Now())
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to compute KPIs",
			Err: err,
		})
		return
	}

	filtered := make([]model.Visit, 0, len(visits))
	for _, v := range visits {
		if matchesPaidFilter(v, q.Paid) {
			filtered = append(filtered, v)
		}
	}

	kpis := model.ComputeVisitKpis(filtered, time.Now())
	kpiCache.Set(cacheKey, kpis, cache.DefaultExpiration)

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "KPIs computed",
		Data: kpis,
	})
}

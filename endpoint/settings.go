package endpoint

import (
	"github.com/gin-gonic/gin"
	"github.com/lmontagna/fisioagenda/model"
	"github.com/lmontagna/fisioagenda/util"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// loadOrCreateSettings returns the singleton settings row, creating it with
// defaults on first read.
func loadOrCreateSettings(db *gorm.DB) (model.Settings, error) {
	var settings model.Settings
	err := db.First(&settings).Error
	if err == gorm.ErrRecordNotFound {
		settings = model.DefaultSettings()
		if err := db.Create(&settings).Error; err != nil {
			return model.Settings{}, err
		}
		return settings, nil
	}
	return settings, err
}

// GetSettings returns the practice settings.
func GetSettings(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	settings, err := loadOrCreateSettings(db)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to load settings",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Settings retrieved",
		Data: settings,
	})
}

type settingsRequest struct {
	StandardRate   *float64       `json:"standard_rate,omitempty"`
	Treatments     datatypes.JSON `json:"treatments,omitempty"`
	PaymentMethods datatypes.JSON `json:"payment_methods,omitempty"`
}

// UpdateSettings applies a partial update to the settings row.
func UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if !bindJSONOrRespond(c, &req, "Invalid input data") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	settings, err := loadOrCreateSettings(db)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to load settings",
			Err: err,
		})
		return
	}

	updates := map[string]interface{}{}
	if req.StandardRate != nil {
		updates["standard_rate"] = *req.StandardRate
	}
	if len(req.Treatments) > 0 {
		updates["treatments"] = req.Treatments
	}
	if len(req.PaymentMethods) > 0 {
		updates["payment_methods"] = req.PaymentMethods
	}
	if len(updates) > 0 {
		if err := db.Model(&settings).Updates(updates).Error; err != nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Failed to update settings",
				Err: err,
			})
			return
		}
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Settings updated",
		Data: settings,
	})
}

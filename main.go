// main.go
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmontagna/fisioagenda/config"
	"github.com/lmontagna/fisioagenda/endpoint"
	"github.com/lmontagna/fisioagenda/middleware"
	"github.com/lmontagna/fisioagenda/model"
	"github.com/lmontagna/fisioagenda/util"
)

const patientNameCacheSize = 256

func main() {
	// Load the configuration
	cfg := config.LoadConfig()

	db, err := config.ConnectMySQL()
	if err != nil {
		log.Fatalf("Error connecting to MySQL: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Patient{},
		&model.Visit{},
		&model.Deposit{},
		&model.Series{},
		&model.PatientDocument{},
		&model.VisitAttachment{},
		&model.Settings{},
		&model.User{},
		&model.Session{},
		&model.Role{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("Error migrating schema: %v", err)
	}
	if err := model.SeedRoles(db); err != nil {
		log.Fatalf("Error seeding roles: %v", err)
	}

	// An empty non-production database gets a small demo practice so the
	// agenda is usable right after first start.
	if cfg.AppEnv != "production" {
		var patientCount int64
		if err := db.Model(&model.Patient{}).Count(&patientCount).Error; err == nil && patientCount == 0 {
			if err := model.SeedDemoData(db, time.Now()); err != nil {
				log.Printf("Demo seed failed: %v", err)
			}
		}
	}

	// Redis is optional: sessions and rate limiting degrade gracefully.
	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Redis unavailable, continuing without it: %v", err)
	}

	util.SetAuditLoggerDB(db)
	util.InitPatientNameCache(patientNameCacheSize)

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	// Create a Gin router with default middleware
	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.EndpointCallLogger())

	// Basic HTTP handler for root path
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})

	router.POST("/login", middleware.RateLimiter(middleware.RateLimitConfig{}), endpoint.Login)
	router.POST("/signup", endpoint.Signup)
	router.GET("/token/validate", endpoint.ValidateToken)

	authorized := router.Group("/")
	authorized.Use(middleware.SessionAuth())
	{
		authorized.DELETE("/logout", endpoint.Logout)

		authorized.GET("/patient", endpoint.ListPatients)
		authorized.POST("/patient", endpoint.CreatePatient)
		authorized.GET("/patient/:id", endpoint.GetPatient)
		authorized.PATCH("/patient/:id", endpoint.UpdatePatient)
		authorized.DELETE("/patient/:id", endpoint.DeletePatient)
		authorized.GET("/patient/:id/visit", endpoint.ListPatientVisits)
		authorized.GET("/patient/:id/document", endpoint.ListPatientDocuments)
		authorized.POST("/patient/:id/document", endpoint.UploadPatientDocument)
		authorized.DELETE("/document/:id", endpoint.DeletePatientDocument)

		authorized.GET("/visit", endpoint.ListVisits)
		authorized.POST("/visit", endpoint.CreateVisit)
		authorized.GET("/visit/:id", endpoint.GetVisit)
		authorized.PATCH("/visit/:id", endpoint.UpdateVisit)
		authorized.DELETE("/visit/:id", endpoint.DeleteVisit)
		authorized.POST("/visit/:id/duplicate", endpoint.DuplicateVisit)
		authorized.PATCH("/visit/:id/status", endpoint.UpdateVisitStatus)
		authorized.PATCH("/visit/:id/schedule", endpoint.UpdateVisitSchedule)
		authorized.PATCH("/visit/:id/notes", endpoint.UpdateVisitNotes)
		authorized.PATCH("/visit/:id/payment", endpoint.UpdateVisitPayment)
		authorized.POST("/visit/:id/deposit", endpoint.AddDeposit)
		authorized.DELETE("/visit/:id/deposit/:depositId", endpoint.RemoveDeposit)
		authorized.GET("/visit/:id/attachment", endpoint.ListVisitAttachments)
		authorized.POST("/visit/:id/attachment", endpoint.UploadVisitAttachment)
		authorized.DELETE("/attachment/:id", endpoint.DeleteVisitAttachment)

		authorized.GET("/dashboard/kpi", endpoint.GetDashboardKpis)

		authorized.GET("/settings", endpoint.GetSettings)
		authorized.PATCH("/settings", endpoint.UpdateSettings)

		authorized.POST("/import", endpoint.ImportLegacyDocument)
		authorized.GET("/export", endpoint.ExportDocument)
	}

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}

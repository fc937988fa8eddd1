package database

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/propcare/backend/internal/config"
	"github.com/propcare/backend/internal/models"
)

func Connect(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies the schema additively and backfills tickets created
// before workflow tracking existed. Nothing is dropped or recreated.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")

	err := db.AutoMigrate(
		&models.Department{},
		&models.TicketType{},
		&models.Workflow{},
		&models.WorkflowStep{},
		&models.Ticket{},
		&models.WorkflowResolution{},
		&models.FileAttachment{},
		&models.TicketHistory{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := backfillWorkflowStatus(db, log); err != nil {
		return fmt.Errorf("failed to backfill workflow status: %w", err)
	}

	log.Info("database migrations completed")
	return nil
}

// backfillWorkflowStatus gives pre-workflow tickets a synthesized
// single-step status for their own department so the engine can operate
// on them.
func backfillWorkflowStatus(db *gorm.DB, log *zap.Logger) error {
	var tickets []models.Ticket
	if err := db.Where("workflow_status IS NULL OR workflow_status = ''").Find(&tickets).Error; err != nil {
		return err
	}
	if len(tickets) == 0 {
		return nil
	}

	for i := range tickets {
		t := &tickets[i]
		var dept models.Department
		if err := db.First(&dept, "id = ?", t.DepartmentID).Error; err != nil {
			log.Warn("skipping backfill, department missing",
				zap.String("ticket", t.TicketNumber), zap.Error(err))
			continue
		}

		state := models.StepInProgress
		if t.IsFullyResolved {
			state = models.StepCompleted
		}
		statuses := []models.WorkflowStepStatus{{
			StepNumber:     1,
			DepartmentID:   dept.ID,
			DepartmentName: dept.Name,
			Status:         state,
		}}
		data, err := json.Marshal(statuses)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"workflow_status":         string(data),
			"current_workflow_step":   1,
			"current_department_id":   dept.ID,
			"current_department_name": dept.Name,
		}
		if err := db.Model(&models.Ticket{}).Where("id = ?", t.ID).Updates(updates).Error; err != nil {
			return err
		}
	}

	log.Info("backfilled workflow status on legacy tickets", zap.Int("count", len(tickets)))
	return nil
}

// Seed creates the standard real-estate departments with their default
// ticket types. Existing departments are left untouched.
func Seed(db *gorm.DB, log *zap.Logger) error {
	log.Info("seeding database")

	seeds := []struct {
		name          string
		subCategories []string
		ticketTypes   []models.TicketType
	}{
		{
			name:          "Maintenance",
			subCategories: []string{"Plumbing", "Electrical", "HVAC", "General Repairs"},
			ticketTypes: []models.TicketType{
				{Name: "Repair Request", DefaultDuration: 3, Priority: "high"},
				{Name: "Preventive Maintenance", DefaultDuration: 7, Priority: "low"},
			},
		},
		{
			name:          "Leasing",
			subCategories: []string{"Renewals", "New Leases", "Terminations"},
			ticketTypes: []models.TicketType{
				{Name: "Lease Renewal", DefaultDuration: 10, Priority: "medium"},
				{Name: "Move-Out Inspection", DefaultDuration: 5, Priority: "medium"},
			},
		},
		{
			name:          "Accounts",
			subCategories: []string{"Invoices", "Refunds", "Statements"},
			ticketTypes: []models.TicketType{
				{Name: "Billing Dispute", DefaultDuration: 5, Priority: "high"},
				{Name: "Refund Request", DefaultDuration: 7, Priority: "medium"},
			},
		},
		{
			name:          "Legal",
			subCategories: []string{"Contracts", "Disputes"},
			ticketTypes: []models.TicketType{
				{Name: "Contract Review", DefaultDuration: 10, Priority: "medium"},
			},
		},
		{
			name:          "Customer Care",
			subCategories: []string{"Complaints", "Inquiries"},
			ticketTypes: []models.TicketType{
				{Name: "General Inquiry", DefaultDuration: 2, Priority: "low"},
				{Name: "Complaint", DefaultDuration: 3, Priority: "high"},
			},
		},
	}

	for _, seed := range seeds {
		var existing models.Department
		result := db.Where("name = ?", seed.name).First(&existing)
		if result.Error == nil {
			continue
		}
		if result.Error != gorm.ErrRecordNotFound {
			return result.Error
		}

		dept := models.Department{
			Name:          seed.name,
			SubCategories: models.EncodeSubCategories(seed.subCategories),
			TicketTypes:   seed.ticketTypes,
		}
		if err := db.Create(&dept).Error; err != nil {
			log.Error("failed to seed department", zap.String("name", seed.name), zap.Error(err))
			return err
		}
	}

	return nil
}

// Ping verifies the database connection is alive.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

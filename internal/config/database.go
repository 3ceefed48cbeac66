package config

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
)

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := cfg.GetDatabaseDSN()

	logLevel := logger.Silent
	if cfg.Server.Env == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("✅ Database connected successfully")

	return db, nil
}

// Migrate enables pgvector and creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}

	if err := db.SetupJoinTable(&models.Candidate{}, "Skills", &models.CandidateSkill{}); err != nil {
		return fmt.Errorf("failed to set up candidate_skills: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Skill{},
		&models.Candidate{},
		&models.Education{},
		&models.WorkExperience{},
		&models.Project{},
		&models.Certification{},
		&models.CandidateSkill{},
		&models.Document{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("✅ Database migration completed")

	return nil
}

// Package jobstore is the pipeline's single-writer persistent job table:
// a small relational store over GORM + SQLite, replacing the original
// batch worker's raw aiosqlite access.
package jobstore

import (
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"svasr/internal/model"
)

// Job is the jobs table row: id, status, timestamps, input/result JSON
// blobs, current step, and error message.
type Job struct {
	ID          string `gorm:"primaryKey"`
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	InputData   string `gorm:"type:text"`
	ResultData  string `gorm:"type:text"`
	CurrentStep string
	Error       string
}

func (Job) TableName() string { return "jobs" }

// Store wraps the gorm.DB handle with the job CRUD operations the queue
// and pipeline runner need.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if absent) the SQLite database at path and runs the
// schema migration.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Job{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Create inserts a new job row in status "pending" and returns its ID.
func (s *Store) Create(inputJSON string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	job := Job{
		ID:          id,
		Status:      string(model.JobPending),
		CreatedAt:   now,
		UpdatedAt:   now,
		InputData:   inputJSON,
		CurrentStep: model.StepInit,
	}
	if err := s.db.Create(&job).Error; err != nil {
		return "", err
	}
	return id, nil
}

// Get fetches a job by ID, returning (nil, nil) if it does not exist.
func (s *Store) Get(id string) (*Job, error) {
	var job Job
	err := s.db.First(&job, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Update fields are applied only when non-nil pointers are
// provided; updated_at is always bumped.
type Update struct {
	Status      *string
	CurrentStep *string
	ResultData  *string
	Error       *string
}

func (s *Store) Update(id string, u Update) error {
	values := map[string]interface{}{"updated_at": time.Now().UTC()}
	if u.Status != nil {
		values["status"] = *u.Status
	}
	if u.CurrentStep != nil {
		values["current_step"] = *u.CurrentStep
	}
	if u.ResultData != nil {
		values["result_data"] = *u.ResultData
	}
	if u.Error != nil {
		values["error"] = *u.Error
	}
	return s.db.Model(&Job{}).Where("id = ?", id).Updates(values).Error
}

func strp(s string) *string { return &s }

// SetStatus is a convenience wrapper for the common status-only update.
func (s *Store) SetStatus(id, status string) error {
	return s.Update(id, Update{Status: strp(status)})
}

// SetStep is a convenience wrapper for current_step-only updates.
func (s *Store) SetStep(id, step string) error {
	return s.Update(id, Update{CurrentStep: strp(step)})
}

package repository

import (
	"github.com/deepquiz/wikiquiz/internal/model"
	"gorm.io/gorm"
)

type QuizRepository interface {
	Create(quiz *model.Quiz) error
	FindByID(id uint) (*model.Quiz, error)
	// FindLatestByURLKey returns the most recent record for a canonical URL,
	// or gorm.ErrRecordNotFound when none exists.
	FindLatestByURLKey(urlKey string) (*model.Quiz, error)
	// List returns a page of records ordered by date_generated descending,
	// plus the total record count.
	List(offset, limit int) ([]model.Quiz, int64, error)
}

type quizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) Create(quiz *model.Quiz) error {
	return r.db.Create(quiz).Error
}

func (r *quizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.db.First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepository) FindLatestByURLKey(urlKey string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.db.
		Where("url_key = ?", urlKey).
		Order("date_generated DESC, id DESC").
		First(&quiz).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepository) List(offset, limit int) ([]model.Quiz, int64, error) {
	var total int64
	if err := r.db.Model(&model.Quiz{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var quizzes []model.Quiz
	err := r.db.
		Order("date_generated DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&quizzes).Error
	if err != nil {
		return nil, 0, err
	}
	return quizzes, total, nil
}

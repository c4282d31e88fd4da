package repositories

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"

	"gorm.io/gorm"
)

// BlogRepository defines the interface for blog post access.
type BlogRepository interface {
	GetAll() ([]models.BlogPost, error)
	GetByID(id uint) (*models.BlogPost, error)
	Search(query string) ([]models.BlogPost, error)
	Create(post *models.BlogPost) error
}

// ContactRepository stores contact form messages.
type ContactRepository interface {
	Create(contact *models.Contact) error
}

// GORMBlogRepository is a GORM implementation of BlogRepository.
type GORMBlogRepository struct {
	db *gorm.DB
}

// NewGORMBlogRepository creates a new instance of GORMBlogRepository.
func NewGORMBlogRepository(db *gorm.DB) *GORMBlogRepository {
	return &GORMBlogRepository{db: db}
}

func (r *GORMBlogRepository) GetAll() ([]models.BlogPost, error) {
	var posts []models.BlogPost
	if err := r.db.Order("id").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to get blog posts: %w", err)
	}
	return posts, nil
}

func (r *GORMBlogRepository) GetByID(id uint) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := r.db.First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("blog post with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get blog post %d: %w", id, err)
	}
	return &post, nil
}

// Search matches the title, headings, bodies and conclusion.
func (r *GORMBlogRepository) Search(query string) ([]models.BlogPost, error) {
	like := "%" + strings.ToLower(query) + "%"
	cols := []string{"title", "head0", "body0", "head1", "body1", "head2", "body2", "conclusion"}
	conds := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		conds[i] = "LOWER(" + c + ") LIKE ?"
		args[i] = like
	}
	var posts []models.BlogPost
	if err := r.db.Where(strings.Join(conds, " OR "), args...).Order("id").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to search blog posts: %w", err)
	}
	return posts, nil
}

func (r *GORMBlogRepository) Create(post *models.BlogPost) error {
	if err := r.db.Create(post).Error; err != nil {
		return fmt.Errorf("failed to create blog post: %w", err)
	}
	return nil
}

// GORMContactRepository is a GORM implementation of ContactRepository.
type GORMContactRepository struct {
	db *gorm.DB
}

// NewGORMContactRepository creates a new instance of GORMContactRepository.
func NewGORMContactRepository(db *gorm.DB) *GORMContactRepository {
	return &GORMContactRepository{db: db}
}

func (r *GORMContactRepository) Create(contact *models.Contact) error {
	if err := r.db.Create(contact).Error; err != nil {
		return fmt.Errorf("failed to save contact message: %w", err)
	}
	return nil
}

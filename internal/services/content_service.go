package services

import (
	"fmt"
	"regexp"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

const minSearchLength = 2

var (
	contactEmailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	contactPhoneRe = regexp.MustCompile(`^\+?1?\d{9,15}$`)
)

// BlogService serves blog posts.
type BlogService struct {
	repo     repositories.BlogRepository
	pageSize int
}

// NewBlogService creates a new BlogService.
func NewBlogService(repo repositories.BlogRepository, pageSize int) *BlogService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &BlogService{repo: repo, pageSize: pageSize}
}

// BlogIndex is the post list split into rows.
type BlogIndex struct {
	Rows      [][]models.BlogPost `json:"rows"`
	RowCount  int                 `json:"row_count"`
	PostCount int                 `json:"post_count"`
}

// Index lists every post in rows of the page size.
func (s *BlogService) Index() (*BlogIndex, error) {
	posts, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}
	rows := Chunk(posts, s.pageSize)
	return &BlogIndex{Rows: rows, RowCount: len(rows), PostCount: len(posts)}, nil
}

// Post returns one blog post.
func (s *BlogService) Post(id uint) (*models.BlogPost, error) {
	return s.repo.GetByID(id)
}

// ContactRequest is the contact form.
type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=50"`
	Email   string `json:"email" validate:"required,max=70"`
	Phone   string `json:"phone" validate:"required,max=15"`
	Message string `json:"desc" validate:"required,max=500"`
}

// ContactService stores contact form messages.
type ContactService struct {
	repo repositories.ContactRepository
}

// NewContactService creates a new ContactService.
func NewContactService(repo repositories.ContactRepository) *ContactService {
	return &ContactService{repo: repo}
}

// Submit validates the email and phone formats and stores the message.
func (s *ContactService) Submit(req ContactRequest) (*models.Contact, error) {
	email := strings.TrimSpace(req.Email)
	phone := strings.TrimSpace(req.Phone)
	if !contactEmailRe.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if !contactPhoneRe.MatchString(phone) {
		return nil, ErrInvalidPhone
	}
	contact := &models.Contact{
		Name:    strings.TrimSpace(req.Name),
		Email:   email,
		Phone:   phone,
		Message: strings.TrimSpace(req.Message),
	}
	if err := s.repo.Create(contact); err != nil {
		return nil, fmt.Errorf("failed to save contact message: %w", err)
	}
	return contact, nil
}

// SearchResult groups matches across the catalog and the blog.
type SearchResult struct {
	Query      string            `json:"query"`
	Products   []models.Product  `json:"products"`
	Posts      []models.BlogPost `json:"posts"`
	Categories []string          `json:"categories"`
	Total      int               `json:"total"`
}

// SearchService runs the site search.
type SearchService struct {
	products repositories.ProductRepository
	blog     repositories.BlogRepository
}

// NewSearchService creates a new SearchService.
func NewSearchService(products repositories.ProductRepository, blog repositories.BlogRepository) *SearchService {
	return &SearchService{products: products, blog: blog}
}

// Search matches products, blog posts and category names. Queries shorter than two characters are rejected.
func (s *SearchService) Search(query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchLength {
		return nil, ErrQueryTooShort
	}

	products, err := s.products.Search(query)
	if err != nil {
		return nil, err
	}
	posts, err := s.blog.Search(query)
	if err != nil {
		return nil, err
	}
	all, err := s.products.Categories()
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(query)
	categories := []string{}
	for _, c := range all {
		if strings.Contains(strings.ToLower(c), lower) {
			categories = append(categories, c)
		}
	}

	return &SearchResult{
		Query:      query,
		Products:   products,
		Posts:      posts,
		Categories: categories,
		Total:      len(products) + len(posts) + len(categories),
	}, nil
}

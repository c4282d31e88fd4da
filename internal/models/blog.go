package models

import "time"

// BlogPost is a three-section article with a conclusion.
type BlogPost struct {
	ID         uint      `json:"post_id" gorm:"primaryKey"`
	Title      string    `json:"title" gorm:"size:100"`
	Head0      string    `json:"head0" gorm:"size:1000"`
	Body0      string    `json:"chead0" gorm:"size:10000"`
	Head1      string    `json:"head1" gorm:"size:1000"`
	Body1      string    `json:"chead1" gorm:"size:10000"`
	Head2      string    `json:"head2" gorm:"size:1000"`
	Body2      string    `json:"chead2" gorm:"size:10000"`
	Conclusion string    `json:"conclusion" gorm:"size:2000"`
	Thumbnail  string    `json:"thumbnail"`
	PubDate    time.Time `json:"pub_date"`
}

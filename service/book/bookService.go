package booksvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"bookswap/model"
)

// Catalog writes never touch the availability flag; that belongs to the
// swap core. New books start available.

type Repo interface {
	Insert(ctx context.Context, b *model.Book) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Book, error)
	ListAvailable(ctx context.Context, excludeOwnerID int64) ([]model.Book, error)
}

type Service interface {
	Add(ctx context.Context, ownerID int64, title, author, condition string) (*model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
	Mine(ctx context.Context, ownerID int64) ([]model.Book, error)
	Browse(ctx context.Context, viewerID int64) ([]model.Book, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) Add(ctx context.Context, ownerID int64, title, author, condition string) (*model.Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" || author == "" {
		return nil, errors.New("invalid payload")
	}
	b := &model.Book{OwnerID: ownerID, Title: title, Author: author, Condition: condition}
	if _, err := s.r.Insert(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) Detail(ctx context.Context, id int64) (*model.Book, error) {
	b, err := s.r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (s *service) Mine(ctx context.Context, ownerID int64) ([]model.Book, error) {
	return s.r.ListByOwner(ctx, ownerID)
}

func (s *service) Browse(ctx context.Context, viewerID int64) ([]model.Book, error) {
	return s.r.ListAvailable(ctx, viewerID)
}

package booksvc

import (
	"context"
	"errors"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/model"
)

type Repo interface {
	CreateBook(ctx context.Context, title, author, category string, referenceOnly bool, copies int) (int64, error)
	AddCopies(ctx context.Context, bookID int64, n int) (int64, error)
	List(ctx context.Context) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
}

// Advancer lets freshly added copies flow straight to the waitlist.
type Advancer interface {
	ApproveNextAndHold(ctx context.Context, bookID int64) (bool, error)
}

type Service interface {
	Create(ctx context.Context, req model.CreateBookReq) (int64, error)
	AddCopies(ctx context.Context, bookID int64, n int) (int64, error)
	List(ctx context.Context) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
}

type service struct {
	r   Repo
	adv Advancer
}

func New(r Repo, adv Advancer) Service { return &service{r: r, adv: adv} }

func (s *service) Create(ctx context.Context, req model.CreateBookReq) (int64, error) {
	if req.Title == "" || req.Author == "" || req.Category == "" || req.Copies < 0 {
		return 0, errors.New("invalid payload")
	}
	return s.r.CreateBook(ctx, req.Title, req.Author, req.Category, req.IsReferenceOnly, req.Copies)
}

// AddCopies grows the inventory, then advances the waitlist once per new
// copy until there is nobody left to advance.
func (s *service) AddCopies(ctx context.Context, bookID int64, n int) (int64, error) {
	added, err := s.r.AddCopies(ctx, bookID, n)
	if err != nil {
		return 0, err
	}
	for i := int64(0); i < added; i++ {
		advanced, err := s.adv.ApproveNextAndHold(ctx, bookID)
		if err != nil {
			return added, err
		}
		if !advanced {
			break
		}
	}
	return added, nil
}

func (s *service) List(ctx context.Context) ([]model.Book, error)            { return s.r.List(ctx) }
func (s *service) Detail(ctx context.Context, id int64) (*model.Book, error) { return s.r.Detail(ctx, id) }

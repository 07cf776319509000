package booksvc_test

import (
	"context"
	"testing"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/model"
	booksvc "github.com/LeeePH/integrated-esys-lib-lms-sub000/service/book"

	"github.com/stretchr/testify/require"
)

type repoMock struct {
	createFn    func(ctx context.Context, title, author, category string, referenceOnly bool, copies int) (int64, error)
	addCopiesFn func(ctx context.Context, bookID int64, n int) (int64, error)
	listFn      func(ctx context.Context) ([]model.Book, error)
	detailFn    func(ctx context.Context, id int64) (*model.Book, error)
}

func (m *repoMock) CreateBook(ctx context.Context, title, author, category string, referenceOnly bool, copies int) (int64, error) {
	return m.createFn(ctx, title, author, category, referenceOnly, copies)
}

func (m *repoMock) AddCopies(ctx context.Context, bookID int64, n int) (int64, error) {
	return m.addCopiesFn(ctx, bookID, n)
}

func (m *repoMock) List(ctx context.Context) ([]model.Book, error) { return m.listFn(ctx) }

func (m *repoMock) Detail(ctx context.Context, id int64) (*model.Book, error) {
	return m.detailFn(ctx, id)
}

type advancerMock struct {
	calls   int
	answers []bool
}

func (a *advancerMock) ApproveNextAndHold(_ context.Context, _ int64) (bool, error) {
	a.calls++
	if len(a.answers) == 0 {
		return false, nil
	}
	next := a.answers[0]
	a.answers = a.answers[1:]
	return next, nil
}

func TestCreateBook_RejectsBadPayload(t *testing.T) {
	svc := booksvc.New(&repoMock{}, &advancerMock{})

	_, err := svc.Create(context.Background(), model.CreateBookReq{Title: "", Author: "a", Category: "c"})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), model.CreateBookReq{Title: "t", Author: "a", Category: "c", Copies: -1})
	require.Error(t, err)
}

func TestCreateBook_OK(t *testing.T) {
	repo := &repoMock{
		createFn: func(_ context.Context, title, author, category string, referenceOnly bool, copies int) (int64, error) {
			require.Equal(t, "Go in Practice", title)
			require.True(t, referenceOnly)
			require.Equal(t, 3, copies)
			return 42, nil
		},
	}
	svc := booksvc.New(repo, &advancerMock{})

	id, err := svc.Create(context.Background(), model.CreateBookReq{
		Title: "Go in Practice", Author: "a", Category: "c",
		IsReferenceOnly: true, Copies: 3,
	})
	require.NoError(t, err)
	require.EqualValues(t, 42, id)
}

// Each new copy gives the waitlist one chance to advance; the loop stops
// as soon as nobody is waiting.
func TestAddCopies_DrainsWaitlist(t *testing.T) {
	repo := &repoMock{
		addCopiesFn: func(_ context.Context, _ int64, n int) (int64, error) { return int64(n), nil },
	}
	adv := &advancerMock{answers: []bool{true, true, false}}
	svc := booksvc.New(repo, adv)

	added, err := svc.AddCopies(context.Background(), 1, 5)
	require.NoError(t, err)
	require.EqualValues(t, 5, added)
	require.Equal(t, 3, adv.calls, "stops at the first false, not after all 5 copies")
}

func TestAddCopies_NoWaitlist(t *testing.T) {
	repo := &repoMock{
		addCopiesFn: func(_ context.Context, _ int64, n int) (int64, error) { return int64(n), nil },
	}
	adv := &advancerMock{}
	svc := booksvc.New(repo, adv)

	_, err := svc.AddCopies(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, 1, adv.calls)
}

package product

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, p *Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Product), args.Error(1)
}

func (m *MockRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*Product), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]*Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Product), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) error {
	return m.Called(ctx, id, params).Error(0)
}

func (m *MockRepository) SetInStock(ctx context.Context, id uuid.UUID, inStock bool) error {
	return m.Called(ctx, id, inStock).Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// --- Tests ---

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Create", ctx, mock.MatchedBy(func(p *Product) bool {
			return p.Name == "Tomato" && p.OfferPrice == 80
		})).Return(nil)

		p, err := NewService(repo).Create(ctx, CreateParams{
			Name: " Tomato ", Category: "Vegetables", Price: 100, OfferPrice: 80, Stock: 5,
		})
		require.NoError(t, err)
		assert.Equal(t, "Tomato", p.Name)
		repo.AssertExpectations(t)
	})

	t.Run("OfferPriceDefaultsToPrice", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Create", ctx, mock.Anything).Return(nil)

		p, err := NewService(repo).Create(ctx, CreateParams{
			Name: "Tomato", Category: "Vegetables", Price: 100, Stock: 5,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(100), p.OfferPrice)
	})

	t.Run("MissingFields", func(t *testing.T) {
		repo := new(MockRepository)
		cases := []CreateParams{
			{Category: "Vegetables", Price: 100, Stock: 5},
			{Name: "Tomato", Price: 100, Stock: 5},
			{Name: "Tomato", Category: "Vegetables", Stock: 5},
			{Name: "Tomato", Category: "Vegetables", Price: 100},
		}
		for _, params := range cases {
			_, err := NewService(repo).Create(ctx, params)
			assert.ErrorIs(t, err, ErrInvalidProduct)
		}
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("DBError", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Create", ctx, mock.Anything).Return(errors.New("db error"))

		_, err := NewService(repo).Create(ctx, CreateParams{
			Name: "Tomato", Category: "Vegetables", Price: 100, Stock: 5,
		})
		assert.Error(t, err)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("NegativeStock", func(t *testing.T) {
		stock := -1
		err := NewService(new(MockRepository)).Update(ctx, id, UpdateParams{Stock: &stock})
		assert.ErrorIs(t, err, ErrInvalidProduct)
	})

	t.Run("Delegates", func(t *testing.T) {
		stock := 7
		params := UpdateParams{Stock: &stock}
		repo := new(MockRepository)
		repo.On("Update", ctx, id, params).Return(nil)

		require.NoError(t, NewService(repo).Update(ctx, id, params))
		repo.AssertExpectations(t)
	})
}

func TestService_Passthrough(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	repo := new(MockRepository)
	repo.On("GetByID", ctx, id).Return(nil, ErrProductNotFound)
	repo.On("SetInStock", ctx, id, false).Return(nil)
	repo.On("Delete", ctx, id).Return(nil)
	repo.On("List", ctx).Return([]*Product{{ID: id}}, nil)

	svc := NewService(repo)

	_, err := svc.GetByID(ctx, id)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.NoError(t, svc.SetInStock(ctx, id, false))
	assert.NoError(t, svc.Delete(ctx, id))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	repo.AssertExpectations(t)
}

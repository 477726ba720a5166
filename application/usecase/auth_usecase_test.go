package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/altari/auth-service/application/port/inbound"
	"github.com/altari/auth-service/application/port/outbound"
	"github.com/altari/auth-service/domain/apperror"
	"github.com/altari/auth-service/domain/entity"
	"github.com/altari/auth-service/infrastructure/service/logger"
)

// Mock implementations

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) IssuePair(userID, email string) (*outbound.TokenPair, error) {
	args := m.Called(userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbound.TokenPair), args.Error(1)
}

func (m *MockTokenService) Verify(token string, expected outbound.TokenType) (*outbound.TokenClaims, error) {
	args := m.Called(token, expected)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbound.TokenClaims), args.Error(1)
}

type MockPasswordService struct {
	mock.Mock
}

func (m *MockPasswordService) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordService) VerifyPassword(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockPasswordService) DummyVerify(password string) {
	m.Called(password)
}

func testLogger() logger.Logger {
	return logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       "error",
		Format:      "text",
		ServiceName: "auth-service-test",
	})
}

func newTestUseCase(repo outbound.UserRepository, tokens outbound.TokenService, passwords outbound.PasswordService) inbound.AuthUseCase {
	return NewAuthUseCase(repo, tokens, passwords, testLogger(), 15*time.Minute, 7*24*time.Hour)
}

var testPair = &outbound.TokenPair{
	AccessToken:  "signed-access",
	RefreshToken: "signed-refresh",
}

func TestRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := new(MockUserRepository)
		tokens := new(MockTokenService)
		passwords := new(MockPasswordService)

		repo.On("FindByEmail", mock.Anything, "u@e.com").Return(nil, outbound.ErrUserNotFound)
		passwords.On("HashPassword", "longenough1").Return("hashed", nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
			return u.Email == "u@e.com" && u.Password == "hashed" && u.ID != ""
		})).Return(nil)
		tokens.On("IssuePair", mock.Anything, "u@e.com").Return(testPair, nil)

		uc := newTestUseCase(repo, tokens, passwords)
		result, err := uc.Register(context.Background(), inbound.RegisterRequest{Email: "u@e.com", Password: "longenough1"})

		require.NoError(t, err)
		assert.Equal(t, "signed-access", result.AccessToken)
		assert.Equal(t, "signed-refresh", result.RefreshToken)
		assert.Equal(t, int((15 * time.Minute).Seconds()), result.ExpiresIn)
		repo.AssertExpectations(t)
		tokens.AssertExpectations(t)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		repo := new(MockUserRepository)
		tokens := new(MockTokenService)
		passwords := new(MockPasswordService)

		existing := entity.NewUser("id1", "u@e.com", "hash")
		repo.On("FindByEmail", mock.Anything, "u@e.com").Return(existing, nil)

		uc := newTestUseCase(repo, tokens, passwords)
		_, err := uc.Register(context.Background(), inbound.RegisterRequest{Email: "u@e.com", Password: "longenough1"})

		assert.ErrorIs(t, err, apperror.ErrEmailTaken)
		tokens.AssertNotCalled(t, "IssuePair", mock.Anything, mock.Anything)
	})

	t.Run("RaceLosesAtStore", func(t *testing.T) {
		// Lookup sees no user but the insert loses the unique-index
		// race; the caller still gets a conflict, not a 500.
		repo := new(MockUserRepository)
		tokens := new(MockTokenService)
		passwords := new(MockPasswordService)

		repo.On("FindByEmail", mock.Anything, "u@e.com").Return(nil, outbound.ErrUserNotFound)
		passwords.On("HashPassword", "longenough1").Return("hashed", nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(outbound.ErrEmailTaken)

		uc := newTestUseCase(repo, tokens, passwords)
		_, err := uc.Register(context.Background(), inbound.RegisterRequest{Email: "u@e.com", Password: "longenough1"})

		assert.ErrorIs(t, err, apperror.ErrEmailTaken)
	})
}

func TestLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := new(MockUserRepository)
		tokens := new(MockTokenService)
		passwords := new(MockPasswordService)

		user := entity.NewUser("id1", "u@e.com", "hash")
		repo.On("FindByEmail", mock.Anything, "u@e.com").Return(user, nil)
		passwords.On("VerifyPassword", "longenough1", "hash").Return(true, nil)
		tokens.On("IssuePair", "id1", "u@e.com").Return(testPair, nil)

		uc := newTestUseCase(repo, tokens, passwords)
		result, err := uc.Login(context.Background(), inbound.LoginRequest{Email: "u@e.com", Password: "longenough1"})

		require.NoError(t, err)
		assert.Equal(t, "signed-access", result.AccessToken)
	})

	t.Run("UnknownEmailAndWrongPasswordAreIndistinguishable", func(t *testing.T) {
		repo := new(MockUserRepository)
		tokens := new(MockTokenService)
		passwords := new(MockPasswordService)

		user := entity.NewUser("id1", "a@x.com", "hash")
		repo.On("FindByEmail", mock.Anything, "a@x.com").Return(user, nil)
		repo.On("FindByEmail", mock.Anything, "ghost@x.com").Return(nil, outbound.ErrUserNotFound)
		passwords.On("VerifyPassword", "wrong", "hash").Return(false, nil)
		passwords.On("DummyVerify", "any").Return()

		uc := newTestUseCase(repo, tokens, passwords)

		_, errWrongPassword := uc.Login(context.Background(), inbound.LoginRequest{Email: "a@x.com", Password: "wrong"})
		_, errUnknownEmail := uc.Login(context.Background(), inbound.LoginRequest{Email: "ghost@x.com", Password: "any"})

		require.Error(t, errWrongPassword)
		require.Error(t, errUnknownEmail)
		assert.Equal(t, errWrongPassword, errUnknownEmail)
		assert.ErrorIs(t, errWrongPassword, apperror.ErrInvalidCredentials)

		// The unknown-email path still pays for one hash comparison
		passwords.AssertCalled(t, "DummyVerify", "any")
	})
}

func TestRefresh(t *testing.T) {
	refreshClaims := &outbound.TokenClaims{
		UserID: "id1",
		Email:  "u@e.com",
		Type:   outbound.TokenTypeRefresh,
	}

	t.Run("IssuesFreshPair", func(t *testing.T) {
		repo := new(MockUserRepository)
		tokens := new(MockTokenService)
		passwords := new(MockPasswordService)

		user := entity.NewUser("id1", "u@e.com", "hash")
		repo.On("FindByID", mock.Anything, "id1").Return(user, nil)
		tokens.On("IssuePair", "id1", "u@e.com").Return(testPair, nil)

		uc := newTestUseCase(repo, tokens, passwords)
		result, err := uc.Refresh(context.Background(), refreshClaims)

		require.NoError(t, err)
		assert.Equal(t, "signed-access", result.AccessToken)
		assert.Equal(t, "signed-refresh", result.RefreshToken)
	})

	t.Run("DeletedUser", func(t *testing.T) {
		repo := new(MockUserRepository)
		tokens := new(MockTokenService)
		passwords := new(MockPasswordService)

		repo.On("FindByID", mock.Anything, "id1").Return(nil, outbound.ErrUserNotFound)

		uc := newTestUseCase(repo, tokens, passwords)
		_, err := uc.Refresh(context.Background(), refreshClaims)

		assert.ErrorIs(t, err, apperror.ErrUserNotFound)
		// Externally identical to any other 401
		assert.Equal(t, apperror.HTTPStatus(apperror.ErrUnauthorized), apperror.HTTPStatus(err))
	})

	t.Run("NilClaims", func(t *testing.T) {
		uc := newTestUseCase(new(MockUserRepository), new(MockTokenService), new(MockPasswordService))
		_, err := uc.Refresh(context.Background(), nil)
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})
}

func TestMe(t *testing.T) {
	repo := new(MockUserRepository)
	user := entity.NewUser("id1", "u@e.com", "hash")
	repo.On("FindByID", mock.Anything, "id1").Return(user, nil)

	uc := newTestUseCase(repo, new(MockTokenService), new(MockPasswordService))
	me, err := uc.Me(context.Background(), "id1")

	require.NoError(t, err)
	assert.Equal(t, "id1", me.ID)
	assert.Equal(t, "u@e.com", me.Email)
}

// memoryUserRepository enforces email uniqueness under a lock, standing
// in for the database unique index in concurrency tests.
type memoryUserRepository struct {
	mu      sync.Mutex
	byEmail map[string]*entity.User
	byID    map[string]*entity.User
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{
		byEmail: make(map[string]*entity.User),
		byID:    make(map[string]*entity.User),
	}
}

func (r *memoryUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, outbound.ErrUserNotFound
}

func (r *memoryUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, outbound.ErrUserNotFound
}

func (r *memoryUserRepository) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return outbound.ErrEmailTaken
	}
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
	return nil
}

func TestConcurrentRegistration(t *testing.T) {
	repo := newMemoryUserRepository()
	tokens := new(MockTokenService)
	passwords := new(MockPasswordService)

	tokens.On("IssuePair", mock.Anything, "u@e.com").Return(testPair, nil)
	passwords.On("HashPassword", "longenough1").Return("hashed", nil)

	uc := newTestUseCase(repo, tokens, passwords)

	const racers = 8
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Register(context.Background(), inbound.RegisterRequest{
				Email:    "u@e.com",
				Password: "longenough1",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, apperror.ErrEmailTaken):
			conflicts++
		}
	}

	assert.Equal(t, 1, successes, "exactly one registration must win")
	assert.Equal(t, racers-1, conflicts)
}

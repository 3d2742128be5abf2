package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"card-assistant-backend/internal/domain"
	"card-assistant-backend/internal/usecase"
	"card-assistant-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProfileEngine_EnsureConcurrent(t *testing.T) {
	t.Run("Should leave exactly one record after N concurrent ensures", func(t *testing.T) {
		repo := newMemProfileRepo()
		repo.readDelay = 5 * time.Millisecond
		engine := usecase.NewProfileEngine(repo, nil, nil, validation.New())
		identity := domain.Identity{ID: "u1", Email: "jane@x.com"}

		const n = 50
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- engine.Ensure(context.Background(), identity, domain.ProfileHints{Name: "Jane"})
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, 1, repo.count())
		assert.Equal(t, 1, repo.inserts)
	})

	t.Run("Should treat a unique violation from another writer as success", func(t *testing.T) {
		// Two engines share one store: in-process de-duplication cannot help, the unique key must.
		repo := newMemProfileRepo()
		repo.readDelay = 50 * time.Millisecond
		first := usecase.NewProfileEngine(repo, nil, nil, validation.New())
		second := usecase.NewProfileEngine(repo, nil, nil, validation.New())
		identity := domain.Identity{ID: "u1", Email: "jane@x.com"}
		hints := domain.ProfileHints{Name: "Jane", Email: "jane@x.com"}

		var wg sync.WaitGroup
		var errFirst, errSecond error
		wg.Add(2)
		go func() { defer wg.Done(); errFirst = first.Ensure(context.Background(), identity, hints) }()
		go func() { defer wg.Done(); errSecond = second.Ensure(context.Background(), identity, hints) }()
		wg.Wait()

		require.NoError(t, errFirst)
		require.NoError(t, errSecond)
		assert.Equal(t, 1, repo.count())
		assert.Equal(t, 1, repo.conflicts)

		stored, err := repo.GetByID(context.Background(), "u1")
		require.NoError(t, err)
		require.NotNil(t, stored.FullName)
		assert.Equal(t, "Jane", *stored.FullName)
	})
}

func TestProfileEngine_Ensure(t *testing.T) {
	ctx := context.Background()

	t.Run("Should not insert when the profile exists", func(t *testing.T) {
		repo := new(MockProfileRepo)
		repo.On("GetByID", mock.Anything, "u1").Return(&domain.Profile{ID: "u1"}, nil)
		engine := usecase.NewProfileEngine(repo, nil, nil, validation.New())

		require.NoError(t, engine.Ensure(ctx, domain.Identity{ID: "u1"}, domain.ProfileHints{}))
		repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("Should build defaults from provider metadata and email", func(t *testing.T) {
		repo := new(MockProfileRepo)
		repo.On("GetByID", mock.Anything, "u2").Return(nil, nil)
		repo.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Profile")).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(1).(*domain.Profile)
			require.NotNil(t, p.FullName)
			assert.Equal(t, "jdoe", *p.FullName)
			require.NotNil(t, p.AvatarURL)
			assert.Equal(t, "https://img/p.png", *p.AvatarURL)
			assert.NotNil(t, p.NotificationPreferences)
			assert.False(t, p.OnboardingCompleted)
		})
		publisher := new(MockPublisher)
		publisher.On("Publish", mock.Anything, domain.SubjectProfileCreated, mock.Anything).Return(nil)
		engine := usecase.NewProfileEngine(repo, publisher, nil, validation.New())

		identity := domain.Identity{ID: "u2", Email: "jdoe@x.com", Metadata: domain.ProviderMetadata{Picture: "https://img/p.png"}}
		require.NoError(t, engine.Ensure(ctx, identity, usecase.HintsFromIdentity(identity)))
		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("Should treat a unique violation on insert as success without announcing creation", func(t *testing.T) {
		repo := new(MockProfileRepo)
		repo.On("GetByID", mock.Anything, "u5").Return(nil, nil)
		repo.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Profile")).Return(domain.ErrUniqueViolation)
		publisher := new(MockPublisher)
		engine := usecase.NewProfileEngine(repo, publisher, nil, validation.New())

		require.NoError(t, engine.Ensure(ctx, domain.Identity{ID: "u5", Email: "u5@x.com"}, domain.ProfileHints{Name: "U"}))
		repo.AssertExpectations(t)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, domain.SubjectProfileCreated, mock.Anything)
	})

	t.Run("Should report other insert failures as ProfileCreationFailed", func(t *testing.T) {
		repo := new(MockProfileRepo)
		repo.On("GetByID", mock.Anything, "u3").Return(nil, nil)
		repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
		engine := usecase.NewProfileEngine(repo, nil, nil, validation.New())

		err := engine.Ensure(ctx, domain.Identity{ID: "u3"}, domain.ProfileHints{Name: "X"})
		assert.ErrorIs(t, err, domain.ErrProfileCreationFailed)
	})

	t.Run("Should report lookup failures as ProfileCreationFailed", func(t *testing.T) {
		repo := new(MockProfileRepo)
		repo.On("GetByID", mock.Anything, "u4").Return(nil, errors.New("timeout"))
		engine := usecase.NewProfileEngine(repo, nil, nil, validation.New())

		err := engine.Ensure(ctx, domain.Identity{ID: "u4"}, domain.ProfileHints{})
		assert.ErrorIs(t, err, domain.ErrProfileCreationFailed)
		repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("Should reject an empty identity", func(t *testing.T) {
		engine := usecase.NewProfileEngine(new(MockProfileRepo), nil, nil, validation.New())
		assert.ErrorIs(t, engine.Ensure(ctx, domain.Identity{}, domain.ProfileHints{}), domain.ErrProfileCreationFailed)
	})
}

func TestProfileEngine_Require(t *testing.T) {
	ctx := context.Background()
	identity := domain.Identity{ID: "u1", Email: "jane@x.com"}

	t.Run("Should retry once and succeed", func(t *testing.T) {
		repo := new(MockProfileRepo)
		repo.On("GetByID", mock.Anything, "u1").Return(nil, errors.New("blip")).Once()
		repo.On("GetByID", mock.Anything, "u1").Return(&domain.Profile{ID: "u1"}, nil).Once()
		engine := usecase.NewProfileEngine(repo, nil, nil, validation.New())

		assert.NoError(t, engine.Require(ctx, identity))
		repo.AssertNumberOfCalls(t, "GetByID", 2)
	})

	t.Run("Should fail after the retry also fails", func(t *testing.T) {
		repo := new(MockProfileRepo)
		repo.On("GetByID", mock.Anything, "u1").Return(nil, errors.New("down"))
		engine := usecase.NewProfileEngine(repo, nil, nil, validation.New())

		err := engine.Require(ctx, identity)
		assert.ErrorIs(t, err, domain.ErrProfileCreationFailed)
		repo.AssertNumberOfCalls(t, "GetByID", 2)
	})
}

func TestProfileEngine_UpdateDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("Should reject an invalid avatar url", func(t *testing.T) {
		repo := new(MockProfileRepo)
		engine := usecase.NewProfileEngine(repo, nil, nil, validation.New())

		_, err := engine.UpdateDetails(ctx, domain.Identity{ID: "u1"}, domain.ProfileUpdate{AvatarURL: ptr("not a url")})
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, []string{"avatar_url"}, vErr.InvalidFields)
		repo.AssertNotCalled(t, "UpdateDetails", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should reject a display name with markup characters", func(t *testing.T) {
		repo := new(MockProfileRepo)
		engine := usecase.NewProfileEngine(repo, nil, nil, validation.New())

		_, err := engine.UpdateDetails(ctx, domain.Identity{ID: "u1"}, domain.ProfileUpdate{FullName: ptr("<b>Jane</b>")})
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, []string{"full_name"}, vErr.InvalidFields)
		assert.Equal(t, []string{"Display name: only letters, spaces and common punctuation"}, vErr.Messages)
		repo.AssertNotCalled(t, "UpdateDetails", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should ensure the profile before updating", func(t *testing.T) {
		repo := newMemProfileRepo()
		engine := usecase.NewProfileEngine(repo, nil, nil, validation.New())

		updated, err := engine.UpdateDetails(ctx, domain.Identity{ID: "u9", Email: "z@x.com"}, domain.ProfileUpdate{FullName: ptr("Zed")})
		require.NoError(t, err)
		assert.Equal(t, "Zed", *updated.FullName)
	})
}

//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"gallery-service/internal/config"
	"gallery-service/internal/domain/invitation"
	"gallery-service/internal/domain/share"
	apperrors "gallery-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: DB_PASSWORD=... go test -tags integration ./internal/repository/postgres/
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	password := os.Getenv("DB_PASSWORD")
	if password == "" {
		t.Skip("DB_PASSWORD not set")
	}
	port, err := strconv.Atoi(envOr("DB_PORT", "5432"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, &config.DatabaseConfig{
		Host:     envOr("DB_HOST", "localhost"),
		Port:     port,
		Database: envOr("DB_NAME", "gallery"),
		User:     envOr("DB_USER", "gallery_app"),
		Password: password,
		SSLMode:  envOr("DB_SSL_MODE", "disable"),
		MaxConns: 10,
		MinConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func seedGallery(t *testing.T, db *DB) (galleryID, ownerID uuid.UUID) {
	t.Helper()
	galleryID, ownerID = uuid.New(), uuid.New()
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO galleries (id, owner_id, title) VALUES ($1, $2, $3)`,
		galleryID, ownerID, "integration")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM galleries WHERE id = $1`, galleryID)
	})
	return galleryID, ownerID
}

func intPtr(n int) *int { return &n }

func TestShareLinkRepository_RecordAccess(t *testing.T) {
	db := openTestDB(t)
	repo := NewShareLinkRepository(db)
	ctx := context.Background()
	galleryID, ownerID := seedGallery(t, db)

	newLink := func(t *testing.T, maxViews *int) *share.ShareLink {
		link, err := repo.Create(ctx, share.CreateShareLinkInput{
			Token:     uuid.NewString(),
			GalleryID: galleryID,
			OwnerID:   ownerID,
			MaxViews:  maxViews,
		})
		require.NoError(t, err)
		return link
	}

	t.Run("quota exhausted after max views", func(t *testing.T) {
		link := newLink(t, intPtr(1))

		stats, err := repo.RecordAccess(ctx, link.ID, share.AccessLogEntry{IP: "192.0.2.1"})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalViews)

		_, err = repo.RecordAccess(ctx, link.ID, share.AccessLogEntry{IP: "192.0.2.1"})
		assert.ErrorIs(t, err, apperrors.ErrQuotaExhausted)
	})

	t.Run("unique views dedup by ip", func(t *testing.T) {
		link := newLink(t, nil)
		now := time.Now().UTC()

		for i, ip := range []string{"192.0.2.1", "192.0.2.1", "192.0.2.2"} {
			_, err := repo.RecordAccess(ctx, link.ID, share.AccessLogEntry{
				IP:         ip,
				AccessedAt: now.Add(time.Duration(i) * time.Minute),
			})
			require.NoError(t, err)
		}
		stats, err := repo.RecordAccess(ctx, link.ID, share.AccessLogEntry{
			IP:         "192.0.2.1",
			AccessedAt: now.Add(share.UniqueViewWindow + time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, 4, stats.TotalViews)
		assert.Equal(t, 3, stats.UniqueViews)
	})

	t.Run("access log keeps newest entries", func(t *testing.T) {
		link := newLink(t, nil)
		total := share.MaxAccessLogEntries + 5
		for i := 0; i < total; i++ {
			_, err := repo.RecordAccess(ctx, link.ID, share.AccessLogEntry{IP: fmt.Sprintf("198.51.100.%d", i%250)})
			require.NoError(t, err)
		}

		got, err := repo.GetByID(ctx, link.ID)
		require.NoError(t, err)
		require.Len(t, got.AccessLog, share.MaxAccessLogEntries)
		assert.Equal(t, fmt.Sprintf("198.51.100.%d", (total-1)%250), got.AccessLog[len(got.AccessLog)-1].IP)
		assert.Equal(t, "198.51.100.5", got.AccessLog[0].IP)
	})

	t.Run("concurrent access never exceeds max views", func(t *testing.T) {
		const maxViews, callers = 3, 20
		link := newLink(t, intPtr(maxViews))

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			exhausted int
		)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.RecordAccess(ctx, link.ID, share.AccessLogEntry{IP: fmt.Sprintf("203.0.113.%d", i)})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case assert.ErrorIs(t, err, apperrors.ErrQuotaExhausted):
					exhausted++
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, maxViews, succeeded)
		assert.Equal(t, callers-maxViews, exhausted)

		got, err := repo.GetByID(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, maxViews, got.Stats.TotalViews)
	})

	t.Run("deleted link is not found", func(t *testing.T) {
		link := newLink(t, nil)
		require.NoError(t, repo.SoftDelete(ctx, link.ID))

		_, err := repo.RecordAccess(ctx, link.ID, share.AccessLogEntry{IP: "192.0.2.1"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrQuotaExhausted)
	})
}

func TestInvitationRepository_RecordUse(t *testing.T) {
	db := openTestDB(t)
	repo := NewInvitationRepository(db)
	ctx := context.Background()
	galleryID, ownerID := seedGallery(t, db)

	t.Run("max uses enforced", func(t *testing.T) {
		inv, err := repo.Create(ctx, invitation.CreateInvitationInput{
			Code:      uuid.NewString(),
			GalleryID: galleryID,
			OwnerID:   ownerID,
			MaxUses:   intPtr(2),
		})
		require.NoError(t, err)

		for i := 1; i <= 2; i++ {
			got, err := repo.RecordUse(ctx, inv.ID, share.AccessLogEntry{IP: "192.0.2.1"})
			require.NoError(t, err)
			assert.Equal(t, i, got.CurrentUses)
		}
		_, err = repo.RecordUse(ctx, inv.ID, share.AccessLogEntry{IP: "192.0.2.1"})
		assert.ErrorIs(t, err, apperrors.ErrQuotaExhausted)
	})

	t.Run("concurrent uses never exceed max uses", func(t *testing.T) {
		const maxUses, callers = 2, 10
		inv, err := repo.Create(ctx, invitation.CreateInvitationInput{
			Code:      uuid.NewString(),
			GalleryID: galleryID,
			OwnerID:   ownerID,
			MaxUses:   intPtr(maxUses),
		})
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make(chan error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.RecordUse(ctx, inv.ID, share.AccessLogEntry{IP: "192.0.2.9"})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		succeeded := 0
		for err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, apperrors.ErrQuotaExhausted)
		}
		assert.Equal(t, maxUses, succeeded)

		got, err := repo.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, maxUses, got.CurrentUses)
		assert.Len(t, got.UsageLog, maxUses)
	})
}

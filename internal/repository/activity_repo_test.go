package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chainvote/govboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.ActivityRecord{},
		&model.ScoreMarker{},
		&model.ScoreOutbox{},
	))
	return db
}

func strPtr(v string) *string { return &v }

func uintPtr(v uint) *uint { return &v }

func record(kind model.ActivityKind, post uint, commentID, replyID string) *model.ActivityRecord {
	rec := &model.ActivityRecord{
		Kind:         kind,
		Network:      "polkadot",
		ActorID:      uintPtr(7),
		PostID:       post,
		PostType:     "referendum",
		PostAuthorID: 99,
	}
	if commentID != "" {
		rec.CommentID = strPtr(commentID)
	}
	if replyID != "" {
		rec.ReplyID = strPtr(replyID)
	}
	return rec
}

func TestFilterScopes(t *testing.T) {
	db := newTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	err := repo.InTx(ctx, func(tx *ActivityTx) error {
		for _, rec := range []*model.ActivityRecord{
			record(model.KindMentioned, 42, "", ""),     // post scoped
			record(model.KindMentioned, 42, "c1", ""),   // comment scoped
			record(model.KindMentioned, 42, "c1", "r1"), // reply scoped
		} {
			if err := tx.Create(rec); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	// Post-scoped only.
	n, err := repo.CountActive(ctx, ActivityFilter{
		Network:   "polkadot",
		Kind:      model.KindMentioned,
		NoComment: true,
		NoReply:   true,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// Comment-scoped, excluding the nested reply record.
	n, err = repo.CountActive(ctx, ActivityFilter{
		Network:   "polkadot",
		Kind:      model.KindMentioned,
		CommentID: strPtr("c1"),
		NoReply:   true,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// Everything under the comment, nested scopes included.
	n, err = repo.CountActive(ctx, ActivityFilter{
		Network:   "polkadot",
		CommentID: strPtr("c1"),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestSoftDeleteReportsRowsAndKeepsHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.InTx(ctx, func(tx *ActivityTx) error {
		return tx.Create(record(model.KindCommented, 42, "c1", ""))
	}))

	var n int64
	require.NoError(t, repo.InTx(ctx, func(tx *ActivityTx) error {
		var err error
		n, err = tx.SoftDelete(ActivityFilter{Network: "polkadot", CommentID: strPtr("c1")})
		return err
	}))
	assert.EqualValues(t, 1, n)

	// Re-deleting matches nothing: the filter only sees active rows.
	require.NoError(t, repo.InTx(ctx, func(tx *ActivityTx) error {
		var err error
		n, err = tx.SoftDelete(ActivityFilter{Network: "polkadot", CommentID: strPtr("c1")})
		return err
	}))
	assert.Zero(t, n)

	var kept int64
	require.NoError(t, db.Model(&model.ActivityRecord{}).Count(&kept).Error)
	assert.EqualValues(t, 1, kept)
}

func TestBatchRollsBackTogether(t *testing.T) {
	db := newTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	boom := errors.New("commit rejected")
	err := repo.InTx(ctx, func(tx *ActivityTx) error {
		if err := tx.Create(record(model.KindCommented, 42, "c1", "")); err != nil {
			return err
		}
		if err := tx.Enqueue(&model.ScoreOutbox{Network: "polkadot", UserID: 7, Reason: "first_comment", Delta: 2}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var records, outbox int64
	require.NoError(t, db.Model(&model.ActivityRecord{}).Count(&records).Error)
	require.NoError(t, db.Model(&model.ScoreOutbox{}).Count(&outbox).Error)
	assert.Zero(t, records)
	assert.Zero(t, outbox)
}

func TestClaimMarkerOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	var first, second bool
	require.NoError(t, repo.InTx(ctx, func(tx *ActivityTx) error {
		var err error
		first, err = tx.ClaimMarker("polkadot", model.KindCommented, 7, 42)
		return err
	}))
	require.NoError(t, repo.InTx(ctx, func(tx *ActivityTx) error {
		var err error
		second, err = tx.ClaimMarker("polkadot", model.KindCommented, 7, 42)
		return err
	}))

	assert.True(t, first)
	assert.False(t, second)

	// Release re-arms the claim.
	var released bool
	require.NoError(t, repo.InTx(ctx, func(tx *ActivityTx) error {
		var err error
		released, err = tx.ReleaseMarker("polkadot", model.KindCommented, 7, 42)
		return err
	}))
	assert.True(t, released)

	require.NoError(t, repo.InTx(ctx, func(tx *ActivityTx) error {
		var err error
		first, err = tx.ClaimMarker("polkadot", model.KindCommented, 7, 42)
		return err
	}))
	assert.True(t, first)

	// Releasing an absent marker reports false, gating score reversal.
	require.NoError(t, repo.InTx(ctx, func(tx *ActivityTx) error {
		var err error
		released, err = tx.ReleaseMarker("kusama", model.KindCommented, 7, 42)
		return err
	}))
	assert.False(t, released)
}

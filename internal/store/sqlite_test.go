package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signnatural/academy-cli/internal/model"
	"github.com/signnatural/academy-cli/internal/store"
	"github.com/signnatural/academy-cli/tests/testutil"
)

func TestSQLiteStore_CourseUpsertAndFilter(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	courses := []model.Course{
		{ID: "c1", Title: "Barrier Repair Basics", Level: "beginner", PriceCents: 9900, PublishedAt: published},
		{ID: "c2", Title: "Advanced Formulation", Level: "advanced", PriceCents: 24900, PublishedAt: published.AddDate(0, 1, 0)},
	}
	require.NoError(t, s.UpsertCourses(ctx, courses))

	// Upsert replaces on conflict.
	courses[0].Title = "Barrier Repair Fundamentals"
	require.NoError(t, s.UpsertCourses(ctx, courses[:1]))

	all, err := s.GetCourses(ctx, store.CourseFilter{SortBy: "published_at", SortDesc: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c2", all[0].ID)

	level := "beginner"
	beginners, err := s.GetCourses(ctx, store.CourseFilter{Level: &level})
	require.NoError(t, err)
	require.Len(t, beginners, 1)
	assert.Equal(t, "Barrier Repair Fundamentals", beginners[0].Title)

	q := "formulation"
	matched, err := s.GetCourses(ctx, store.CourseFilter{Query: &q})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "c2", matched[0].ID)
}

func TestSQLiteStore_UpcomingWorkshops(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.UpsertWorkshops(ctx, []model.Workshop{
		{ID: "w-past", Title: "Past Session", StartsAt: now.Add(-24 * time.Hour), Capacity: 10},
		{ID: "w-soon", Title: "Soon Session", StartsAt: now.Add(24 * time.Hour), Capacity: 10},
		{ID: "w-later", Title: "Later Session", StartsAt: now.Add(48 * time.Hour), Capacity: 10},
	}))

	upcoming, err := s.GetUpcomingWorkshops(ctx, 10)
	require.NoError(t, err)
	require.Len(t, upcoming, 2, "past workshops excluded")
	assert.Equal(t, "w-soon", upcoming[0].ID, "soonest first")

	limited, err := s.GetUpcomingWorkshops(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStore_BookingFilter(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.UpsertBookings(ctx, []model.Booking{
		{ID: "b1", Title: "Workshop A", Status: model.BookingConfirmed, ScheduledFor: now.Add(24 * time.Hour), CreatedAt: now},
		{ID: "b2", Title: "Workshop B", Status: model.BookingCancelled, ScheduledFor: now.Add(48 * time.Hour), CreatedAt: now},
		{ID: "b3", Title: "Workshop C", Status: model.BookingConfirmed, ScheduledFor: now.Add(-24 * time.Hour), CreatedAt: now},
	}))

	confirmed := model.BookingConfirmed
	upcoming, err := s.GetBookings(ctx, store.BookingFilter{
		Status:       &confirmed,
		UpcomingOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "b1", upcoming[0].ID)

	all, err := s.GetBookings(ctx, store.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

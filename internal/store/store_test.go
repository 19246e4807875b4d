package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threatscout/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ideas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleIdeas() []models.Idea {
	return []models.Idea{
		{
			Title:           "Honeypot log visualizer",
			Description:     "Dashboard for SSH honeypot captures.",
			InspirationLink: "https://example.com/article",
			Requirements:    []string{"Go", "SQLite"},
			Functionalities: []string{"ingest logs", "render charts"},
		},
		{
			Title:       "Phish kit detector",
			Description: "Scans mail attachments for known kits.",
		},
	}
}

func TestSaveIdeas_AssignsIDsAndRoundTrips(t *testing.T) {
	s := openTestStore(t)

	ids, err := s.SaveIdeas(sampleIdeas())
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Greater(t, ids[1], ids[0])

	got, err := s.IdeaByID(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Honeypot log visualizer", got.Title)
	assert.Equal(t, "https://example.com/article", got.InspirationLink)
	assert.Equal(t, []string{"Go", "SQLite"}, got.Requirements)
	assert.Equal(t, []string{"ingest logs", "render charts"}, got.Functionalities)
	assert.False(t, got.Implemented)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveIdeas_FillsDefaults(t *testing.T) {
	s := openTestStore(t)

	ids, err := s.SaveIdeas([]models.Idea{{}})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	got, err := s.IdeaByID(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Untitled", got.Title)
	assert.Equal(t, "No description", got.Description)
	assert.Empty(t, got.Requirements)
	assert.Empty(t, got.Functionalities)
}

func TestSaveIdeas_EmptyBatchIsNoop(t *testing.T) {
	s := openTestStore(t)

	ids, err := s.SaveIdeas(nil)
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestListIdeas_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SaveIdeas(sampleIdeas())
	require.NoError(t, err)

	ideas, err := s.ListIdeas(0, false)
	require.NoError(t, err)
	require.Len(t, ideas, 2)
	// Same created_at second for both rows; id breaks the tie.
	assert.Equal(t, "Phish kit detector", ideas[0].Title)
	assert.Equal(t, "Honeypot log visualizer", ideas[1].Title)
}

func TestListIdeas_LimitAndImplementedFilter(t *testing.T) {
	s := openTestStore(t)
	ids, err := s.SaveIdeas(sampleIdeas())
	require.NoError(t, err)
	require.NoError(t, s.MarkImplemented(ids[0]))

	limited, err := s.ListIdeas(1, false)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	implemented, err := s.ListIdeas(0, true)
	require.NoError(t, err)
	require.Len(t, implemented, 1)
	assert.Equal(t, ids[0], implemented[0].ID)
	assert.True(t, implemented[0].Implemented)
	assert.False(t, implemented[0].ImplementedAt.IsZero())
}

func TestIdeaByID_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.IdeaByID(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkImplemented(t *testing.T) {
	s := openTestStore(t)
	ids, err := s.SaveIdeas(sampleIdeas()[:1])
	require.NoError(t, err)

	require.NoError(t, s.MarkImplemented(ids[0]))

	got, err := s.IdeaByID(ids[0])
	require.NoError(t, err)
	assert.True(t, got.Implemented)
	assert.False(t, got.ImplementedAt.IsZero())

	// Second attempt finds nothing left to flip.
	assert.ErrorIs(t, s.MarkImplemented(ids[0]), ErrNotFound)
	assert.ErrorIs(t, s.MarkImplemented(99), ErrNotFound)
}

func TestMarkUnimplemented(t *testing.T) {
	s := openTestStore(t)
	ids, err := s.SaveIdeas(sampleIdeas()[:1])
	require.NoError(t, err)

	assert.ErrorIs(t, s.MarkUnimplemented(ids[0]), ErrNotFound)

	require.NoError(t, s.MarkImplemented(ids[0]))
	require.NoError(t, s.MarkUnimplemented(ids[0]))

	got, err := s.IdeaByID(ids[0])
	require.NoError(t, err)
	assert.False(t, got.Implemented)
	assert.True(t, got.ImplementedAt.IsZero())
}

func TestDeleteIdea(t *testing.T) {
	s := openTestStore(t)
	ids, err := s.SaveIdeas(sampleIdeas()[:1])
	require.NoError(t, err)

	require.NoError(t, s.DeleteIdea(ids[0]))
	_, err = s.IdeaByID(ids[0])
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteIdea(ids[0]), ErrNotFound)
}

func TestCounts(t *testing.T) {
	s := openTestStore(t)

	counts, err := s.Counts()
	require.NoError(t, err)
	assert.Equal(t, models.IdeaCounts{}, counts)

	ids, err := s.SaveIdeas(sampleIdeas())
	require.NoError(t, err)
	require.NoError(t, s.MarkImplemented(ids[0]))

	counts, err = s.Counts()
	require.NoError(t, err)
	assert.Equal(t, models.IdeaCounts{Total: 2, Implemented: 1, Unimplemented: 1}, counts)
}

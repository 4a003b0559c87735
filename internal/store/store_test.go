package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unveil/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverModernc, filepath.Join(t.TempDir(), "unveil.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestOpenMigrates(t *testing.T) {
	s := newTestStore(t)
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
	assert.Equal(t, DriverModernc, s.Driver())
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "unveil.db")

	s, err := Open("", path)
	require.NoError(t, err)
	require.NoError(t, s.RecordSearch(ctx, "acme", types.FilterCompany, true, 3))
	require.NoError(t, s.Close())

	s, err = Open(DriverModernc, path)
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.RecentSearches(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "acme", entries[0].Query)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("postgres", filepath.Join(t.TempDir(), "x.db"))
	assert.Error(t, err)
}

func TestOpenMattnDriver(t *testing.T) {
	s, err := Open(DriverMattn, filepath.Join(t.TempDir(), "cgo.db"))
	if err != nil {
		t.Skipf("sqlite3 driver unavailable (cgo disabled?): %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.RecordSearch(ctx, "bob", types.FilterName, false, 0))
	entries, err := s.RecentSearches(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Found)
}

func TestSearchHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.RecordSearch(ctx, "acme", types.FilterAll, true, 2))
	require.NoError(t, s.RecordSearch(ctx, "bob@scam.io", types.FilterEmail, false, 0))
	require.NoError(t, s.RecordSearch(ctx, "  acme ", types.FilterAll, true, 5))
	require.NoError(t, s.RecordSearch(ctx, "   ", types.FilterAll, false, 0))

	entries, err := s.RecentSearches(ctx, 10)
	require.NoError(t, err)

	want := []SearchEntry{
		{Query: "acme", Filter: types.FilterAll, Found: true, TotalResults: 5, SearchCount: 2},
		{Query: "bob@scam.io", Filter: types.FilterEmail, Found: false, TotalResults: 0, SearchCount: 1},
	}
	if diff := cmp.Diff(want, entries, cmpopts.IgnoreFields(SearchEntry{}, "ID", "SearchedAt")); diff != "" {
		t.Errorf("RecentSearches mismatch (-want +got):\n%s", diff)
	}

	limited, err := s.RecentSearches(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, s.ClearSearches(ctx))
	entries, err = s.RecentSearches(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := types.ReportRequest{
		Phone:         strPtr("555-123-4567"),
		Actions:       "Phone Scam",
		Description:   "Pretended to be from the bank fraud department.",
		ReporterEmail: "me@example.com",
		ReporterName:  "Me",
	}
	second := types.ReportRequest{
		Name:          strPtr("  "),
		Company:       strPtr("Shady LLC"),
		Actions:       "Investment Scam",
		Description:   "Promised 40% monthly returns on crypto.",
		ReporterEmail: "me@example.com",
		ReporterName:  "Me",
	}

	require.NoError(t, s.RecordReport(ctx, 11, first))
	require.NoError(t, s.RecordReport(ctx, 12, second))

	entries, err := s.Reports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(12), entries[0].CaseID)
	assert.Equal(t, "Shady LLC", entries[0].Subject)
	assert.Equal(t, "555-123-4567", entries[1].Subject)
	assert.WithinDuration(t, time.Now(), entries[0].SubmittedAt, time.Minute)
}

func TestReportSubject(t *testing.T) {
	assert.Equal(t, "(unnamed)", ReportSubject(types.ReportRequest{}))
	assert.Equal(t, "Jane", ReportSubject(types.ReportRequest{Name: strPtr("Jane"), Email: strPtr("j@x.io")}))
}

func TestVerification(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	v, err := s.LoadVerification(ctx)
	require.NoError(t, err)
	assert.Nil(t, v)

	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.SaveVerification(ctx, RememberedVerification{Email: "a@b.co", Token: "t1", VerifiedAt: at}))
	require.NoError(t, s.SaveVerification(ctx, RememberedVerification{Email: "c@d.co", Token: "t2", VerifiedAt: at}))

	v, err = s.LoadVerification(ctx)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "c@d.co", v.Email)
	assert.Equal(t, "t2", v.Token)
	assert.True(t, at.Equal(v.VerifiedAt))

	require.NoError(t, s.ClearVerification(ctx))
	v, err = s.LoadVerification(ctx)
	require.NoError(t, err)
	assert.Nil(t, v)
}

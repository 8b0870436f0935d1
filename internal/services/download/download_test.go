package download_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/beatstore/internal/ledger"
	"github.com/magabrotheeeer/beatstore/internal/metrics"
	"github.com/magabrotheeeer/beatstore/internal/models"
	"github.com/magabrotheeeer/beatstore/internal/services/beat"
	"github.com/magabrotheeeer/beatstore/internal/services/download"
	"github.com/magabrotheeeer/beatstore/internal/storage"
	"github.com/magabrotheeeer/beatstore/internal/tier"
)

type SubsMock struct {
	mock.Mock
}

func (m *SubsMock) GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

type BeatsMock struct {
	mock.Mock
}

func (m *BeatsMock) Get(ctx context.Context, id string) (*models.Beat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Beat), args.Error(1)
}

type LedgerMock struct {
	mock.Mock
}

func (m *LedgerMock) CountThisMonth(ctx context.Context, userID, subscriptionID string) (int, error) {
	args := m.Called(ctx, userID, subscriptionID)
	return args.Int(0), args.Error(1)
}

func (m *LedgerMock) HasDownloaded(ctx context.Context, userID, beatID, subscriptionID string) (bool, error) {
	args := m.Called(ctx, userID, beatID, subscriptionID)
	return args.Bool(0), args.Error(1)
}

func (m *LedgerMock) Record(ctx context.Context, userID, beatID, subscriptionID string, lt tier.LicenseType) (bool, error) {
	args := m.Called(ctx, userID, beatID, subscriptionID, lt)
	return args.Bool(0), args.Error(1)
}

func (m *LedgerMock) ListThisMonth(ctx context.Context, userID, subscriptionID string) ([]models.DownloadedBeat, error) {
	args := m.Called(ctx, userID, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DownloadedBeat), args.Error(1)
}

func (m *LedgerMock) ResetsAt() time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}

type CounterMock struct {
	mock.Mock
}

func (m *CounterMock) BeatDownloaded(ctx context.Context, beatID string) error {
	args := m.Called(ctx, beatID)
	return args.Error(0)
}

type RecorderMock struct {
	mock.Mock
}

func (m *RecorderMock) DownloadServed(lt tier.LicenseType, outcome string) {
	m.Called(lt, outcome)
}

func (m *RecorderMock) AnalyticsFailed() {
	m.Called()
}

func strPtr(s string) *string { return &s }

var (
	fullBeat = &models.Beat{
		ID:    "beat-1",
		Title: "Night Drive",
		Audio: "https://cdn/beat-1.mp3",
		WAV:   strPtr("https://cdn/beat-1.wav"),
		Stems: strPtr("https://cdn/beat-1.zip"),
	}
	noStemsBeat = &models.Beat{
		ID:    "beat-2",
		Audio: "https://cdn/beat-2.mp3",
		WAV:   strPtr("https://cdn/beat-2.wav"),
	}
	notFound = fmt.Errorf("storage: %w", storage.ErrNotFound)
)

// testCatalog содержит тарифы по умолчанию и тариф WAV на 5 битов.
func testCatalog(t *testing.T) *tier.Catalog {
	tiers := append(tier.Defaults(), tier.Tier{
		ID:       "wav5",
		Benefits: tier.Benefits{BeatsPerMonth: 5, LicenseType: tier.LicenseWAVLease},
	})
	c, err := tier.NewCatalog(tiers)
	require.NoError(t, err)
	return c
}

type fixture struct {
	subs     *SubsMock
	beats    *BeatsMock
	ledger   *LedgerMock
	counter  *CounterMock
	recorder *RecorderMock
	svc      *download.Service
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		subs:     new(SubsMock),
		beats:    new(BeatsMock),
		ledger:   new(LedgerMock),
		counter:  new(CounterMock),
		recorder: new(RecorderMock),
	}
	f.recorder.On("DownloadServed", mock.Anything, mock.Anything).Maybe()
	f.recorder.On("AnalyticsFailed").Maybe()
	f.svc = download.New(download.Deps{
		Subscriptions: f.subs,
		Beats:         f.beats,
		Ledger:        f.ledger,
		Catalog:       testCatalog(t),
		Counter:       f.counter,
		Metrics:       f.recorder,
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func (f *fixture) activeSub(tierID string) {
	f.subs.On("GetActiveSubscription", mock.Anything, "u1").
		Return(&models.Subscription{ID: "sub-1", UserID: "u1", TierID: tierID, Status: models.StatusActive}, nil)
}

func TestDownload_Unauthorized(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Download(context.Background(), "", "beat-1")
	assert.ErrorIs(t, err, download.ErrUnauthorized)
	f.subs.AssertNotCalled(t, "GetActiveSubscription", mock.Anything, mock.Anything)
}

func TestDownload_NoActiveSubscription(t *testing.T) {
	f := newFixture(t)
	f.subs.On("GetActiveSubscription", mock.Anything, "u1").Return(nil, notFound)

	_, err := f.svc.Download(context.Background(), "u1", "beat-1")
	assert.ErrorIs(t, err, download.ErrNoActiveSubscription)
	f.recorder.AssertCalled(t, "DownloadServed", tier.LicenseType(""), metrics.OutcomeNoSubscription)
	f.beats.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestDownload_BeatNotFound(t *testing.T) {
	f := newFixture(t)
	f.activeSub("pro")
	f.beats.On("Get", mock.Anything, "missing").Return(nil, fmt.Errorf("services.beat.Get: %w", beat.ErrNotFound))

	_, err := f.svc.Download(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, download.ErrBeatNotFound)
}

func TestDownload_ReDownloadDoesNotConsumeQuota(t *testing.T) {
	f := newFixture(t)
	f.activeSub("wav5")
	f.beats.On("Get", mock.Anything, "beat-1").Return(fullBeat, nil)
	f.ledger.On("HasDownloaded", mock.Anything, "u1", "beat-1", "sub-1").Return(true, nil)
	f.ledger.On("CountThisMonth", mock.Anything, "u1", "sub-1").Return(5, nil)

	m, err := f.svc.Download(context.Background(), "u1", "beat-1")
	require.NoError(t, err)

	assert.True(t, m.WasReDownload)
	assert.Equal(t, tier.Finite(0), m.Remaining)
	assert.Equal(t, "https://cdn/beat-1.mp3", m.MP3)
	require.NotNil(t, m.WAV)
	assert.Nil(t, m.Stems)
	f.ledger.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.counter.AssertNotCalled(t, "BeatDownloaded", mock.Anything, mock.Anything)
}

func TestDownload_QuotaExceeded(t *testing.T) {
	f := newFixture(t)
	f.activeSub("wav5")
	f.beats.On("Get", mock.Anything, "beat-1").Return(fullBeat, nil)
	f.ledger.On("HasDownloaded", mock.Anything, "u1", "beat-1", "sub-1").Return(false, nil)
	f.ledger.On("CountThisMonth", mock.Anything, "u1", "sub-1").Return(5, nil)

	_, err := f.svc.Download(context.Background(), "u1", "beat-1")

	var qe *download.QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, 5, qe.Used)
	assert.Equal(t, tier.Finite(5), qe.Limit)
	f.ledger.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.recorder.AssertCalled(t, "DownloadServed", tier.LicenseWAVLease, metrics.OutcomeQuotaExceeded)
}

func TestDownload_UnlimitedNeverExhausted(t *testing.T) {
	f := newFixture(t)
	f.activeSub("unlimited")
	f.beats.On("Get", mock.Anything, "beat-1").Return(fullBeat, nil)
	f.ledger.On("HasDownloaded", mock.Anything, "u1", "beat-1", "sub-1").Return(false, nil)
	f.ledger.On("CountThisMonth", mock.Anything, "u1", "sub-1").Return(500, nil)
	f.ledger.On("Record", mock.Anything, "u1", "beat-1", "sub-1", tier.LicensePremiumUnlimited).Return(true, nil).Once()
	f.counter.On("BeatDownloaded", mock.Anything, "beat-1").Return(nil).Once()

	m, err := f.svc.Download(context.Background(), "u1", "beat-1")
	require.NoError(t, err)

	assert.False(t, m.WasReDownload)
	assert.True(t, m.Remaining.IsUnlimited())
	assert.Equal(t, tier.LicensePremiumUnlimited, m.LicenseType)
	require.NotNil(t, m.Stems)
	assert.Equal(t, "https://cdn/beat-1.zip", *m.Stems)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"download_url": "https://cdn/beat-1.mp3",
		"wav": "https://cdn/beat-1.wav",
		"stems": "https://cdn/beat-1.zip",
		"license_type": "PREMIUM_UNLIMITED",
		"remaining": "unlimited",
		"was_re_download": false
	}`, string(b))

	f.ledger.AssertExpectations(t)
	f.counter.AssertExpectations(t)
	f.recorder.AssertCalled(t, "DownloadServed", tier.LicensePremiumUnlimited, metrics.OutcomeNew)
}

func TestDownload_FiniteRemainingAfterCommit(t *testing.T) {
	f := newFixture(t)
	f.activeSub("basic")
	f.beats.On("Get", mock.Anything, "beat-1").Return(fullBeat, nil)
	f.ledger.On("HasDownloaded", mock.Anything, "u1", "beat-1", "sub-1").Return(false, nil)
	f.ledger.On("CountThisMonth", mock.Anything, "u1", "sub-1").Return(3, nil)
	f.ledger.On("Record", mock.Anything, "u1", "beat-1", "sub-1", tier.LicenseMP3Lease).Return(true, nil).Once()
	f.counter.On("BeatDownloaded", mock.Anything, "beat-1").Return(nil).Once()

	m, err := f.svc.Download(context.Background(), "u1", "beat-1")
	require.NoError(t, err)

	assert.Equal(t, tier.Finite(1), m.Remaining)
	assert.Nil(t, m.WAV, "mp3 lease never includes wav")
	assert.Nil(t, m.Stems)
}

func TestDownload_MissingStemsOmittedForPremium(t *testing.T) {
	f := newFixture(t)
	f.activeSub("unlimited")
	f.beats.On("Get", mock.Anything, "beat-2").Return(noStemsBeat, nil)
	f.ledger.On("HasDownloaded", mock.Anything, "u1", "beat-2", "sub-1").Return(false, nil)
	f.ledger.On("CountThisMonth", mock.Anything, "u1", "sub-1").Return(0, nil)
	f.ledger.On("Record", mock.Anything, "u1", "beat-2", "sub-1", tier.LicensePremiumUnlimited).Return(true, nil)
	f.counter.On("BeatDownloaded", mock.Anything, "beat-2").Return(nil)

	m, err := f.svc.Download(context.Background(), "u1", "beat-2")
	require.NoError(t, err)
	assert.Nil(t, m.Stems)
	assert.NotNil(t, m.WAV)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "stems")
}

func TestDownload_ConflictServedAsReDownload(t *testing.T) {
	f := newFixture(t)
	f.activeSub("pro")
	f.beats.On("Get", mock.Anything, "beat-1").Return(fullBeat, nil)
	f.ledger.On("HasDownloaded", mock.Anything, "u1", "beat-1", "sub-1").Return(false, nil)
	f.ledger.On("CountThisMonth", mock.Anything, "u1", "sub-1").Return(2, nil)
	f.ledger.On("Record", mock.Anything, "u1", "beat-1", "sub-1", tier.LicenseWAVLease).Return(false, nil).Once()

	m, err := f.svc.Download(context.Background(), "u1", "beat-1")
	require.NoError(t, err)
	assert.True(t, m.WasReDownload)
	assert.Equal(t, tier.Finite(13), m.Remaining)
	f.counter.AssertNotCalled(t, "BeatDownloaded", mock.Anything, mock.Anything)
}

func TestDownload_AnalyticsFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.activeSub("pro")
	f.beats.On("Get", mock.Anything, "beat-1").Return(fullBeat, nil)
	f.ledger.On("HasDownloaded", mock.Anything, "u1", "beat-1", "sub-1").Return(false, nil)
	f.ledger.On("CountThisMonth", mock.Anything, "u1", "sub-1").Return(0, nil)
	f.ledger.On("Record", mock.Anything, "u1", "beat-1", "sub-1", tier.LicenseWAVLease).Return(true, nil)
	f.counter.On("BeatDownloaded", mock.Anything, "beat-1").Return(errors.New("broker down")).Once()

	m, err := f.svc.Download(context.Background(), "u1", "beat-1")
	require.NoError(t, err)
	assert.Equal(t, tier.Finite(14), m.Remaining)
	f.recorder.AssertCalled(t, "AnalyticsFailed")
}

func TestDownload_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.activeSub("pro")
	f.beats.On("Get", mock.Anything, "beat-1").Return(fullBeat, nil)
	f.ledger.On("HasDownloaded", mock.Anything, "u1", "beat-1", "sub-1").Return(false, errors.New("db down"))

	_, err := f.svc.Download(context.Background(), "u1", "beat-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, download.ErrNoActiveSubscription)
	assert.NotErrorIs(t, err, download.ErrBeatNotFound)
}

func TestDownload_UnknownTierFailsClosed(t *testing.T) {
	f := newFixture(t)
	f.activeSub("retired")
	f.beats.On("Get", mock.Anything, "beat-1").Return(fullBeat, nil)
	f.ledger.On("HasDownloaded", mock.Anything, "u1", "beat-1", "sub-1").Return(false, nil)
	f.ledger.On("CountThisMonth", mock.Anything, "u1", "sub-1").Return(0, nil)

	_, err := f.svc.Download(context.Background(), "u1", "beat-1")
	var qe *download.QuotaExceededError
	assert.ErrorAs(t, err, &qe)
}

// memStore — журнал загрузок в памяти с уникальностью тройки.
type memStore struct {
	mu      sync.Mutex
	rows    []models.SubscriptionDownload
	creates int
}

func (s *memStore) CountDownloads(_ context.Context, userID, subID string, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if r.UserID == userID && r.SubscriptionID == subID && !r.DownloadedAt.Before(from) && r.DownloadedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) HasDownloaded(_ context.Context, userID, beatID, subID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.UserID == userID && r.BeatID == beatID && r.SubscriptionID == subID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateDownload(_ context.Context, d models.SubscriptionDownload) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	for _, r := range s.rows {
		if r.UserID == d.UserID && r.BeatID == d.BeatID && r.SubscriptionID == d.SubscriptionID {
			return false, nil
		}
	}
	s.rows = append(s.rows, d)
	return true, nil
}

func (s *memStore) ListDownloads(context.Context, string, string, time.Time, time.Time) ([]models.DownloadedBeat, error) {
	return nil, nil
}

func TestDownload_RepeatedCallsRecordOnce(t *testing.T) {
	store := &memStore{}
	clock := time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)
	l := ledger.New(store, time.UTC).WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	subs := new(SubsMock)
	subs.On("GetActiveSubscription", mock.Anything, "u1").
		Return(&models.Subscription{ID: "sub-1", TierID: "basic", Status: models.StatusActive}, nil)
	beats := new(BeatsMock)
	beats.On("Get", mock.Anything, "beat-1").Return(fullBeat, nil)
	counter := new(CounterMock)
	counter.On("BeatDownloaded", mock.Anything, "beat-1").Return(nil).Once()

	svc := download.New(download.Deps{
		Subscriptions: subs,
		Beats:         beats,
		Ledger:        l,
		Catalog:       tier.MustDefaultCatalog(),
		Counter:       counter,
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	first, err := svc.Download(context.Background(), "u1", "beat-1")
	require.NoError(t, err)
	assert.False(t, first.WasReDownload)
	assert.Equal(t, tier.Finite(4), first.Remaining)

	for i := 0; i < 3; i++ {
		again, err := svc.Download(context.Background(), "u1", "beat-1")
		require.NoError(t, err)
		assert.True(t, again.WasReDownload)
		assert.Equal(t, tier.Finite(4), again.Remaining)
	}

	used, err := l.CountThisMonth(context.Background(), "u1", "sub-1")
	require.NoError(t, err)
	assert.Equal(t, 1, used)
	assert.Equal(t, 1, store.creates)
	counter.AssertExpectations(t)
}

func TestStatus_NoSubscription(t *testing.T) {
	f := newFixture(t)
	f.subs.On("GetActiveSubscription", mock.Anything, "u1").Return(nil, notFound)

	st, err := f.svc.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, st.HasSubscription)
	assert.Empty(t, st.Downloads)
	assert.Equal(t, tier.Finite(0), st.Remaining)
}

func TestStatus_ActiveSubscription(t *testing.T) {
	f := newFixture(t)
	f.activeSub("pro")
	f.ledger.On("CountThisMonth", mock.Anything, "u1", "sub-1").Return(4, nil)
	f.ledger.On("ListThisMonth", mock.Anything, "u1", "sub-1").Return([]models.DownloadedBeat{
		{BeatID: "beat-1", Title: "Night Drive", LicenseType: tier.LicenseWAVLease},
	}, nil)

	st, err := f.svc.Status(context.Background(), "u1")
	require.NoError(t, err)

	assert.True(t, st.HasSubscription)
	require.NotNil(t, st.Tier)
	assert.Equal(t, "pro", st.Tier.ID)
	assert.Equal(t, 4, st.DownloadsUsed)
	assert.Equal(t, tier.Finite(11), st.Remaining)
	assert.Equal(t, tier.Finite(15), st.Limit)
	require.NotNil(t, st.ResetsAt)
	assert.Len(t, st.Downloads, 1)
}

func TestStatus_Unauthorized(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Status(context.Background(), "")
	assert.ErrorIs(t, err, download.ErrUnauthorized)
}

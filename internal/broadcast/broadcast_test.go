package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
	"github.com/astrorabbit/astro-bot/internal/platform/config"
)

type fakeStore struct {
	listFn   func(ctx context.Context) ([]dbpkg.Company, error)
	settings map[string]string
}

func (s *fakeStore) ListDailySubscribers(ctx context.Context) ([]dbpkg.Company, error) {
	return s.listFn(ctx)
}

func (s *fakeStore) GetSetting(_ context.Context, key string, target interface{}) error {
	if val, ok := s.settings[key]; ok {
		*target.(*string) = val
	}

	return nil
}

func (s *fakeStore) SaveSetting(_ context.Context, key string, value interface{}) error {
	if s.settings == nil {
		s.settings = make(map[string]string)
	}

	s.settings[key] = value.(string)

	return nil
}

type fakeForecaster struct {
	dailyFn func(ctx context.Context, company *dbpkg.Company) (string, error)
}

func (f *fakeForecaster) DailyForecast(ctx context.Context, company *dbpkg.Company) (string, error) {
	return f.dailyFn(ctx, company)
}

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, msg)
	}

	return tgbotapi.Message{}, s.err
}

func newScheduler(t *testing.T, store Store, forecaster Forecaster, sender Sender) *Scheduler {
	t.Helper()

	nop := zerolog.Nop()

	s, err := New(&config.Config{
		DailyForecastTime: "09:00",
		DailyForecastTZ:   "Europe/Moscow",
		GenerationTimeout: time.Second,
	}, store, forecaster, sender, &nop)
	require.NoError(t, err)

	return s
}

func TestNewRejectsBadSchedule(t *testing.T) {
	nop := zerolog.Nop()

	tests := []struct {
		name string
		at   string
		tz   string
	}{
		{name: "bad timezone", at: "09:00", tz: "Mars/Olympus"},
		{name: "not a time", at: "morning", tz: "Europe/Moscow"},
		{name: "hour out of range", at: "25:00", tz: "Europe/Moscow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&config.Config{DailyForecastTime: tt.at, DailyForecastTZ: tt.tz}, nil, nil, nil, &nop)
			assert.Error(t, err)
		})
	}
}

func TestNextRun(t *testing.T) {
	s := newScheduler(t, nil, nil, nil)

	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before send time runs today",
			now:  time.Date(2025, time.March, 10, 7, 30, 0, 0, moscow),
			want: time.Date(2025, time.March, 10, 9, 0, 0, 0, moscow),
		},
		{
			name: "after send time runs tomorrow",
			now:  time.Date(2025, time.March, 10, 12, 0, 0, 0, moscow),
			want: time.Date(2025, time.March, 11, 9, 0, 0, 0, moscow),
		},
		{
			name: "exactly at send time runs tomorrow",
			now:  time.Date(2025, time.March, 10, 9, 0, 0, 0, moscow),
			want: time.Date(2025, time.March, 11, 9, 0, 0, 0, moscow),
		},
		{
			name: "other timezone is converted",
			now:  time.Date(2025, time.March, 10, 5, 0, 0, 0, time.UTC), // 08:00 in Moscow
			want: time.Date(2025, time.March, 10, 9, 0, 0, 0, moscow),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(s.NextRun(tt.now)))
		})
	}
}

func TestBroadcastSendsToEverySubscriber(t *testing.T) {
	companies := []dbpkg.Company{
		{ID: "c1", UserID: 10, Name: "Аврора"},
		{ID: "c2", UserID: 20, Name: "Вектор"},
	}

	store := &fakeStore{listFn: func(_ context.Context) ([]dbpkg.Company, error) {
		return companies, nil
	}}
	forecaster := &fakeForecaster{dailyFn: func(_ context.Context, company *dbpkg.Company) (string, error) {
		return "прогноз для " + company.Name, nil
	}}
	sender := &fakeSender{}

	s := newScheduler(t, store, forecaster, sender)
	s.Broadcast(context.Background())

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(10), sender.sent[0].ChatID)
	assert.Equal(t, "прогноз для Аврора", sender.sent[0].Text)
	assert.Equal(t, int64(20), sender.sent[1].ChatID)
	assert.Equal(t, "прогноз для Вектор", sender.sent[1].Text)
}

func TestBroadcastRunsOncePerDay(t *testing.T) {
	store := &fakeStore{listFn: func(_ context.Context) ([]dbpkg.Company, error) {
		return []dbpkg.Company{{ID: "c1", UserID: 10, Name: "Аврора"}}, nil
	}}
	forecaster := &fakeForecaster{dailyFn: func(_ context.Context, _ *dbpkg.Company) (string, error) {
		return "прогноз", nil
	}}
	sender := &fakeSender{}

	s := newScheduler(t, store, forecaster, sender)

	s.Broadcast(context.Background())
	s.Broadcast(context.Background())

	assert.Len(t, sender.sent, 1)
}

func TestBroadcastContinuesAfterFailure(t *testing.T) {
	companies := []dbpkg.Company{
		{ID: "c1", UserID: 10, Name: "Аврора"},
		{ID: "c2", UserID: 20, Name: "Вектор"},
	}

	store := &fakeStore{listFn: func(_ context.Context) ([]dbpkg.Company, error) {
		return companies, nil
	}}
	forecaster := &fakeForecaster{dailyFn: func(_ context.Context, company *dbpkg.Company) (string, error) {
		if company.UserID == 10 {
			return "", errors.New("model unavailable")
		}

		return "прогноз", nil
	}}
	sender := &fakeSender{}

	s := newScheduler(t, store, forecaster, sender)
	s.Broadcast(context.Background())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(20), sender.sent[0].ChatID)
}

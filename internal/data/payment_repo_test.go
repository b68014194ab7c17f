package data

import (
	"context"
	"testing"
	"time"

	"github.com/GustavoAl5317/momentusi-sub000/internal/biz"
	"github.com/GustavoAl5317/momentusi-sub000/internal/constants"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestData(t *testing.T) (*Data, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return &Data{db: gdb}, mock
}

func paymentColumns() []string {
	return []string{
		"payment_id", "timeline_id", "gateway_payment_id", "plan_type",
		"amount_cents", "status", "payer_email", "created_at", "updated_at",
	}
}

func TestPaymentRepoGetLatestByTimeline(t *testing.T) {
	d, mock := newTestData(t)
	repo := NewPaymentRepo(d, log.DefaultLogger)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT \\* FROM `payments` WHERE timeline_id = \\? ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows(paymentColumns()).
			AddRow(7, "tl-1", "987654", constants.PlanComplete, 3990, constants.PaymentStatusPending, "a@b.com", now, now))

	p, err := repo.GetLatestPaymentByTimeline(context.Background(), "tl-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, uint64(7), p.ID)
	assert.Equal(t, "987654", p.GatewayID)
	assert.Equal(t, int64(3990), p.Amount)
	assert.Equal(t, constants.PaymentStatusPending, p.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepoGetLatestByTimelineMissing(t *testing.T) {
	d, mock := newTestData(t)
	repo := NewPaymentRepo(d, log.DefaultLogger)

	mock.ExpectQuery("SELECT \\* FROM `payments` WHERE timeline_id = \\?").
		WillReturnRows(sqlmock.NewRows(paymentColumns()))

	p, err := repo.GetLatestPaymentByTimeline(context.Background(), "tl-none")
	require.NoError(t, err)
	assert.Nil(t, p)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepoCreate(t *testing.T) {
	d, mock := newTestData(t)
	repo := NewPaymentRepo(d, log.DefaultLogger)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `payments`").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	p := &biz.Payment{
		TimelineID: "tl-1",
		GatewayID:  "pref-1",
		Plan:       constants.PlanEssential,
		Amount:     1990,
		Status:     constants.PaymentStatusPending,
		PayerEmail: "a@b.com",
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.CreatePayment(context.Background(), p))
	assert.Equal(t, uint64(42), p.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepoUpdate(t *testing.T) {
	d, mock := newTestData(t)
	repo := NewPaymentRepo(d, log.DefaultLogger)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `payments` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdatePayment(context.Background(), &biz.Payment{
		ID:         7,
		TimelineID: "tl-1",
		GatewayID:  "987654",
		Status:     constants.PaymentStatusSucceeded,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepoHasSucceeded(t *testing.T) {
	d, mock := newTestData(t)
	repo := NewPaymentRepo(d, log.DefaultLogger)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `payments` WHERE timeline_id = \\? AND status = \\?").
		WithArgs("tl-1", constants.PaymentStatusSucceeded).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	ok, err := repo.HasSucceededPayment(context.Background(), "tl-1")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `payments`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))

	ok, err = repo.HasSucceededPayment(context.Background(), "tl-2")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepoListStalePending(t *testing.T) {
	d, mock := newTestData(t)
	repo := NewPaymentRepo(d, log.DefaultLogger)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT \\* FROM `payments` WHERE status = \\? AND created_at < \\? ORDER BY created_at ASC").
		WillReturnRows(sqlmock.NewRows(paymentColumns()).
			AddRow(1, "tl-1", "pref-1", constants.PlanEssential, 1990, constants.PaymentStatusPending, "", now.Add(-time.Hour), now).
			AddRow(2, "tl-2", "pref-2", constants.PlanComplete, 3990, constants.PaymentStatusPending, "", now.Add(-30*time.Minute), now))

	out, err := repo.ListStalePending(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "tl-1", out[0].TimelineID)
	assert.Equal(t, "tl-2", out[1].TimelineID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// repos called inside Exec must join the surrounding transaction instead of
// opening their own.
func TestExecSharesTransaction(t *testing.T) {
	d, mock := newTestData(t)
	repo := NewPaymentRepo(d, log.DefaultLogger)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `payments` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `timelines` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := d.Exec(context.Background(), func(ctx context.Context) error {
		if err := repo.UpdatePayment(ctx, &biz.Payment{ID: 7, Status: constants.PaymentStatusSucceeded}); err != nil {
			return err
		}
		return d.DB(ctx).Exec("UPDATE `timelines` SET is_published = ? WHERE timeline_id = ?", true, "tl-1").Error
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package discount

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDiscountRepo struct {
	discount *Discount
	findErr  error

	usage     int
	userUsage int
	countErr  error

	inserted           []Usage
	findForUpdateCalls int
}

func (m *mockDiscountRepo) FindByCode(_ context.Context, _ string) (*Discount, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.discount, nil
}

func (m *mockDiscountRepo) FindByCodeForUpdate(ctx context.Context, code string) (*Discount, error) {
	m.findForUpdateCalls++
	return m.FindByCode(ctx, code)
}

func (m *mockDiscountRepo) CountUsage(_ context.Context, _ int64) (int, error) {
	return m.usage, m.countErr
}

func (m *mockDiscountRepo) CountUserUsage(_ context.Context, _, _ int64) (int, error) {
	return m.userUsage, m.countErr
}

func (m *mockDiscountRepo) InsertUsage(_ context.Context, u Usage) error {
	m.inserted = append(m.inserted, u)
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newTestEngine(repo *mockDiscountRepo, now time.Time) *Engine {
	e := NewEngine(repo)
	e.now = func() time.Time { return now }
	return e
}

func TestValidateAndGet(t *testing.T) {
	fixedNow := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := fixedNow.Add(-24 * time.Hour)
	future := fixedNow.Add(24 * time.Hour)

	valid := func() *Discount {
		return &Discount{
			ID:       1,
			Code:     "SAVE10",
			Type:     TypeAmount,
			Percent:  decPtr("10"),
			IsActive: true,
		}
	}

	tests := []struct {
		name        string
		repo        *mockDiscountRepo
		orderAmount string
		wantErr     error
	}{
		{
			name:        "valid code passes",
			repo:        &mockDiscountRepo{discount: valid()},
			orderAmount: "100",
		},
		{
			name:        "unknown code",
			repo:        &mockDiscountRepo{findErr: ErrNotFound},
			orderAmount: "100",
			wantErr:     ErrNotFound,
		},
		{
			name: "inactive",
			repo: func() *mockDiscountRepo {
				d := valid()
				d.IsActive = false
				return &mockDiscountRepo{discount: d}
			}(),
			orderAmount: "100",
			wantErr:     ErrInactive,
		},
		{
			name: "not started yet",
			repo: func() *mockDiscountRepo {
				d := valid()
				d.StartDate = &future
				return &mockDiscountRepo{discount: d}
			}(),
			orderAmount: "100",
			wantErr:     ErrExpired,
		},
		{
			name: "already ended",
			repo: func() *mockDiscountRepo {
				d := valid()
				d.EndDate = &past
				return &mockDiscountRepo{discount: d}
			}(),
			orderAmount: "100",
			wantErr:     ErrExpired,
		},
		{
			name: "order below minimum",
			repo: func() *mockDiscountRepo {
				d := valid()
				d.MinOrderAmount = dec("200")
				return &mockDiscountRepo{discount: d}
			}(),
			orderAmount: "199.99",
			wantErr:     ErrMinOrderNotMet,
		},
		{
			name: "aggregate usage limit reached",
			repo: func() *mockDiscountRepo {
				d := valid()
				d.UsageLimit = 5
				return &mockDiscountRepo{discount: d, usage: 5}
			}(),
			orderAmount: "100",
			wantErr:     ErrUsageLimitReached,
		},
		{
			name: "per-user usage limit reached",
			repo: func() *mockDiscountRepo {
				d := valid()
				d.UserUsageLimit = 1
				return &mockDiscountRepo{discount: d, userUsage: 1}
			}(),
			orderAmount: "100",
			wantErr:     ErrUserUsageLimitReached,
		},
		{
			name: "both rules set is misconfigured",
			repo: func() *mockDiscountRepo {
				d := valid()
				d.ReduceAmount = decPtr("5")
				return &mockDiscountRepo{discount: d}
			}(),
			orderAmount: "100",
			wantErr:     ErrMisconfigured,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(tt.repo, fixedNow)

			d, err := e.ValidateAndGet(context.Background(), "SAVE10", 42, dec(tt.orderAmount))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "SAVE10", d.Code)
			assert.Equal(t, 1, tt.repo.findForUpdateCalls, "lookup must take the row lock")
		})
	}
}

func TestValidateAndGet_UsageLimitBoundary(t *testing.T) {
	fixedNow := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockDiscountRepo{
		discount: &Discount{
			ID:         1,
			Code:       "LAST",
			Type:       TypeAmount,
			Percent:    decPtr("10"),
			IsActive:   true,
			UsageLimit: 5,
		},
		usage: 4,
	}
	e := newTestEngine(repo, fixedNow)

	// One slot left: the holder of the row lock still gets it.
	_, err := e.ValidateAndGet(context.Background(), "LAST", 42, dec("100"))
	require.NoError(t, err)
}

func TestValidateAndGet_FilterShortCircuits(t *testing.T) {
	repo := &mockDiscountRepo{discount: &Discount{Code: "KNOWN"}}
	e := newTestEngine(repo, time.Now())
	e.UseCodeFilter(NewCodeFilter([]string{"KNOWN"}))

	_, err := e.ValidateAndGet(context.Background(), "DEFINITELY-NOT-THERE", 42, dec("100"))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, repo.findForUpdateCalls, "filtered code must not hit the repository")
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name        string
		discount    *Discount
		orderAmount string
		shippingFee string
		wantAmount  string
		wantShip    string
	}{
		{
			name:        "percent off subtotal",
			discount:    &Discount{Type: TypeAmount, Percent: decPtr("10")},
			orderAmount: "250",
			shippingFee: "30",
			wantAmount:  "25",
			wantShip:    "0",
		},
		{
			name:        "fixed amount off subtotal",
			discount:    &Discount{Type: TypeAmount, ReduceAmount: decPtr("40")},
			orderAmount: "250",
			shippingFee: "30",
			wantAmount:  "40",
			wantShip:    "0",
		},
		{
			name:        "fixed amount capped at subtotal",
			discount:    &Discount{Type: TypeAmount, ReduceAmount: decPtr("400")},
			orderAmount: "250",
			shippingFee: "30",
			wantAmount:  "250",
			wantShip:    "0",
		},
		{
			name:        "percent off shipping",
			discount:    &Discount{Type: TypeShip, Percent: decPtr("50")},
			orderAmount: "250",
			shippingFee: "30",
			wantAmount:  "0",
			wantShip:    "15",
		},
		{
			name:        "fixed shipping discount capped at fee",
			discount:    &Discount{Type: TypeShip, ReduceAmount: decPtr("100")},
			orderAmount: "250",
			shippingFee: "30",
			wantAmount:  "0",
			wantShip:    "30",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(&mockDiscountRepo{})

			v, err := e.Compute(tt.discount, dec(tt.orderAmount), dec(tt.shippingFee))
			require.NoError(t, err)
			assert.True(t, v.AmountOff.Equal(dec(tt.wantAmount)), "AmountOff = %s", v.AmountOff)
			assert.True(t, v.ShipOff.Equal(dec(tt.wantShip)), "ShipOff = %s", v.ShipOff)
		})
	}
}

func TestCompute_Misconfigured(t *testing.T) {
	e := NewEngine(&mockDiscountRepo{})

	_, err := e.Compute(&Discount{Type: TypeAmount}, dec("100"), dec("30"))
	require.ErrorIs(t, err, ErrMisconfigured)
}

func TestRecordUsage(t *testing.T) {
	fixedNow := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockDiscountRepo{}
	e := newTestEngine(repo, fixedNow)

	err := e.RecordUsage(context.Background(), &Discount{ID: 9, Code: "SAVE10"}, 42, 1001)
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, Usage{DiscountID: 9, UserID: 42, OrderID: 1001, UsedAt: fixedNow}, repo.inserted[0])
}

func TestCodeFilterRoundTrip(t *testing.T) {
	f := NewCodeFilter([]string{"save10", "FREESHIP"})

	assert.True(t, f.MayContain("SAVE10"), "lookups are case-insensitive")
	assert.True(t, f.MayContain("freeship"))
	assert.False(t, f.MayContain("NOPE-123456"))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	restored, err := ReadCodeFilter(&buf)
	require.NoError(t, err)
	assert.True(t, restored.MayContain("SAVE10"))
	assert.False(t, restored.MayContain("NOPE-123456"))
}

func TestDiscountValidate(t *testing.T) {
	require.NoError(t, (&Discount{Type: TypeAmount, Percent: decPtr("10")}).Validate())
	require.NoError(t, (&Discount{Type: TypeShip, ReduceAmount: decPtr("30")}).Validate())

	require.ErrorIs(t, (&Discount{Type: TypeAmount}).Validate(), ErrMisconfigured)
	require.ErrorIs(t, (&Discount{Type: TypeAmount, Percent: decPtr("10"), ReduceAmount: decPtr("5")}).Validate(), ErrMisconfigured)
	require.ErrorIs(t, (&Discount{Type: TypeAmount, Percent: decPtr("101")}).Validate(), ErrMisconfigured)
	require.ErrorIs(t, (&Discount{Type: "BOGUS", Percent: decPtr("10")}).Validate(), ErrMisconfigured)
}

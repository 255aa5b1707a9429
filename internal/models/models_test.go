package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPromoCodeApply(t *testing.T) {
	cases := []struct {
		name  string
		promo PromoCode
		price string
		want  string
	}{
		{"percentage", PromoCode{DiscountType: DiscountPercentage, DiscountValue: dec("25")}, "80.00", "60"},
		{"percentage rounds", PromoCode{DiscountType: DiscountPercentage, DiscountValue: dec("33")}, "9.99", "6.69"},
		{"percentage capped at 100", PromoCode{DiscountType: DiscountPercentage, DiscountValue: dec("150")}, "50", "0"},
		{"fixed", PromoCode{DiscountType: DiscountFixed, DiscountValue: dec("15.50")}, "100", "84.5"},
		{"fixed never below zero", PromoCode{DiscountType: DiscountFixed, DiscountValue: dec("200")}, "100", "0"},
		{"unknown type", PromoCode{DiscountType: "BOGUS", DiscountValue: dec("10")}, "100", "100"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.promo.Apply(dec(tc.price))
			assert.True(t, got.Equal(dec(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestPromoCodeUsable(t *testing.T) {
	now := time.Now()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	assert.True(t, (&PromoCode{}).Usable(now))
	assert.True(t, (&PromoCode{ExpiresAt: &future, MaxUses: 2, CurrentUses: 1}).Usable(now))
	assert.False(t, (&PromoCode{ExpiresAt: &past}).Usable(now))
	assert.False(t, (&PromoCode{ExpiresAt: &now}).Usable(now))
	assert.False(t, (&PromoCode{MaxUses: 2, CurrentUses: 2}).Usable(now))
}

func TestNormalizePromoCode(t *testing.T) {
	assert.Equal(t, "SPRING10", NormalizePromoCode("  spring10 "))
}

func TestPurchaseStatusTransitions(t *testing.T) {
	allowed := map[PurchaseStatus][]PurchaseStatus{
		PurchasePending:   {PurchaseCompleted, PurchaseFailed},
		PurchaseCompleted: {PurchaseRefunded},
	}
	all := []PurchaseStatus{PurchasePending, PurchaseCompleted, PurchaseFailed, PurchaseRefunded}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestCourseStatusValid(t *testing.T) {
	assert.True(t, StatusDraft.Valid())
	assert.True(t, StatusArchived.Valid())
	assert.False(t, CourseStatus("DELETED").Valid())
}

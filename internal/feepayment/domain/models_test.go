package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcademicMonthSlot(t *testing.T) {
	cases := map[int]int{4: 0, 5: 1, 12: 8, 1: 9, 3: 11}
	for month, want := range cases {
		slot, err := AcademicMonthSlot(month)
		require.NoError(t, err)
		assert.Equal(t, want, slot, "month %d", month)
		assert.Equal(t, month, SlotMonth(slot))
	}

	for _, month := range []int{0, 13, -1} {
		_, err := AcademicMonthSlot(month)
		assert.ErrorIs(t, err, ErrInvalidMonth)
	}
}

func TestParsePaymentMode(t *testing.T) {
	mode, err := ParsePaymentMode(" bank transfer ")
	require.NoError(t, err)
	assert.Equal(t, PaymentModeBankTransfer, mode)

	mode, err = ParsePaymentMode("upi")
	require.NoError(t, err)
	assert.Equal(t, PaymentModeUPI, mode)

	_, err = ParsePaymentMode("barter")
	assert.ErrorIs(t, err, ErrInvalidPaymentMode)
}

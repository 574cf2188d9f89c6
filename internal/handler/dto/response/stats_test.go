//go:build unit

package response_test

import (
	"testing"

	resdto "tutor-booking/internal/handler/dto/response"
	"tutor-booking/internal/usecase/queries"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFromProviderStats(t *testing.T) {
	providerID := uuid.New()

	got, err := resdto.FromProviderStats(&queries.ProviderStats{
		ProviderID: providerID,
		Pending:    2,
		Active:     1,
		Completed:  4,
		Earnings: []queries.MoneyView{
			{AmountMinor: 3000, Currency: "EUR", Display: "€30.00"},
			{AmountMinor: 6550, Currency: "GBP", Display: "£65.50"},
		},
	})
	require.NoError(t, err)

	want := &resdto.ProviderStatsResponse{
		ProviderID: providerID.String(),
		Pending:    2,
		Active:     1,
		Completed:  4,
		Earnings: []resdto.MoneyResponse{
			{AmountMinor: 3000, Currency: "EUR", Display: "€30.00"},
			{AmountMinor: 6550, Currency: "GBP", Display: "£65.50"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromProviderStats mismatch (-want +got):\n%s", diff)
	}
}

func TestFromProviderStats_NoEarnings(t *testing.T) {
	got, err := resdto.FromProviderStats(&queries.ProviderStats{ProviderID: uuid.New()})
	require.NoError(t, err)
	require.NotNil(t, got.Earnings)
	require.Empty(t, got.Earnings)
}

package response

import (
	"tutor-booking/internal/usecase/queries"

	"github.com/jinzhu/copier"
)

type ProviderStatsResponse struct {
	ProviderID string          `json:"provider_id" copier:"-"`
	Pending    int             `json:"pending"`
	Active     int             `json:"active"`
	Completed  int             `json:"completed"`
	Earnings   []MoneyResponse `json:"earnings"`
}

func FromProviderStats(s *queries.ProviderStats) (*ProviderStatsResponse, error) {
	res := &ProviderStatsResponse{ProviderID: s.ProviderID.String()}
	if err := copier.Copy(res, s); err != nil {
		return nil, err
	}
	if res.Earnings == nil {
		res.Earnings = []MoneyResponse{}
	}
	return res, nil
}

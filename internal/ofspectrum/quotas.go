package ofspectrum

import "context"

// Quota is a per-service usage allowance.
type Quota struct {
	ServiceName string `json:"service_name"`
	Remaining   int    `json:"remaining"`
	QuotaLimit  int    `json:"quota_limit"`
}

// QuotasService accesses usage quotas.
type QuotasService struct {
	client *Client
}

// All returns the quotas for every service visible to the user.
func (s *QuotasService) All(ctx context.Context) ([]Quota, error) {
	var quotas []Quota
	if err := s.client.getJSON(ctx, "/usage/quotas/all", &quotas); err != nil {
		return nil, err
	}
	return quotas, nil
}

// EncodeQuota returns the watermark-encode quota.
func (s *QuotasService) EncodeQuota(ctx context.Context) (*Quota, error) {
	var quota Quota
	if err := s.client.getJSON(ctx, "/usage/quotas/encode", &quota); err != nil {
		return nil, err
	}
	return &quota, nil
}

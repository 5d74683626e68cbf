package mocks

import (
	"context"

	"geoip/internal/model"
)

type MockRepository struct {
	SaveRangesFunc     func(ctx context.Context, ranges []model.IPRange) error
	LoadRangesFunc     func(ctx context.Context) ([]model.IPRange, error)
	GetRangesCountFunc func(ctx context.Context) (int64, error)
}

func (m *MockRepository) SaveRanges(ctx context.Context, ranges []model.IPRange) error {
	return m.SaveRangesFunc(ctx, ranges)
}

func (m *MockRepository) LoadRanges(ctx context.Context) ([]model.IPRange, error) {
	return m.LoadRangesFunc(ctx)
}

func (m *MockRepository) GetRangesCount(ctx context.Context) (int64, error) {
	return m.GetRangesCountFunc(ctx)
}

type MockCache struct {
	SetCountryFunc     func(ctx context.Context, ip, countryCode string) error
	GetCountryFunc     func(ctx context.Context, ip string) (string, error)
	ClearCountriesFunc func(ctx context.Context) error
}

func (m *MockCache) SetCountry(ctx context.Context, ip, countryCode string) error {
	return m.SetCountryFunc(ctx, ip, countryCode)
}

func (m *MockCache) GetCountry(ctx context.Context, ip string) (string, error) {
	return m.GetCountryFunc(ctx, ip)
}

func (m *MockCache) ClearCountries(ctx context.Context) error {
	return m.ClearCountriesFunc(ctx)
}

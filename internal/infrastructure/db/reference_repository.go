package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

type ReferenceRepository struct {
	q querier
	d Dialect
}

func (r *ReferenceRepository) TaxByID(ctx context.Context, id int64) (*domain.Tax, error) {
	q := `select tax_id, name, rate from taxes where tax_id = ?`
	var t domain.Tax
	err := r.q.QueryRowContext(ctx, r.d.rebind(q), id).Scan(&t.ID, &t.Name, &t.Rate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: cannot find tax information", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ReferenceRepository) ShipSettingByCountryOrDefault(
	ctx context.Context,
	country string,
) (*domain.ShipSetting, error) {
	s, err := r.shipSetting(ctx, country)
	if err != nil || s != nil {
		return s, err
	}
	s, err = r.shipSetting(ctx, domain.DefaultShipCountry)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: no default ship setting", domain.ErrNotFound)
	}
	return s, nil
}

func (r *ReferenceRepository) shipSetting(ctx context.Context, country string) (*domain.ShipSetting, error) {
	q := `
        select ship_id, country, usd_price, ngn_price
        from ship_settings
        where country = ?
    `
	var s domain.ShipSetting
	err := r.q.QueryRowContext(ctx, r.d.rebind(q), country).Scan(&s.ID, &s.Country, &s.UsdPrice, &s.NgnPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

package model

import (
	"geoip/internal/ipaddr"
	"geoip/internal/rangetable"
)

// UnknownCountry is reported for addresses no loaded range covers.
const UnknownCountry = "ZZ"

type IPRange struct {
	ID          int64  `db:"id"`
	StartIP     int64  `db:"start_ip"`
	EndIP       int64  `db:"end_ip"`
	CountryCode string `db:"country_code"`
}

func FromRange(r rangetable.Range) IPRange {
	return IPRange{
		StartIP:     int64(r.Start),
		EndIP:       int64(r.End),
		CountryCode: r.Country,
	}
}

func (r IPRange) Range() rangetable.Range {
	return rangetable.Range{
		Start:   ipaddr.Address(r.StartIP),
		End:     ipaddr.Address(r.EndIP),
		Country: r.CountryCode,
	}
}

type IPResponse struct {
	IP          string `json:"ip"`
	CountryCode string `json:"country_code"`
}

type Error struct {
	Message string `json:"message"`
}

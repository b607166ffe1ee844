package db

import (
	"strconv"

	"gopkg.in/inf.v0"
)

// Reading values are stored as decimals so they keep the precision the sensor sent.
func toDec(v float64) *inf.Dec {
	d, ok := new(inf.Dec).SetString(strconv.FormatFloat(v, 'f', -1, 64))
	if !ok {
		return inf.NewDec(0, 0)
	}
	return d
}

func fromDec(d *inf.Dec) float64 {
	if d == nil {
		return 0
	}
	v, _ := strconv.ParseFloat(d.String(), 64)
	return v
}

func optDec(v *float64) *inf.Dec {
	if v == nil {
		return nil
	}
	return toDec(*v)
}

func optFloat(d *inf.Dec) *float64 {
	if d == nil {
		return nil
	}
	v := fromDec(d)
	return &v
}

package model

import "time"

type ResponseKind string

const (
	ResponseStartOfDay ResponseKind = "start_of_day"
	ResponseIntraday   ResponseKind = "intraday"
)

const (
	MinExcitement     = 1
	MaxExcitement     = 7
	MaxActivityLength = 30
)

type Response struct {
	ID         string       `json:"id"`
	Kind       ResponseKind `json:"kind"`
	Excitement int          `json:"excitement"`
	Activity   *string      `json:"activity,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

func (k ResponseKind) Valid() bool {
	return k == ResponseStartOfDay || k == ResponseIntraday
}

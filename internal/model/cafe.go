package model

import "time"

// Cafe は掲載されるカフェを表す。
// 名前はサービス全体で一意。Rankingは一覧表示のたびに再計算・永続化される。
type Cafe struct {
	ID           int64
	Name         string
	MapURL       string
	ImgURL       string
	Location     string
	Seats        string
	HasSockets   bool
	HasToilet    bool
	HasWifi      bool
	CanTakeCalls bool
	CoffeePrice  string
	Ranking      int
	CreatedAt    time.Time
}

// SeatsBuckets は座席数として受け付ける区分の一覧。
// 区分は連続しておらず、40-50は存在しない。
var SeatsBuckets = []string{"1-10", "10-20", "20-30", "30-40", "50+"}

// IsValidSeatsBucket は座席数区分として有効かどうかを返す。
func IsValidSeatsBucket(s string) bool {
	for _, b := range SeatsBuckets {
		if s == b {
			return true
		}
	}
	return false
}

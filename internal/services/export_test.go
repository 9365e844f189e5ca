package services

import "time"

func (s *TweetService) SetClock(now func() time.Time) {
	s.now = now
}

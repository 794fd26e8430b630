package model

import "fmt"

// DailyChallenge records the problem chosen for one tier on one day.
// Date is the due-date in ISO form ("2006-01-02") in the bot's time zone.
// Once written for a (Date, Tier) pair it is never overwritten.
type DailyChallenge struct {
	Date      string `json:"date"`
	Tier      int    `json:"tier"`
	ContestID int    `json:"contest_id"`
	Index     string `json:"index"`
	Name      string `json:"name"`
}

// URL returns the canonical problem page for the recorded problem.
func (c DailyChallenge) URL() string {
	return fmt.Sprintf("https://codeforces.com/problemset/problem/%d/%s", c.ContestID, c.Index)
}

// ScoreIncrease is the score awarded for completing a problem at the given
// tier rating: 10 points at 800, one more per 100 above that.
func ScoreIncrease(tier int) int {
	return 10 + (tier-800)/100
}

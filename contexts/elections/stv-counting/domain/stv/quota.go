package stv

import "fmt"

// DroopQuota returns floor(numBallots/(seats+1)) + 1, the smallest whole
// number of votes that no more than seats candidates can reach at once.
func DroopQuota(seats, numBallots int) int {
	mustBeCountable(seats, numBallots)
	return numBallots/(seats+1) + 1
}

// HareQuota returns floor(numBallots/seats). Count never uses it.
func HareQuota(seats, numBallots int) int {
	mustBeCountable(seats, numBallots)
	return numBallots / seats
}

func mustBeCountable(seats, numBallots int) {
	if seats < 1 || numBallots < 0 {
		panic(fmt.Sprintf("stv: quota undefined for %d seats and %d ballots", seats, numBallots))
	}
}
